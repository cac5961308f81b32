package postgres

import (
	"PaymentReminderBot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository представляет репозиторий пользователей и платежей поверх gorm
type Repository struct {
	db *gorm.DB
}

// NewRepository создает новый экземпляр Repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// FindUserByExternalID получает пользователя по идентификатору мессенджера
func (r *Repository) FindUserByExternalID(externalID int64) (*models.User, error) {
	var user models.User
	if err := r.db.Where("external_id = ?", externalID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UserExists проверяет, что запись id все еще принадлежит externalID
func (r *Repository) UserExists(id uint, externalID int64) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("id = ? AND external_id = ?", id, externalID).
		Count(&count).Error
	return count > 0, err
}

// CreateUser создает пользователя. Если external_id уже занят параллельной
// командой, вставка пропускается и user.ID остается нулевым
func (r *Repository) CreateUser(user *models.User) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(user).Error
}
