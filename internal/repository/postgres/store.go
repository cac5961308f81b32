package postgres

import (
	"context"

	"PaymentReminderBot/internal/repository"
	"gorm.io/gorm"
)

// Store открывает транзакцию gorm на каждую команду
type Store struct {
	db *gorm.DB
}

// NewStore создает новый экземпляр Store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Session выполняет fn в транзакции. gorm фиксирует ее при nil, откатывает при ошибке или панике
func (s *Store) Session(ctx context.Context, operation string, fn func(repo repository.Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}
