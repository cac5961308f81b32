package models

import (
	"time"
)

// User представляет пользователя мессенджера, владеющего платежами
type User struct {
	ID          uint      `gorm:"primaryKey"`
	ExternalID  int64     `gorm:"uniqueIndex;not null"`
	DisplayName string    `gorm:"size:255"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`

	// Связи
	Payments []Payment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName устанавливает имя таблицы для модели User
func (User) TableName() string {
	return "users"
}
