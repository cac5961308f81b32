// Package repository описывает контракт хранилища, которым пользуется сервис платежей.
package repository

import (
	"context"

	"PaymentReminderBot/internal/models"
)

// Repository выполняет операции над пользователями и платежами в рамках одной сессии
type Repository interface {
	FindUserByExternalID(externalID int64) (*models.User, error)
	UserExists(id uint, externalID int64) (bool, error)
	CreateUser(user *models.User) error
	FindPayment(id, userID uint) (*models.Payment, error)
	CreatePayment(payment *models.Payment) error
	UpdatePaymentField(payment *models.Payment, field models.PaymentField) error
	DeletePayment(payment *models.Payment) error
	ListPaymentsByUser(userID uint) ([]models.Payment, error)
}

// Store выдает Repository на время fn и освобождает соединение при любом исходе.
// Ошибка из fn откатывает все изменения сессии
type Store interface {
	Session(ctx context.Context, operation string, fn func(repo Repository) error) error
}
