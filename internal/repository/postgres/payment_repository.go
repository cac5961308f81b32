package postgres

import (
	"fmt"

	"PaymentReminderBot/internal/models"
)

// FindPayment получает платеж только если он принадлежит пользователю userID
func (r *Repository) FindPayment(id, userID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// CreatePayment сохраняет новый платеж
func (r *Repository) CreatePayment(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// UpdatePaymentField записывает одну колонку платежа, остальные поля не затрагиваются
func (r *Repository) UpdatePaymentField(payment *models.Payment, field models.PaymentField) error {
	var value interface{}
	switch field {
	case models.FieldTitle:
		value = payment.Title
	case models.FieldAmount:
		value = payment.Amount
	case models.FieldPaymentDate:
		value = payment.DueDate
	case models.FieldReminderPeriod:
		value = int64(payment.RecurrencePeriod)
	case models.FieldNotificationDuration:
		value = int64(payment.NotificationLeadTime)
	case models.FieldCategory:
		value = payment.Category
	default:
		return fmt.Errorf("unsupported payment field %q", field)
	}

	return r.db.Model(&models.Payment{}).
		Where("id = ? AND user_id = ?", payment.ID, payment.UserID).
		Update(field.Column(), value).Error
}

// DeletePayment удаляет платеж владельца
func (r *Repository) DeletePayment(payment *models.Payment) error {
	return r.db.Where("id = ? AND user_id = ?", payment.ID, payment.UserID).
		Delete(&models.Payment{}).Error
}

// ListPaymentsByUser получает все платежи пользователя в порядке добавления
func (r *Repository) ListPaymentsByUser(userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.Where("user_id = ?", userID).Order("id").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
