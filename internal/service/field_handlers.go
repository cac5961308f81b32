package service

import (
	"strings"

	"PaymentReminderBot/internal/models"
	"PaymentReminderBot/pkg/apperrors"
)

// fieldHandler проверяет сырое значение и записывает его в одно поле платежа
type fieldHandler func(payment *models.Payment, raw string) error

// fieldHandlers содержит обработчик для каждого значения PaymentField
var fieldHandlers = map[models.PaymentField]fieldHandler{
	models.FieldTitle:                setTitle,
	models.FieldAmount:               setAmount,
	models.FieldPaymentDate:          setPaymentDate,
	models.FieldReminderPeriod:       setReminderPeriod,
	models.FieldNotificationDuration: setNotificationDuration,
	models.FieldCategory:             setCategory,
}

func applyField(payment *models.Payment, field models.PaymentField, raw string) error {
	handler, ok := fieldHandlers[field]
	if !ok {
		return apperrors.ErrUnknownField
	}
	return handler(payment, raw)
}

// Название записывается как есть, пустое отклоняется
func setTitle(payment *models.Payment, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return apperrors.ErrInvalidFormat
	}
	payment.Title = raw
	return nil
}

func setAmount(payment *models.Payment, raw string) error {
	amount, ok := models.ParseAmount(raw)
	if !ok {
		return apperrors.ErrInvalidFormat
	}
	payment.Amount = amount
	return nil
}

func setPaymentDate(payment *models.Payment, raw string) error {
	date, ok := models.ParseDueDate(raw)
	if !ok {
		return apperrors.ErrInvalidFormat
	}
	payment.DueDate = date
	return nil
}

// Период и уведомление разрешаются теми же справочниками, что и при добавлении
func setReminderPeriod(payment *models.Payment, raw string) error {
	period, ok := models.ResolveRecurrence(raw)
	if !ok {
		return apperrors.ErrUnknownRecurrence
	}
	payment.RecurrencePeriod = period
	return nil
}

func setNotificationDuration(payment *models.Payment, raw string) error {
	lead, ok := models.ResolveNotification(raw)
	if !ok {
		return apperrors.ErrUnknownNotification
	}
	payment.NotificationLeadTime = lead
	return nil
}

func setCategory(payment *models.Payment, raw string) error {
	if !models.IsValidCategory(raw) {
		return apperrors.ErrUnknownCategory
	}
	payment.Category = raw
	return nil
}
