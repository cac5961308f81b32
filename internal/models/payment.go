package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout формат даты платежа во входящих командах и ответах
const DateLayout = "2006-01-02"

// Payment представляет регулярный платеж пользователя
type Payment struct {
	ID                   uint            `gorm:"primaryKey"`
	UserID               uint            `gorm:"index;not null"`
	Title                string          `gorm:"size:255;not null"`
	Amount               decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DueDate              time.Time       `gorm:"type:date;not null"`
	RecurrencePeriod     time.Duration   `gorm:"not null"`
	NotificationLeadTime time.Duration   `gorm:"not null"`
	Category             string          `gorm:"size:50;not null"`
	CreatedAt            time.Time       `gorm:"autoCreateTime"`
}

// TableName устанавливает имя таблицы для модели Payment
func (Payment) TableName() string {
	return "payments"
}

// MaxAmount наибольшая сумма, которая помещается в numeric(12,2)
var MaxAmount = decimal.RequireFromString("9999999999.99")

// ParseAmount разбирает положительную сумму не точнее копеек. Значение
// сохраняется без округления, поэтому лишние знаки после запятой отклоняются
func ParseAmount(raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() || amount.GreaterThan(MaxAmount) {
		return decimal.Zero, false
	}
	if !amount.Equal(amount.Truncate(2)) {
		return decimal.Zero, false
	}
	return amount, true
}

// ParseDueDate разбирает календарную дату в формате YYYY-MM-DD
func ParseDueDate(raw string) (time.Time, bool) {
	date, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
