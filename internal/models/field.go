package models

// PaymentField перечисляет поля платежа, доступные для /update_payment
type PaymentField int

const (
	FieldUnknown PaymentField = iota
	FieldTitle
	FieldAmount
	FieldPaymentDate
	FieldReminderPeriod
	FieldNotificationDuration
	FieldCategory
)

var paymentFieldNames = map[PaymentField]string{
	FieldTitle:                "title",
	FieldAmount:               "amount",
	FieldPaymentDate:          "payment_date",
	FieldReminderPeriod:       "reminder_period",
	FieldNotificationDuration: "notification_duration",
	FieldCategory:             "category",
}

// ParsePaymentField переводит имя поля из команды в PaymentField
func ParsePaymentField(name string) (PaymentField, bool) {
	for field, n := range paymentFieldNames {
		if n == name {
			return field, true
		}
	}
	return FieldUnknown, false
}

// String возвращает имя поля в том виде, в каком его вводит пользователь
func (f PaymentField) String() string {
	if name, ok := paymentFieldNames[f]; ok {
		return name
	}
	return "unknown"
}

// Column возвращает имя колонки в таблице payments
func (f PaymentField) Column() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldAmount:
		return "amount"
	case FieldPaymentDate:
		return "due_date"
	case FieldReminderPeriod:
		return "recurrence_period"
	case FieldNotificationDuration:
		return "notification_lead_time"
	case FieldCategory:
		return "category"
	}
	return ""
}

// PaymentFieldNames возвращает имена полей в порядке объявления
func PaymentFieldNames() []string {
	out := make([]string, 0, len(paymentFieldNames))
	for f := FieldTitle; f <= FieldCategory; f++ {
		out = append(out, paymentFieldNames[f])
	}
	return out
}
