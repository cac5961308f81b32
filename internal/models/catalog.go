package models

import "time"

const day = 24 * time.Hour

type catalogEntry struct {
	label    string
	duration time.Duration
}

// Справочники заполняются один раз при старте и не изменяются во время работы
var (
	recurrenceCatalog = []catalogEntry{
		{"weekly", 7 * day},
		{"biweekly", 14 * day},
		{"monthly", 30 * day},
	}

	notificationCatalog = []catalogEntry{
		{"day", 1 * day},
		{"month", 30 * day},
		{"2 months", 60 * day},
		{"3 months", 90 * day},
		{"4 months", 120 * day},
		{"5 months", 150 * day},
		{"6 months", 180 * day},
		{"year", 365 * day},
	}

	categorySet = []string{
		"Кредит",
		"Ипотека",
		"Коммунальные платежи",
		"Подписки",
		"Квартплата",
		"Налоги",
		"Страховка",
	}
)

// ResolveRecurrence возвращает период повторения платежа по метке
func ResolveRecurrence(label string) (time.Duration, bool) {
	return resolve(recurrenceCatalog, label)
}

// ResolveNotification возвращает, за сколько до даты платежа нужно напомнить
func ResolveNotification(label string) (time.Duration, bool) {
	return resolve(notificationCatalog, label)
}

// IsValidCategory проверяет точное (с учетом регистра) совпадение с категорией из набора
func IsValidCategory(label string) bool {
	for _, c := range categorySet {
		if c == label {
			return true
		}
	}
	return false
}

// RecurrenceLabels возвращает метки периодов в порядке возрастания
func RecurrenceLabels() []string {
	return labels(recurrenceCatalog)
}

// NotificationLabels возвращает метки уведомлений в порядке возрастания
func NotificationLabels() []string {
	return labels(notificationCatalog)
}

// Categories возвращает копию набора категорий
func Categories() []string {
	out := make([]string, len(categorySet))
	copy(out, categorySet)
	return out
}

// LabelForRecurrence находит метку по сохраненному периоду
func LabelForRecurrence(d time.Duration) (string, bool) {
	return labelFor(recurrenceCatalog, d)
}

// LabelForNotification находит метку по сохраненной продолжительности уведомления
func LabelForNotification(d time.Duration) (string, bool) {
	return labelFor(notificationCatalog, d)
}

func resolve(catalog []catalogEntry, label string) (time.Duration, bool) {
	for _, e := range catalog {
		if e.label == label {
			return e.duration, true
		}
	}
	return 0, false
}

func labelFor(catalog []catalogEntry, d time.Duration) (string, bool) {
	for _, e := range catalog {
		if e.duration == d {
			return e.label, true
		}
	}
	return "", false
}

func labels(catalog []catalogEntry) []string {
	out := make([]string, 0, len(catalog))
	for _, e := range catalog {
		out = append(out, e.label)
	}
	return out
}
