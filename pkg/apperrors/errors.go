package apperrors

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Список игнорируемых ошибок для механизмов отказоустойчивости
var (
	// ErrNotFound возвращается, когда запись не найдена (обобщенная ошибка)
	ErrNotFound = errors.New("запись не найдена")

	// ErrCacheMiss возвращается, когда запись не найдена в кэше
	ErrCacheMiss = redis.Nil

	// ErrRecordNotFound возвращается, когда запись не найдена в базе данных
	ErrRecordNotFound = gorm.ErrRecordNotFound

	// IgnoredErrors содержит список всех игнорируемых ошибок для circuit breaker.
	// Ошибки валидации команд приходят из той же сессии хранилища, но не говорят о его состоянии
	IgnoredErrors = []error{
		ErrNotFound,
		ErrCacheMiss,
		ErrRecordNotFound,
		ErrInvalidFormat,
		ErrInvalidEnumeration,
		ErrUnknownField,
	}
)

// Ошибки команд над платежами
var (
	// ErrUserNotFound возвращается, если вызывающий не зарегистрирован через /start
	ErrUserNotFound = fmt.Errorf("пользователь %w", ErrNotFound)

	// ErrPaymentNotFound возвращается и для несуществующего, и для чужого платежа
	ErrPaymentNotFound = fmt.Errorf("платеж %w", ErrNotFound)

	// ErrInvalidFormat возвращается, если сумму, дату или идентификатор не удалось разобрать
	ErrInvalidFormat = errors.New("неверный формат данных")

	// ErrInvalidEnumeration возвращается для значения вне закрытого справочника
	ErrInvalidEnumeration = errors.New("значение вне справочника")

	ErrUnknownRecurrence   = fmt.Errorf("%w: период напоминания", ErrInvalidEnumeration)
	ErrUnknownNotification = fmt.Errorf("%w: продолжительность уведомления", ErrInvalidEnumeration)
	ErrUnknownCategory     = fmt.Errorf("%w: категория", ErrInvalidEnumeration)

	// ErrUnknownField возвращается, если обновляемое поле не входит в набор PaymentField
	ErrUnknownField = errors.New("неизвестное поле платежа")

	// ErrStorageFault оборачивает непредвиденные ошибки хранилища
	ErrStorageFault = errors.New("ошибка хранилища")
)

// IsNotFound проверяет, является ли ошибка ошибкой "запись не найдена"
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}

	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrCacheMiss) ||
		errors.Is(err, ErrRecordNotFound)
}

// StorageFault оборачивает ошибку хранилища так, что errors.Is находит и ErrStorageFault, и исходную ошибку
func StorageFault(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorageFault, err)
}

// IsIgnored проверяет, входит ли ошибка в IgnoredErrors
func IsIgnored(err error) bool {
	if err == nil {
		return false
	}

	for _, ignored := range IgnoredErrors {
		if errors.Is(err, ignored) {
			return true
		}
	}
	return false
}

// IsRejection проверяет, что команда отклонена по бизнес-правилам, а не из-за сбоя.
// Такие ошибки пользователь видит как конкретный ответ, а не как общую ошибку
func IsRejection(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrInvalidEnumeration) ||
		errors.Is(err, ErrUnknownField)
}
