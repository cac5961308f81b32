package config

import (
	"time"

	"PaymentReminderBot/pkg/resilience"
)

// ResilienceConfig содержит настройки отказоустойчивости хранилища и кэша
type ResilienceConfig struct {
	// FailureThreshold количество сбоев хранилища подряд, после которого circuit breaker откроется
	FailureThreshold int
	// ResetTimeout время до перехода circuit breaker в полуоткрытое состояние
	ResetTimeout time.Duration

	// SessionTimeout ограничивает одну сессию хранилища (одну команду)
	SessionTimeout time.Duration
	// CacheTimeout ограничивает одно обращение к Redis
	CacheTimeout time.Duration

	// Startup повторные попытки подключения к базам при запуске.
	// Команды пользователей никогда не повторяются
	Startup resilience.RetryOptions
}

// DefaultResilienceConfig возвращает конфигурацию отказоустойчивости по умолчанию
func DefaultResilienceConfig() ResilienceConfig {
	failureThreshold, resetTimeout := resilience.DefaultCircuitBreakerOptions()

	startup := resilience.DefaultRetryOptions()
	startup.MaxRetries = 5
	startup.MaxBackoff = 5 * time.Second

	return ResilienceConfig{
		FailureThreshold: failureThreshold,
		ResetTimeout:     resetTimeout,
		SessionTimeout:   5 * time.Second,
		CacheTimeout:     500 * time.Millisecond,
		Startup:          startup,
	}
}
