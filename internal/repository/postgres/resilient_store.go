package postgres

import (
	"context"
	"time"

	"PaymentReminderBot/internal/repository"
	"PaymentReminderBot/pkg/apperrors"
	"PaymentReminderBot/pkg/server"
	"go.uber.org/zap"
)

// ResilienceGuard выполняет операцию через circuit breaker хранилища
type ResilienceGuard interface {
	WithDatabaseResilience(ctx context.Context, operation string, fn func(ctx context.Context) error) error
}

// ResilientStore добавляет к Store таймаут сессии, circuit breaker и метрики
type ResilientStore struct {
	store   repository.Store
	guard   ResilienceGuard
	timeout time.Duration
	logger  *zap.Logger
}

// NewResilientStore создает новый экземпляр отказоустойчивого хранилища
func NewResilientStore(store repository.Store, guard ResilienceGuard, timeout time.Duration, logger *zap.Logger) *ResilientStore {
	return &ResilientStore{
		store:   store,
		guard:   guard,
		timeout: timeout,
		logger:  logger,
	}
}

// Session открывает сессию внутреннего хранилища. Повторов нет: команда
// либо фиксируется один раз, либо отклоняется
func (s *ResilientStore) Session(ctx context.Context, operation string, fn func(repo repository.Repository) error) error {
	startTime := time.Now()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := s.guard.WithDatabaseResilience(ctx, operation, func(ctx context.Context) error {
		return s.store.Session(ctx, operation, fn)
	})

	// Отказ по бизнес-правилам не является ошибкой хранилища
	metricErr := err
	if apperrors.IsIgnored(err) {
		metricErr = nil
	}
	server.RecordDBOperation(operation, time.Since(startTime), metricErr)

	if metricErr != nil {
		s.logger.Debug("Storage session failed",
			zap.String("operation", operation),
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err))
	}

	return err
}
