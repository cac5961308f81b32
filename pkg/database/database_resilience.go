package database

import (
	"context"
	"errors"
	"time"

	"PaymentReminderBot/config"
	"PaymentReminderBot/pkg/apperrors"
	"PaymentReminderBot/pkg/resilience"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Имена circuit breaker, под ними же публикуется метрика состояния
const (
	PostgresCircuitName = "storage"
	RedisCircuitName    = "redis"
)

// HealthChecker предоставляет функции для проверки состояния баз данных.
// Redis необязателен: при nil клиенте кэш считается выключенным
type HealthChecker struct {
	db           *gorm.DB
	redisClient  *redis.Client
	logger       *zap.Logger
	pgCircuit    *resilience.CircuitBreaker
	redisCircuit *resilience.CircuitBreaker
}

// NewDatabaseHealthChecker создает новый экземпляр проверки состояния баз данных.
// listener получает смену состояний обоих circuit breaker и может быть nil
func NewDatabaseHealthChecker(db *gorm.DB, redisClient *redis.Client, logger *zap.Logger, cfg config.ResilienceConfig, listener resilience.StateListener) *HealthChecker {
	pgCircuit := resilience.NewCircuitBreaker(PostgresCircuitName, cfg.FailureThreshold, cfg.ResetTimeout, logger, apperrors.IgnoredErrors...)
	redisCircuit := resilience.NewCircuitBreaker(RedisCircuitName, cfg.FailureThreshold, cfg.ResetTimeout, logger, apperrors.IgnoredErrors...)

	if listener != nil {
		pgCircuit.OnStateChange(listener)
		redisCircuit.OnStateChange(listener)
	}

	return &HealthChecker{
		db:           db,
		redisClient:  redisClient,
		logger:       logger,
		pgCircuit:    pgCircuit,
		redisCircuit: redisCircuit,
	}
}

// IsDatabaseHealthy проверяет здоровье основной базы
func (c *HealthChecker) IsDatabaseHealthy(ctx context.Context) bool {
	var result int
	err := c.pgCircuit.Execute(ctx, "storage_health_check", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		sqlDB, err := c.db.DB()
		if err != nil {
			return err
		}

		return sqlDB.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	})

	return err == nil && result == 1
}

// RedisEnabled сообщает, подключен ли кэш
func (c *HealthChecker) RedisEnabled() bool {
	return c.redisClient != nil
}

// IsRedisHealthy проверяет здоровье Redis. Выключенный кэш не считается сбоем
func (c *HealthChecker) IsRedisHealthy(ctx context.Context) bool {
	if c.redisClient == nil {
		return true
	}

	err := c.redisCircuit.Execute(ctx, "redis_health_check", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 1*time.Second)
		defer cancel()

		return c.redisClient.Ping(ctx).Err()
	})

	return err == nil
}

// WithDatabaseResilience выполняет операцию в базе данных через circuit breaker.
// Ошибки "не найдено" и ошибки валидации команд не открывают его, но возвращаются вызывающему
func (c *HealthChecker) WithDatabaseResilience(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	return c.pgCircuit.Execute(ctx, operation, fn)
}

// WithRedisResilience выполняет операцию в Redis через circuit breaker
func (c *HealthChecker) WithRedisResilience(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	err := c.redisCircuit.Execute(ctx, operation, fn)

	if errors.Is(err, redis.Nil) {
		c.logger.Debug("Ключ не найден в Redis", zap.String("operation", operation))
	}

	return err
}

// SafeDBOperation выполняет операцию в базе данных, логируя ошибки и добавляя контекст
func SafeDBOperation(ctx context.Context, db *gorm.DB, logger *zap.Logger, operation string, fn func(tx *gorm.DB) error) error {
	err := fn(db.WithContext(ctx))
	if err != nil {
		logger.Error("Database operation failed",
			zap.String("operation", operation),
			zap.Error(err))

		if errors.Is(err, gorm.ErrInvalidTransaction) {
			logger.Error("Database transaction failed due to invalid transaction",
				zap.String("operation", operation))
		}

		return err
	}

	return nil
}

// SafeRedisOperation выполняет операцию в Redis с таймаутом по умолчанию, логируя ошибки.
// Отсутствие ключа ошибкой не логируется
func SafeRedisOperation(ctx context.Context, client *redis.Client, logger *zap.Logger, operation string, fn func(ctx context.Context, client *redis.Client) error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
	}

	err := fn(ctx, client)
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Error("Redis operation failed",
			zap.String("operation", operation),
			zap.Error(err))

		if errors.Is(err, context.DeadlineExceeded) {
			logger.Error("Redis operation timed out", zap.String("operation", operation))
		} else if errors.Is(err, redis.ErrClosed) {
			logger.Error("Redis connection closed", zap.String("operation", operation))
		}
	}

	return err
}
