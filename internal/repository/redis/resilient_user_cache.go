package redis

import (
	"context"
	"errors"
	"time"

	"PaymentReminderBot/internal/models"
	"PaymentReminderBot/pkg/database"
	"PaymentReminderBot/pkg/server"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ResilienceGuard выполняет операцию через circuit breaker Redis
type ResilienceGuard interface {
	WithRedisResilience(ctx context.Context, operation string, fn func(ctx context.Context) error) error
}

// ResilientUserCache добавляет к UserCache таймауты, circuit breaker и метрики.
// Сбой Redis никогда не прерывает команду: запись пропускается, чтение дает промах
type ResilientUserCache struct {
	client  *redis.Client
	cache   *UserCache
	guard   ResilienceGuard
	timeout time.Duration
	logger  *zap.Logger
}

// NewResilientUserCache создает новый экземпляр отказоустойчивого кэша пользователей
func NewResilientUserCache(client *redis.Client, ttl time.Duration, guard ResilienceGuard, timeout time.Duration, logger *zap.Logger) *ResilientUserCache {
	return &ResilientUserCache{
		client:  client,
		cache:   NewUserCache(client, ttl),
		guard:   guard,
		timeout: timeout,
		logger:  logger,
	}
}

func (r *ResilientUserCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// GetUser получает пользователя из кэша. Любая ошибка Redis возвращается
// вызывающему как промах
func (r *ResilientUserCache) GetUser(ctx context.Context, externalID int64) (*models.User, error) {
	startTime := time.Now()
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var user *models.User
	err := r.guard.WithRedisResilience(ctx, "get_user_cache", func(ctx context.Context) error {
		return database.SafeRedisOperation(ctx, r.client, r.logger, "get_user_cache", func(ctx context.Context, _ *redis.Client) error {
			var opErr error
			user, opErr = r.cache.GetUser(ctx, externalID)
			return opErr
		})
	})

	// Промах не является ошибкой кэша
	if errors.Is(err, redis.Nil) {
		server.RecordCacheOperation("get_user", time.Since(startTime), nil)
		return nil, redis.Nil
	}
	server.RecordCacheOperation("get_user", time.Since(startTime), err)

	if err != nil {
		r.logger.Warn("Failed to read user from cache, falling back to storage",
			zap.Int64("external_id", externalID),
			zap.Error(err))
		return nil, redis.Nil
	}

	return user, nil
}

// SetUser кэширует пользователя. Ошибки логируются и не возвращаются
func (r *ResilientUserCache) SetUser(ctx context.Context, user *models.User) error {
	startTime := time.Now()
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.guard.WithRedisResilience(ctx, "set_user_cache", func(ctx context.Context) error {
		return database.SafeRedisOperation(ctx, r.client, r.logger, "set_user_cache", func(ctx context.Context, _ *redis.Client) error {
			return r.cache.SetUser(ctx, user)
		})
	})
	server.RecordCacheOperation("set_user", time.Since(startTime), err)

	if err != nil {
		r.logger.Warn("Failed to cache user, continuing without caching",
			zap.Int64("external_id", user.ExternalID),
			zap.Error(err))
	}

	return nil
}
