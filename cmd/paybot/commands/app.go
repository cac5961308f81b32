package commands

import (
	"context"
	"errors"

	"PaymentReminderBot/config"
	"PaymentReminderBot/internal/repository/postgres"
	rediscache "PaymentReminderBot/internal/repository/redis"
	"PaymentReminderBot/internal/service"
	"PaymentReminderBot/pkg/database"
	"PaymentReminderBot/pkg/resilience"
	"PaymentReminderBot/pkg/server"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app собирает подключения и сервис платежей, общие для всех команд CLI
type app struct {
	db          *gorm.DB
	redisClient *redis.Client
	health      *database.HealthChecker
	service     *service.PaymentService
	logger      *zap.Logger
}

// connect подключается к хранилищу и, если он включен, к Redis. Подключение
// повторяется с нарастающей задержкой, недоступный Redis не мешает запуску
func connect(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app, error) {
	res := config.DefaultResilienceConfig()

	db, err := resilience.Retry(ctx, log, "storage_connect", res.Startup, func(ctx context.Context) (*gorm.DB, error) {
		return database.Open(cfg, log)
	})
	if err != nil {
		log.Error("Failed to connect to storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
		return nil, err
	}
	log.Info("Storage connected", zap.String("driver", cfg.Storage.Driver))

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = resilience.Retry(ctx, log, "redis_connect", res.Startup, func(ctx context.Context) (*redis.Client, error) {
			return database.NewRedisClient(ctx, cfg.Redis)
		})
		if err != nil {
			log.Warn("Redis is not available, running without user cache", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			redisClient = nil
		} else {
			log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	health := database.NewDatabaseHealthChecker(db, redisClient, log, res, server.RecordCircuitBreakerStateChange)
	store := postgres.NewResilientStore(postgres.NewStore(db), health, res.SessionTimeout, log)

	var cache service.UserCacheInterface
	if redisClient != nil {
		cache = rediscache.NewResilientUserCache(redisClient, cfg.Redis.UserTTL, health, res.CacheTimeout, log)
	}

	svc := service.NewPaymentService(store, cache, log, service.Options{
		StrictAddCategory: cfg.Payments.StrictAddCategory,
	})

	return &app{
		db:          db,
		redisClient: redisClient,
		health:      health,
		service:     svc,
		logger:      log,
	}, nil
}

// Close закрывает соединения с базами
func (a *app) Close() error {
	var errs []error

	if a.redisClient != nil {
		a.logger.Info("Closing Redis connection")
		errs = append(errs, a.redisClient.Close())
	}

	sqlDB, err := a.db.DB()
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	a.logger.Info("Closing storage connection")
	errs = append(errs, sqlDB.Close())

	return errors.Join(errs...)
}
