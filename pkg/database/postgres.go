package database

import (
	"fmt"
	"time"

	"PaymentReminderBot/config"
	"PaymentReminderBot/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresDB создает новое подключение к PostgreSQL
func NewPostgresDB(cfg config.PostgresConfig, log *zap.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), gormConfig(log))
	if err != nil {
		return nil, err
	}

	// Настройка пула соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Open подключается к хранилищу, выбранному в storage.driver
func Open(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		return NewSQLiteDB(cfg.Storage.SQLitePath, log)
	case config.DriverPostgres:
		return NewPostgresDB(cfg.Postgres, log)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// Migrate создает или обновляет таблицы users и payments
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Payment{})
}

// gormConfig направляет логи gorm в zap. Записи "не найдено" не логируются:
// для бота это обычный исход команды
func gormConfig(log *zap.Logger) *gorm.Config {
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	return &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	}
}
