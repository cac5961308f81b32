package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"PaymentReminderBot/internal/models"
	"PaymentReminderBot/internal/repository"
	"PaymentReminderBot/pkg/apperrors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DemoExternalID идентификатор демонстрационного пользователя
const DemoExternalID int64 = 1

// DevEnvironmentSeeder обрабатывает заполнение тестовыми данными среды разработки
type DevEnvironmentSeeder struct {
	store  repository.Store
	logger *zap.Logger
}

// NewDevEnvironmentSeeder создает новый объект для заполнения тестовыми данными
func NewDevEnvironmentSeeder(store repository.Store, logger *zap.Logger) *DevEnvironmentSeeder {
	return &DevEnvironmentSeeder{
		store:  store,
		logger: logger,
	}
}

// SeedDemoUser создает демонстрационного пользователя с несколькими платежами,
// если мы находимся в режиме разработки
func (s *DevEnvironmentSeeder) SeedDemoUser(ctx context.Context) error {
	if os.Getenv("APP_ENV") != "development" {
		s.logger.Debug("Not in development mode, skipping demo user")
		return nil
	}

	s.logger.Info("Seeding demo user for development")

	var created *models.User
	err := s.store.Session(ctx, "seed_demo_user", func(repo repository.Repository) error {
		existing, err := repo.FindUserByExternalID(DemoExternalID)
		if err == nil {
			s.logger.Info("Demo user already exists", zap.Uint("user_id", existing.ID))
			return nil
		}
		if !errors.Is(err, apperrors.ErrRecordNotFound) {
			return err
		}

		user := &models.User{
			ExternalID:  DemoExternalID,
			DisplayName: "demo",
		}
		if err := repo.CreateUser(user); err != nil {
			return fmt.Errorf("не удалось создать демонстрационного пользователя: %w", err)
		}

		for _, p := range demoPayments(user.ID) {
			if err := repo.CreatePayment(&p); err != nil {
				return fmt.Errorf("не удалось создать платеж %q: %w", p.Title, err)
			}
		}

		created = user
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to seed demo user", zap.Error(err))
		return err
	}

	if created != nil {
		s.logger.Info("Demo user created", zap.Uint("user_id", created.ID))
	}
	return nil
}

// SeedAllDevData заполняет все данные для разработки
func (s *DevEnvironmentSeeder) SeedAllDevData(ctx context.Context) error {
	return s.SeedDemoUser(ctx)
}

func demoPayments(userID uint) []models.Payment {
	const day = 24 * time.Hour
	firstOfNextMonth := time.Now().UTC().AddDate(0, 1, 0)
	firstOfNextMonth = time.Date(firstOfNextMonth.Year(), firstOfNextMonth.Month(), 1, 0, 0, 0, 0, time.UTC)

	return []models.Payment{
		{
			UserID:               userID,
			Title:                "Ипотека",
			Amount:               decimal.RequireFromString("45000.00"),
			DueDate:              firstOfNextMonth,
			RecurrencePeriod:     30 * day,
			NotificationLeadTime: 1 * day,
			Category:             "Ипотека",
		},
		{
			UserID:               userID,
			Title:                "Музыка",
			Amount:               decimal.RequireFromString("199.00"),
			DueDate:              firstOfNextMonth.AddDate(0, 0, 14),
			RecurrencePeriod:     30 * day,
			NotificationLeadTime: 1 * day,
			Category:             "Подписки",
		},
		{
			UserID:               userID,
			Title:                "ОСАГО",
			Amount:               decimal.RequireFromString("8700.50"),
			DueDate:              firstOfNextMonth.AddDate(0, 3, 0),
			RecurrencePeriod:     14 * day,
			NotificationLeadTime: 30 * day,
			Category:             "Страховка",
		},
	}
}
