package seed

import (
	"context"
	"testing"

	"PaymentReminderBot/internal/models"
	"PaymentReminderBot/internal/repository"
	"PaymentReminderBot/internal/repository/postgres"
	"PaymentReminderBot/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T) repository.Store {
	t.Helper()

	db, err := database.NewSQLiteDB(database.MemoryPath, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return postgres.NewStore(db)
}

func demoState(t *testing.T, store repository.Store) (*models.User, []models.Payment) {
	t.Helper()

	var (
		user     *models.User
		payments []models.Payment
	)
	err := store.Session(context.Background(), "test_read", func(repo repository.Repository) error {
		var err error
		user, err = repo.FindUserByExternalID(DemoExternalID)
		if err != nil {
			return err
		}
		payments, err = repo.ListPaymentsByUser(user.ID)
		return err
	})
	if err != nil {
		return nil, nil
	}
	return user, payments
}

func TestSeedDemoUser_SkipsOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	store := newStore(t)

	require.NoError(t, NewDevEnvironmentSeeder(store, zap.NewNop()).SeedAllDevData(context.Background()))

	user, _ := demoState(t, store)
	assert.Nil(t, user)
}

func TestSeedDemoUser_IsIdempotent(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	store := newStore(t)
	seeder := NewDevEnvironmentSeeder(store, zap.NewNop())

	require.NoError(t, seeder.SeedAllDevData(context.Background()))
	require.NoError(t, seeder.SeedAllDevData(context.Background()))

	user, payments := demoState(t, store)
	require.NotNil(t, user)
	assert.Equal(t, "demo", user.DisplayName)
	require.Len(t, payments, 3)

	for _, p := range payments {
		_, ok := models.LabelForRecurrence(p.RecurrencePeriod)
		assert.True(t, ok, p.Title)
		_, ok = models.LabelForNotification(p.NotificationLeadTime)
		assert.True(t, ok, p.Title)
		assert.True(t, models.IsValidCategory(p.Category), p.Title)
		assert.True(t, p.Amount.IsPositive(), p.Title)
	}
}
