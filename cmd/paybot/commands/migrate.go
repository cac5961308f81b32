package commands

import (
	"context"

	"PaymentReminderBot/config"
	"PaymentReminderBot/pkg/database"
	"PaymentReminderBot/pkg/resilience"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the users and payments tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := migrate(cmd.Context(), a); err != nil {
				log.Error("Failed to migrate schema", zap.Error(err))
				return err
			}

			log.Info("Schema migrated", zap.String("driver", cfg.Storage.Driver))
			return nil
		},
	}
}

// migrate повторяет миграцию, пока база только поднимается
func migrate(ctx context.Context, a *app) error {
	return resilience.WithRetry(ctx, a.logger, "migrate", config.DefaultResilienceConfig().Startup, func(ctx context.Context) error {
		return database.SafeDBOperation(ctx, a.db, a.logger, "migrate", database.Migrate)
	})
}
