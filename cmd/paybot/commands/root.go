package commands

import (
	"context"

	"PaymentReminderBot/config"
	"PaymentReminderBot/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version версия бота
const Version = "1.0.0"

var (
	configDir string
	cfg       *config.Config
	log       *zap.Logger
)

// Execute разбирает аргументы и запускает выбранную команду
func Execute() error {
	root := newRootCmd()
	err := root.ExecuteContext(context.Background())
	if log != nil {
		_ = log.Sync()
	}
	return err
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "paybot",
		Short:        "Telegram bot for tracking recurring payments",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log = logger.NewLogger()

			var err error
			if configDir != "" {
				cfg, err = config.LoadConfigFrom(configDir)
			} else {
				cfg, err = config.LoadConfig()
			}
			if err != nil {
				log.Error("Failed to load config", zap.Error(err))
				return err
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configDir, "config", "", "directory with config.yaml (default ./config or .)")

	root.AddCommand(serveCmd(), migrateCmd(), execCmd())
	return root
}
