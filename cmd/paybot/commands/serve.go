package commands

import (
	"context"
	"errors"
	"os"

	"PaymentReminderBot/internal/database/seed"
	"PaymentReminderBot/internal/delivery/telegram"
	"PaymentReminderBot/internal/repository/postgres"
	"PaymentReminderBot/pkg/resilience"
	"PaymentReminderBot/pkg/server"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot with health, metrics and gRPC health servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	if cfg.Telegram.Token == "" {
		return errors.New("telegram token is not set (telegram.token or TELEGRAM_TOKEN)")
	}

	log.Info("Starting payment reminder bot", zap.String("version", Version))

	gracefulShutdown := server.NewGracefulShutdown(log, cfg.Server.ShutdownTimeout)
	abort := func(err error) error {
		gracefulShutdown.Trigger()
		gracefulShutdown.Wait(context.Background())
		return err
	}

	a, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	gracefulShutdown.AddShutdownFunc("connections", func(ctx context.Context) error {
		return a.Close()
	})

	if err := migrate(ctx, a); err != nil {
		log.Error("Failed to migrate schema", zap.Error(err))
		return abort(err)
	}

	seeder := seed.NewDevEnvironmentSeeder(postgres.NewStore(a.db), log)
	if err := seeder.SeedAllDevData(ctx); err != nil {
		log.Warn("Failed to seed development data", zap.Error(err))
	}

	metricsServer := server.MetricsServer(cfg.Server.MetricsPort, log)
	gracefulShutdown.AddShutdownFunc("metrics server", metricsServer.Shutdown)

	grpcHealth := server.NewGRPCHealthServer(log)
	if err := grpcHealth.Start(cfg.Server.GRPCPort); err != nil {
		log.Error("Failed to start gRPC health server", zap.Int("port", cfg.Server.GRPCPort), zap.Error(err))
		return abort(err)
	}
	gracefulShutdown.AddShutdownFunc("grpc health server", grpcHealth.Stop)

	healthCheck := server.NewHealthCheck(a.health, log, Version)
	healthCheck.OnReadinessChange(grpcHealth.SetServing)
	healthCheck.StartServer(cfg.Server.HealthPort)
	gracefulShutdown.AddShutdownFunc("health server", healthCheck.Stop)

	api, err := resilience.Retry(ctx, log, "telegram_connect", resilience.DefaultRetryOptions(), func(ctx context.Context) (*tgbotapi.BotAPI, error) {
		return telegram.NewBotAPI(cfg.Telegram.Token, cfg.Telegram.Debug)
	})
	if err != nil {
		log.Error("Failed to connect to Telegram Bot API", zap.Error(err))
		return abort(err)
	}

	handler := telegram.NewCommandHandler(a.service, log, cfg.Payments.CurrencyLabel)
	bot := telegram.NewBot(api, handler, log, cfg.Telegram.Timeout, cfg.Telegram.CommandTimeout)

	botCtx, stopPolling := context.WithCancel(ctx)
	go bot.Run(botCtx)

	// Бот останавливается первым, чтобы начатые команды успели ответить до закрытия соединений
	gracefulShutdown.AddShutdownFunc("bot", func(ctx context.Context) error {
		stopPolling()
		return bot.Stop(ctx)
	})

	hostname, _ := os.Hostname()
	log.Info("Bot started",
		zap.String("username", api.Self.UserName),
		zap.Int("health_port", cfg.Server.HealthPort),
		zap.Int("metrics_port", cfg.Server.MetricsPort),
		zap.Int("grpc_port", cfg.Server.GRPCPort),
		zap.String("version", Version),
		zap.Int("pid", os.Getpid()),
		zap.String("hostname", hostname))

	gracefulShutdown.Wait(ctx)
	log.Info("Bot stopped")
	return nil
}
