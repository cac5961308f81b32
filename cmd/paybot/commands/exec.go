package commands

import (
	"fmt"
	"strings"

	"PaymentReminderBot/internal/delivery/telegram"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// exec --user <id> <command> [args...]: выполняет одну команду бота без Telegram
func execCmd() *cobra.Command {
	var (
		externalID  int64
		displayName string
	)

	cmd := &cobra.Command{
		Use:   "exec <command> [args...]",
		Short: "Run one bot command as the given user and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet := log.WithOptions(zap.IncreaseLevel(zapcore.ErrorLevel))

			a, err := connect(cmd.Context(), cfg, quiet)
			if err != nil {
				return err
			}
			defer a.Close()

			handler := telegram.NewCommandHandler(a.service, quiet, cfg.Payments.CurrencyLabel)
			reply := handler.Handle(cmd.Context(), telegram.Command{
				Name:        strings.TrimPrefix(args[0], "/"),
				ExternalID:  externalID,
				DisplayName: displayName,
				Args:        args[1:],
			})

			fmt.Fprintln(cmd.OutOrStdout(), reply)
			return nil
		},
	}

	// Аргументы команды могут начинаться с "-", например отрицательная сумма
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().Int64Var(&externalID, "user", 0, "messenger user id to act as")
	cmd.Flags().StringVar(&displayName, "name", "", "display name used by start")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
