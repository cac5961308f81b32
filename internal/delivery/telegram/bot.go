package telegram

import (
	"context"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// API часть tgbotapi.BotAPI, которой пользуется бот
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot получает обновления long polling'ом и обрабатывает каждую команду в своей горутине
type Bot struct {
	api            API
	handler        *CommandHandler
	logger         *zap.Logger
	pollTimeout    int
	commandTimeout time.Duration

	wg sync.WaitGroup
}

// NewBot создает новый экземпляр Bot. commandTimeout ограничивает обработку одной команды, 0 без ограничения
func NewBot(api API, handler *CommandHandler, logger *zap.Logger, pollTimeout int, commandTimeout time.Duration) *Bot {
	return &Bot{
		api:            api,
		handler:        handler,
		logger:         logger,
		pollTimeout:    pollTimeout,
		commandTimeout: commandTimeout,
	}
}

// NewBotAPI подключается к Bot API по токену
func NewBotAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return api, nil
}

// Run читает обновления до отмены ctx или закрытия канала обновлений.
// Цикл не ждет завершения команд
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Bot polling started", zap.Int("timeout", b.pollTimeout))

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Bot polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				b.logger.Info("Updates channel closed")
				return
			}

			cmd, chatID, ok := commandFromUpdate(update)
			if !ok {
				continue
			}

			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.process(ctx, cmd, chatID)
			}()
		}
	}
}

// Stop прекращает получение обновлений и ждет завершения начатых команд
func (b *Bot) Stop(ctx context.Context) error {
	b.api.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) process(ctx context.Context, cmd Command, chatID int64) {
	// Начатая команда доживает до ответа даже при остановке бота
	ctx = context.WithoutCancel(ctx)
	if b.commandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.commandTimeout)
		defer cancel()
	}

	reply := b.handler.Handle(ctx, cmd)

	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, reply)); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.String("command", cmd.Name),
			zap.Int64("chat_id", chatID))
	}
}

func commandFromUpdate(update tgbotapi.Update) (Command, int64, bool) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil || !msg.IsCommand() {
		return Command{}, 0, false
	}

	return Command{
		Name:        msg.Command(),
		ExternalID:  msg.From.ID,
		DisplayName: msg.From.UserName,
		Args:        strings.Fields(msg.CommandArguments()),
	}, msg.Chat.ID, true
}
