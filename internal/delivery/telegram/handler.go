package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"PaymentReminderBot/internal/models"
	"PaymentReminderBot/internal/service"
	"PaymentReminderBot/pkg/apperrors"
	"PaymentReminderBot/pkg/server"
	"go.uber.org/zap"
)

// Команды бота
const (
	CommandStart         = "start"
	CommandHelp          = "help"
	CommandAddPayment    = "add_payment"
	CommandListPayments  = "list_payments"
	CommandDeletePayment = "delete_payment"
	CommandUpdatePayment = "update_payment"
)

// Тексты ответов
const (
	replyGreeting       = "Привет! Я бот, который поможет тебе не забывать о твоих платежах."
	replyUserNotFound   = "Ошибка: Пользователь не найден."
	replyPaymentMissing = "Ошибка: Платеж не найден."
	replyInvalidFormat  = "Ошибка: Неверный формат данных."
	replyInternal       = "Ошибка: Не удалось выполнить команду. Попробуйте позже."
	replyUnknownCommand = "Неизвестная команда. Список команд: /help"

	replyAdded           = "Платеж \"%s\" добавлен."
	replyAddEnumeration  = "Ошибка: Неверный период напоминания или продолжительность уведомления."
	replyNoPayments      = "Нет активных платежей."
	replyPaymentsHeader  = "Ваши платежи:\n"
	replyDeleted         = "Платеж \"%s\" удален."
	replyUpdated         = "Платеж \"%s\" успешно обновлен."
	replyBadRecurrence   = "Ошибка: Неверный период напоминания."
	replyBadNotification = "Ошибка: Неверная продолжительность уведомления."
	replyBadCategory     = "Ошибка: Неверная категория."
	replyBadField        = "Ошибка: Неверное поле для обновления."
	replyUpdateFailed    = "Ошибка: Неверный формат данных или ошибка при обновлении."
)

// Command представляет входящую команду независимо от транспорта
type Command struct {
	Name        string
	ExternalID  int64
	DisplayName string
	Args        []string
}

// CommandHandler превращает команду в один текстовый ответ
type CommandHandler struct {
	service  service.PaymentServiceInterface
	logger   *zap.Logger
	currency string
}

// NewCommandHandler создает новый экземпляр CommandHandler
func NewCommandHandler(service service.PaymentServiceInterface, logger *zap.Logger, currencyLabel string) *CommandHandler {
	return &CommandHandler{
		service:  service,
		logger:   logger,
		currency: currencyLabel,
	}
}

// Handle выполняет команду и всегда возвращает ответ. Паника в обработчике
// превращается в общий ответ об ошибке и не доходит до транспорта
func (h *CommandHandler) Handle(ctx context.Context, cmd Command) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic while handling command",
				zap.String("command", cmd.Name),
				zap.Int64("external_id", cmd.ExternalID),
				zap.Any("panic", r),
				zap.Stack("stack"))
			reply = replyInternal
		}
	}()

	var handle func(ctx context.Context, cmd Command) (string, error)
	switch cmd.Name {
	case CommandStart:
		handle = h.start
	case CommandHelp:
		return h.help()
	case CommandAddPayment:
		handle = h.addPayment
	case CommandListPayments:
		handle = h.listPayments
	case CommandDeletePayment:
		handle = h.deletePayment
	case CommandUpdatePayment:
		handle = h.updatePayment
	default:
		return replyUnknownCommand
	}

	// Ошибка уже залогирована и учтена в метриках, пользователю уходит reply
	_ = server.TraceCommand(ctx, h.logger, cmd.Name, func(ctx context.Context) error {
		var err error
		reply, err = handle(ctx, cmd)
		return err
	})
	return reply
}

func (h *CommandHandler) start(ctx context.Context, cmd Command) (string, error) {
	if _, err := h.service.RegisterUser(ctx, cmd.ExternalID, cmd.DisplayName); err != nil {
		return replyInternal, err
	}
	return replyGreeting, nil
}

func (h *CommandHandler) help() string {
	var b strings.Builder
	b.WriteString("Команды:\n")
	b.WriteString("/start - регистрация\n")
	b.WriteString("/add_payment <название> <сумма> <ГГГГ-ММ-ДД> <период> <уведомление> <категория>\n")
	b.WriteString("/list_payments - список платежей\n")
	b.WriteString("/delete_payment <id>\n")
	b.WriteString("/update_payment <id> <поле> <значение>\n\n")
	b.WriteString("Периоды: " + strings.Join(models.RecurrenceLabels(), ", ") + "\n")
	b.WriteString("Уведомления: " + strings.Join(models.NotificationLabels(), ", ") + "\n")
	b.WriteString("Категории: " + strings.Join(models.Categories(), ", ") + "\n")
	b.WriteString("Поля: " + strings.Join(models.PaymentFieldNames(), ", "))
	return b.String()
}

func (h *CommandHandler) addPayment(ctx context.Context, cmd Command) (string, error) {
	req, err := parseAddPaymentArgs(cmd.Args)
	if err != nil {
		return replyInvalidFormat, err
	}

	payment, err := h.service.AddPayment(ctx, cmd.ExternalID, req)
	switch {
	case err == nil:
		return fmt.Sprintf(replyAdded, payment.Title), nil
	case errors.Is(err, apperrors.ErrUserNotFound):
		return replyUserNotFound, err
	case errors.Is(err, apperrors.ErrUnknownRecurrence), errors.Is(err, apperrors.ErrUnknownNotification):
		return replyAddEnumeration, err
	case errors.Is(err, apperrors.ErrUnknownCategory):
		return replyBadCategory, err
	default:
		return replyInvalidFormat, err
	}
}

// parseAddPaymentArgs раскладывает аргументы /add_payment. Метки уведомлений
// и категории могут содержать пробелы, поэтому после периода берется самая
// длинная метка уведомления из справочника, а остаток считается категорией
func parseAddPaymentArgs(args []string) (service.AddPaymentRequest, error) {
	if len(args) < 6 {
		return service.AddPaymentRequest{}, apperrors.ErrInvalidFormat
	}

	req := service.AddPaymentRequest{
		Title:      args[0],
		Amount:     args[1],
		DueDate:    args[2],
		Recurrence: args[3],
	}

	tail := args[4:]
	split := 1
	for n := len(tail) - 1; n > 1; n-- {
		if _, ok := models.ResolveNotification(strings.Join(tail[:n], " ")); ok {
			split = n
			break
		}
	}

	req.Notification = strings.Join(tail[:split], " ")
	req.Category = strings.Join(tail[split:], " ")
	return req, nil
}

func (h *CommandHandler) listPayments(ctx context.Context, cmd Command) (string, error) {
	payments, err := h.service.ListPayments(ctx, cmd.ExternalID)
	switch {
	case errors.Is(err, apperrors.ErrUserNotFound):
		return replyUserNotFound, err
	case err != nil:
		return replyInternal, err
	case len(payments) == 0:
		return replyNoPayments, nil
	}

	var b strings.Builder
	b.WriteString(replyPaymentsHeader)
	for _, p := range payments {
		fmt.Fprintf(&b, "#%d %s: %s %s Дата: %s (%s, за %s, %s)\n",
			p.ID, p.Title, p.Amount.StringFixed(2), h.currency, p.DueDate.Format(models.DateLayout),
			recurrenceLabel(p), notificationLabel(p), p.Category)
	}
	return b.String(), nil
}

// Длительности хранятся разрешенными, метка восстанавливается обратным поиском
func recurrenceLabel(p models.Payment) string {
	if label, ok := models.LabelForRecurrence(p.RecurrencePeriod); ok {
		return label
	}
	return p.RecurrencePeriod.String()
}

func notificationLabel(p models.Payment) string {
	if label, ok := models.LabelForNotification(p.NotificationLeadTime); ok {
		return label
	}
	return p.NotificationLeadTime.String()
}

func (h *CommandHandler) deletePayment(ctx context.Context, cmd Command) (string, error) {
	if len(cmd.Args) < 1 {
		return replyInvalidFormat, apperrors.ErrInvalidFormat
	}
	paymentID, err := parsePaymentID(cmd.Args[0])
	if err != nil {
		return replyInvalidFormat, err
	}

	payment, err := h.service.DeletePayment(ctx, cmd.ExternalID, paymentID)
	switch {
	case err == nil:
		return fmt.Sprintf(replyDeleted, payment.Title), nil
	case errors.Is(err, apperrors.ErrUserNotFound):
		return replyUserNotFound, err
	case errors.Is(err, apperrors.ErrPaymentNotFound):
		return replyPaymentMissing, err
	default:
		return replyInvalidFormat, err
	}
}

func (h *CommandHandler) updatePayment(ctx context.Context, cmd Command) (string, error) {
	if len(cmd.Args) < 3 {
		return replyUpdateFailed, apperrors.ErrInvalidFormat
	}
	paymentID, err := parsePaymentID(cmd.Args[0])
	if err != nil {
		return replyUpdateFailed, err
	}
	rawValue := strings.Join(cmd.Args[2:], " ")

	payment, err := h.service.UpdatePaymentField(ctx, cmd.ExternalID, paymentID, cmd.Args[1], rawValue)
	switch {
	case err == nil:
		return fmt.Sprintf(replyUpdated, payment.Title), nil
	case errors.Is(err, apperrors.ErrUserNotFound):
		return replyUserNotFound, err
	case errors.Is(err, apperrors.ErrPaymentNotFound):
		return replyPaymentMissing, err
	case errors.Is(err, apperrors.ErrUnknownField):
		return replyBadField, err
	case errors.Is(err, apperrors.ErrUnknownRecurrence):
		return replyBadRecurrence, err
	case errors.Is(err, apperrors.ErrUnknownNotification):
		return replyBadNotification, err
	case errors.Is(err, apperrors.ErrUnknownCategory):
		return replyBadCategory, err
	default:
		return replyUpdateFailed, err
	}
}

func parsePaymentID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.ErrInvalidFormat
	}
	return uint(id), nil
}
