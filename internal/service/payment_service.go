package service

import (
	"context"
	"errors"
	"strings"

	"PaymentReminderBot/internal/models"
	"PaymentReminderBot/internal/repository"
	"PaymentReminderBot/pkg/apperrors"
	"PaymentReminderBot/pkg/server"
	"go.uber.org/zap"
)

// PaymentServiceInterface определяет интерфейс для сервиса платежей
type PaymentServiceInterface interface {
	RegisterUser(ctx context.Context, externalID int64, displayName string) (*models.User, error)
	AddPayment(ctx context.Context, externalID int64, req AddPaymentRequest) (*models.Payment, error)
	ListPayments(ctx context.Context, externalID int64) ([]models.Payment, error)
	DeletePayment(ctx context.Context, externalID int64, paymentID uint) (*models.Payment, error)
	UpdatePaymentField(ctx context.Context, externalID int64, paymentID uint, fieldName, rawValue string) (*models.Payment, error)
}

// UserCacheInterface описывает кэш пользователей по идентификатору мессенджера.
// Промах и любой сбой кэша возвращаются как ошибка, после чего сервис идет в хранилище
type UserCacheInterface interface {
	GetUser(ctx context.Context, externalID int64) (*models.User, error)
	SetUser(ctx context.Context, user *models.User) error
}

// AddPaymentRequest содержит сырые аргументы команды добавления платежа
type AddPaymentRequest struct {
	Title        string
	Amount       string
	DueDate      string
	Recurrence   string
	Notification string
	Category     string
}

// Options настраивает поведение команд
type Options struct {
	// StrictAddCategory включает проверку категории при добавлении платежа.
	// Без нее категория проверяется только при обновлении
	StrictAddCategory bool
}

// PaymentService представляет сервис команд над платежами
type PaymentService struct {
	store   repository.Store
	cache   UserCacheInterface
	logger  *zap.Logger
	options Options
}

// NewPaymentService создает новый экземпляр PaymentService. cache может быть nil
func NewPaymentService(store repository.Store, cache UserCacheInterface, logger *zap.Logger, options Options) *PaymentService {
	return &PaymentService{
		store:   store,
		cache:   cache,
		logger:  logger,
		options: options,
	}
}

// RegisterUser создает пользователя при первом обращении. Повторный вызов ничего не меняет
func (s *PaymentService) RegisterUser(ctx context.Context, externalID int64, displayName string) (*models.User, error) {
	var user *models.User

	err := s.store.Session(ctx, "register_user", func(repo repository.Repository) error {
		existing, err := repo.FindUserByExternalID(externalID)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, apperrors.ErrRecordNotFound) {
			return err
		}

		candidate := &models.User{
			ExternalID:  externalID,
			DisplayName: displayName,
		}
		if err := repo.CreateUser(candidate); err != nil {
			return err
		}

		// Параллельный /start успел вставить запись раньше
		if candidate.ID == 0 {
			existing, err = repo.FindUserByExternalID(externalID)
			user = existing
			return err
		}

		user = candidate
		s.logger.Info("User registered",
			zap.Uint("user_id", user.ID),
			zap.Int64("external_id", externalID))
		return nil
	})
	if err != nil {
		return nil, s.storageError(ctx, "register user", externalID, err)
	}

	s.cacheUser(ctx, user)
	return user, nil
}

// AddPayment проверяет аргументы и сохраняет новый платеж пользователя
func (s *PaymentService) AddPayment(ctx context.Context, externalID int64, req AddPaymentRequest) (*models.Payment, error) {
	var payment *models.Payment

	err := s.store.Session(ctx, "add_payment", func(repo repository.Repository) error {
		user, err := s.resolveUser(ctx, repo, externalID)
		if err != nil {
			return err
		}

		candidate, err := s.buildPayment(user.ID, req)
		if err != nil {
			return err
		}

		if err := repo.CreatePayment(candidate); err != nil {
			return err
		}
		payment = candidate
		return nil
	})
	if err != nil {
		return nil, s.storageError(ctx, "add payment", externalID, err)
	}

	s.logger.Info("Payment added",
		zap.Uint("payment_id", payment.ID),
		zap.Int64("external_id", externalID))
	return payment, nil
}

// buildPayment разбирает сырые аргументы. Оба справочника проверяются до возврата ошибки
func (s *PaymentService) buildPayment(userID uint, req AddPaymentRequest) (*models.Payment, error) {
	title := strings.TrimSpace(req.Title)
	amount, amountOK := models.ParseAmount(req.Amount)
	dueDate, dateOK := models.ParseDueDate(req.DueDate)
	if title == "" || !amountOK || !dateOK {
		return nil, apperrors.ErrInvalidFormat
	}

	var errs []error
	recurrence, ok := models.ResolveRecurrence(req.Recurrence)
	if !ok {
		errs = append(errs, apperrors.ErrUnknownRecurrence)
	}
	notification, ok := models.ResolveNotification(req.Notification)
	if !ok {
		errs = append(errs, apperrors.ErrUnknownNotification)
	}
	if s.options.StrictAddCategory && !models.IsValidCategory(req.Category) {
		errs = append(errs, apperrors.ErrUnknownCategory)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return &models.Payment{
		UserID:               userID,
		Title:                title,
		Amount:               amount,
		DueDate:              dueDate,
		RecurrencePeriod:     recurrence,
		NotificationLeadTime: notification,
		Category:             req.Category,
	}, nil
}

// ListPayments получает платежи пользователя в порядке добавления
func (s *PaymentService) ListPayments(ctx context.Context, externalID int64) ([]models.Payment, error) {
	var payments []models.Payment

	err := s.store.Session(ctx, "list_payments", func(repo repository.Repository) error {
		user, err := s.resolveUser(ctx, repo, externalID)
		if err != nil {
			return err
		}

		payments, err = repo.ListPaymentsByUser(user.ID)
		return err
	})
	if err != nil {
		return nil, s.storageError(ctx, "list payments", externalID, err)
	}

	return payments, nil
}

// DeletePayment удаляет платеж, если он принадлежит пользователю, и возвращает удаленную запись
func (s *PaymentService) DeletePayment(ctx context.Context, externalID int64, paymentID uint) (*models.Payment, error) {
	var payment *models.Payment

	err := s.store.Session(ctx, "delete_payment", func(repo repository.Repository) error {
		user, err := s.resolveUser(ctx, repo, externalID)
		if err != nil {
			return err
		}

		payment, err = findOwnedPayment(repo, paymentID, user.ID)
		if err != nil {
			return err
		}

		return repo.DeletePayment(payment)
	})
	if err != nil {
		return nil, s.storageError(ctx, "delete payment", externalID, err, zap.Uint("payment_id", paymentID))
	}

	s.logger.Info("Payment deleted",
		zap.Uint("payment_id", paymentID),
		zap.Int64("external_id", externalID))
	return payment, nil
}

// UpdatePaymentField меняет одно поле платежа пользователя.
// Проверки идут в порядке: пользователь, платеж, поле, значение
func (s *PaymentService) UpdatePaymentField(ctx context.Context, externalID int64, paymentID uint, fieldName, rawValue string) (*models.Payment, error) {
	var payment *models.Payment

	err := s.store.Session(ctx, "update_payment", func(repo repository.Repository) error {
		user, err := s.resolveUser(ctx, repo, externalID)
		if err != nil {
			return err
		}

		payment, err = findOwnedPayment(repo, paymentID, user.ID)
		if err != nil {
			return err
		}

		field, ok := models.ParsePaymentField(fieldName)
		if !ok {
			return apperrors.ErrUnknownField
		}

		if err := applyField(payment, field, rawValue); err != nil {
			return err
		}

		return repo.UpdatePaymentField(payment, field)
	})
	if err != nil {
		return nil, s.storageError(ctx, "update payment", externalID, err,
			zap.Uint("payment_id", paymentID),
			zap.String("field", fieldName))
	}

	s.logger.Info("Payment updated",
		zap.Uint("payment_id", paymentID),
		zap.String("field", fieldName),
		zap.Int64("external_id", externalID))
	return payment, nil
}

// resolveUser ищет пользователя сначала в кэше, затем в хранилище.
// Запись из кэша сверяется с хранилищем по первичному ключу
func (s *PaymentService) resolveUser(ctx context.Context, repo repository.Repository, externalID int64) (*models.User, error) {
	if s.cache != nil {
		if user, err := s.cache.GetUser(ctx, externalID); err == nil && user != nil {
			exists, err := repo.UserExists(user.ID, externalID)
			if err != nil {
				return nil, err
			}
			if exists {
				s.logger.Debug("User retrieved from cache", zap.Int64("external_id", externalID))
				return user, nil
			}
			s.logger.Warn("Stale user in cache",
				zap.Uint("user_id", user.ID),
				zap.Int64("external_id", externalID))
		}
	}

	user, err := repo.FindUserByExternalID(externalID)
	if errors.Is(err, apperrors.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	s.cacheUser(ctx, user)
	return user, nil
}

func (s *PaymentService) cacheUser(ctx context.Context, user *models.User) {
	if s.cache == nil || user == nil {
		return
	}
	if err := s.cache.SetUser(ctx, user); err != nil {
		s.logger.Warn("Failed to cache user", zap.Error(err), zap.Int64("external_id", user.ExternalID))
	}
}

// findOwnedPayment не различает чужой и несуществующий платеж
func findOwnedPayment(repo repository.Repository, paymentID, userID uint) (*models.Payment, error) {
	payment, err := repo.FindPayment(paymentID, userID)
	if errors.Is(err, apperrors.ErrRecordNotFound) {
		return nil, apperrors.ErrPaymentNotFound
	}
	return payment, err
}

// storageError пропускает отказы по бизнес-правилам как есть,
// остальное логирует и оборачивает в ErrStorageFault
func (s *PaymentService) storageError(ctx context.Context, action string, externalID int64, err error, fields ...zap.Field) error {
	if apperrors.IsRejection(err) {
		return err
	}

	fields = append(fields, zap.Int64("external_id", externalID), zap.Error(err))
	server.WithRequestID(ctx, s.logger).Error("Failed to "+action, fields...)
	return apperrors.StorageFault(err)
}
