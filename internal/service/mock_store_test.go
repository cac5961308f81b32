package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"PaymentReminderBot/internal/models"
	"PaymentReminderBot/internal/repository"
	"gorm.io/gorm"
)

// MockStore хранит пользователей и платежи в памяти и реализует repository.Store.
// Изменения сессии применяются к копии и переносятся в хранилище только при успехе
type MockStore struct {
	mu        sync.Mutex
	users     map[uint]*models.User
	payments  map[uint]*models.Payment
	nextUser  uint
	nextPay   uint
	sessions  int
	open      int
	failWith  error
	failOnOps map[string]bool
}

func NewMockStore() *MockStore {
	return &MockStore{
		users:     make(map[uint]*models.User),
		payments:  make(map[uint]*models.Payment),
		failOnOps: make(map[string]bool),
	}
}

// FailWith заставляет все сессии завершаться ошибкой хранилища
func (m *MockStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func (m *MockStore) Session(ctx context.Context, operation string, fn func(repo repository.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions++
	m.open++
	defer func() { m.open-- }()

	if m.failWith != nil {
		return m.failWith
	}

	tx := &mockRepository{
		users:    cloneUsers(m.users),
		payments: clonePayments(m.payments),
		nextUser: m.nextUser,
		nextPay:  m.nextPay,
	}

	if err := fn(tx); err != nil {
		return err
	}

	// Фиксация
	m.users = tx.users
	m.payments = tx.payments
	m.nextUser = tx.nextUser
	m.nextPay = tx.nextPay
	return nil
}

// Payment возвращает копию сохраненного платежа
func (m *MockStore) Payment(id uint) (models.Payment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[id]
	if !ok {
		return models.Payment{}, false
	}
	return *p, true
}

// UserCount возвращает количество пользователей с данным externalID
func (m *MockStore) UserCount(externalID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, u := range m.users {
		if u.ExternalID == externalID {
			count++
		}
	}
	return count
}

// Reset очищает хранилище, как пересозданная база
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users = make(map[uint]*models.User)
	m.payments = make(map[uint]*models.Payment)
	m.nextUser = 0
	m.nextPay = 0
}

// OpenSessions возвращает количество незакрытых сессий
func (m *MockStore) OpenSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

type mockRepository struct {
	users    map[uint]*models.User
	payments map[uint]*models.Payment
	nextUser uint
	nextPay  uint
}

func (r *mockRepository) FindUserByExternalID(externalID int64) (*models.User, error) {
	for _, u := range r.users {
		if u.ExternalID == externalID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockRepository) UserExists(id uint, externalID int64) (bool, error) {
	u, ok := r.users[id]
	return ok && u.ExternalID == externalID, nil
}

func (r *mockRepository) CreateUser(user *models.User) error {
	for _, u := range r.users {
		if u.ExternalID == user.ExternalID {
			// ON CONFLICT DO NOTHING
			return nil
		}
	}

	r.nextUser++
	user.ID = r.nextUser
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *mockRepository) FindPayment(id, userID uint) (*models.Payment, error) {
	p, ok := r.payments[id]
	if !ok || p.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *mockRepository) CreatePayment(payment *models.Payment) error {
	if _, ok := r.users[payment.UserID]; !ok {
		return errors.New("foreign key violation")
	}

	r.nextPay++
	payment.ID = r.nextPay
	copied := *payment
	r.payments[payment.ID] = &copied
	return nil
}

// UpdatePaymentField переносит в хранилище только выбранное поле
func (r *mockRepository) UpdatePaymentField(payment *models.Payment, field models.PaymentField) error {
	stored, ok := r.payments[payment.ID]
	if !ok || stored.UserID != payment.UserID {
		return nil
	}

	switch field {
	case models.FieldTitle:
		stored.Title = payment.Title
	case models.FieldAmount:
		stored.Amount = payment.Amount
	case models.FieldPaymentDate:
		stored.DueDate = payment.DueDate
	case models.FieldReminderPeriod:
		stored.RecurrencePeriod = payment.RecurrencePeriod
	case models.FieldNotificationDuration:
		stored.NotificationLeadTime = payment.NotificationLeadTime
	case models.FieldCategory:
		stored.Category = payment.Category
	default:
		return fmt.Errorf("unsupported payment field %q", field)
	}
	return nil
}

func (r *mockRepository) DeletePayment(payment *models.Payment) error {
	if stored, ok := r.payments[payment.ID]; ok && stored.UserID == payment.UserID {
		delete(r.payments, payment.ID)
	}
	return nil
}

func (r *mockRepository) ListPaymentsByUser(userID uint) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func cloneUsers(in map[uint]*models.User) map[uint]*models.User {
	out := make(map[uint]*models.User, len(in))
	for k, v := range in {
		copied := *v
		out[k] = &copied
	}
	return out
}

func clonePayments(in map[uint]*models.Payment) map[uint]*models.Payment {
	out := make(map[uint]*models.Payment, len(in))
	for k, v := range in {
		copied := *v
		out[k] = &copied
	}
	return out
}

// MockUserCache кэш пользователей в памяти
type MockUserCache struct {
	mu    sync.Mutex
	users map[int64]*models.User
	gets  int
	hits  int
	err   error
}

func NewMockUserCache() *MockUserCache {
	return &MockUserCache{users: make(map[int64]*models.User)}
}

func (c *MockUserCache) GetUser(ctx context.Context, externalID int64) (*models.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gets++
	if c.err != nil {
		return nil, c.err
	}
	u, ok := c.users[externalID]
	if !ok {
		return nil, errors.New("cache miss")
	}
	c.hits++
	copied := *u
	return &copied, nil
}

func (c *MockUserCache) SetUser(ctx context.Context, user *models.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.err != nil {
		return c.err
	}
	copied := *user
	c.users[user.ExternalID] = &copied
	return nil
}
