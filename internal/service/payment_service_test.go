package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"PaymentReminderBot/internal/models"
	"PaymentReminderBot/pkg/apperrors"
	"go.uber.org/zap"
)

const (
	userA int64 = 1001
	userB int64 = 2002
)

func newTestService(t *testing.T, options Options) (*PaymentService, *MockStore) {
	t.Helper()

	store := NewMockStore()
	svc := NewPaymentService(store, nil, zap.NewNop(), options)

	for _, id := range []int64{userA, userB} {
		if _, err := svc.RegisterUser(context.Background(), id, ""); err != nil {
			t.Fatalf("Failed to register user %d: %v", id, err)
		}
	}

	return svc, store
}

func rentRequest() AddPaymentRequest {
	return AddPaymentRequest{
		Title:        "Rent",
		Amount:       "500.00",
		DueDate:      "2024-03-01",
		Recurrence:   "monthly",
		Notification: "month",
		Category:     "Rent",
	}
}

func mustAdd(t *testing.T, svc *PaymentService, externalID int64, req AddPaymentRequest) *models.Payment {
	t.Helper()

	payment, err := svc.AddPayment(context.Background(), externalID, req)
	if err != nil {
		t.Fatalf("AddPayment failed: %v", err)
	}
	return payment
}

func TestRegisterUser_Idempotent(t *testing.T) {
	store := NewMockStore()
	svc := NewPaymentService(store, nil, zap.NewNop(), Options{})
	ctx := context.Background()

	first, err := svc.RegisterUser(ctx, 42, "alice")
	if err != nil {
		t.Fatalf("First register failed: %v", err)
	}
	second, err := svc.RegisterUser(ctx, 42, "alice-renamed")
	if err != nil {
		t.Fatalf("Second register failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Expected same user, got ids %d and %d", first.ID, second.ID)
	}
	if second.DisplayName != "alice" {
		t.Errorf("Register must not modify existing user, got display name %q", second.DisplayName)
	}
	if count := store.UserCount(42); count != 1 {
		t.Errorf("Expected exactly one user, got %d", count)
	}
}

func TestRegisterUser_Concurrent(t *testing.T) {
	store := NewMockStore()
	svc := NewPaymentService(store, nil, zap.NewNop(), Options{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.RegisterUser(context.Background(), 7, ""); err != nil {
				t.Errorf("RegisterUser failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if count := store.UserCount(7); count != 1 {
		t.Errorf("Expected exactly one user, got %d", count)
	}
}

func TestAddPayment_StoresResolvedDurations(t *testing.T) {
	svc, store := newTestService(t, Options{})

	cases := []struct {
		recurrence   string
		notification string
		period       time.Duration
		lead         time.Duration
	}{
		{"weekly", "day", 7 * 24 * time.Hour, 24 * time.Hour},
		{"biweekly", "2 months", 14 * 24 * time.Hour, 60 * 24 * time.Hour},
		{"monthly", "year", 30 * 24 * time.Hour, 365 * 24 * time.Hour},
	}

	for _, tc := range cases {
		req := rentRequest()
		req.Recurrence = tc.recurrence
		req.Notification = tc.notification

		payment := mustAdd(t, svc, userA, req)
		stored, ok := store.Payment(payment.ID)
		if !ok {
			t.Fatalf("Payment %d was not stored", payment.ID)
		}

		if stored.RecurrencePeriod != tc.period {
			t.Errorf("%s: expected period %v, got %v", tc.recurrence, tc.period, stored.RecurrencePeriod)
		}
		if stored.NotificationLeadTime != tc.lead {
			t.Errorf("%s: expected lead time %v, got %v", tc.notification, tc.lead, stored.NotificationLeadTime)
		}
	}
}

func TestAddThenList_RoundTrip(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	added := mustAdd(t, svc, userA, rentRequest())
	if added.Title != "Rent" {
		t.Errorf("Expected title Rent, got %q", added.Title)
	}

	payments, err := svc.ListPayments(ctx, userA)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("Expected 1 payment, got %d", len(payments))
	}

	p := payments[0]
	if p.Title != "Rent" || p.Amount.StringFixed(2) != "500.00" || p.DueDate.Format(models.DateLayout) != "2024-03-01" {
		t.Errorf("Unexpected payment %s %s %s", p.Title, p.Amount.StringFixed(2), p.DueDate.Format(models.DateLayout))
	}

	// Платежи другого пользователя не видны
	others, err := svc.ListPayments(ctx, userB)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(others) != 0 {
		t.Errorf("Expected no payments for user B, got %d", len(others))
	}
}

func TestListPayments_OrderedByID(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	for _, title := range []string{"first", "second", "third"} {
		req := rentRequest()
		req.Title = title
		mustAdd(t, svc, userA, req)
	}

	payments, err := svc.ListPayments(context.Background(), userA)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	for i, want := range []string{"first", "second", "third"} {
		if payments[i].Title != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, payments[i].Title)
		}
	}
}

func TestAddPayment_InvalidFormat(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	cases := map[string]func(*AddPaymentRequest){
		"zero amount":     func(r *AddPaymentRequest) { r.Amount = "0" },
		"negative amount": func(r *AddPaymentRequest) { r.Amount = "-10" },
		"text amount":     func(r *AddPaymentRequest) { r.Amount = "abc" },
		"sub-cent amount": func(r *AddPaymentRequest) { r.Amount = "0.001" },
		"extra decimals":  func(r *AddPaymentRequest) { r.Amount = "500.005" },
		"oversized":       func(r *AddPaymentRequest) { r.Amount = "10000000000.00" },
		"bad date":        func(r *AddPaymentRequest) { r.DueDate = "01.03.2024" },
		"impossible date": func(r *AddPaymentRequest) { r.DueDate = "2024-02-30" },
		"empty title":     func(r *AddPaymentRequest) { r.Title = "  " },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := rentRequest()
			mutate(&req)

			_, err := svc.AddPayment(context.Background(), userA, req)
			if !errors.Is(err, apperrors.ErrInvalidFormat) {
				t.Errorf("Expected ErrInvalidFormat, got %v", err)
			}
		})
	}
}

func TestAddPayment_ValidatesBothCatalogs(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	req := rentRequest()
	req.Recurrence = "yearly"
	req.Notification = "week"

	_, err := svc.AddPayment(context.Background(), userA, req)

	if !errors.Is(err, apperrors.ErrInvalidEnumeration) {
		t.Fatalf("Expected ErrInvalidEnumeration, got %v", err)
	}
	if !errors.Is(err, apperrors.ErrUnknownRecurrence) || !errors.Is(err, apperrors.ErrUnknownNotification) {
		t.Errorf("Expected both catalog misses to be reported, got %v", err)
	}

	payments, _ := svc.ListPayments(context.Background(), userA)
	if len(payments) != 0 {
		t.Errorf("Nothing must be stored after rejection, got %d payments", len(payments))
	}
}

func TestCategoryAsymmetry(t *testing.T) {
	svc, store := newTestService(t, Options{})
	ctx := context.Background()

	// Добавление принимает любую категорию
	payment := mustAdd(t, svc, userA, rentRequest())

	// Обновление принимает только значения из набора, даже то, что приняло добавление
	_, err := svc.UpdatePaymentField(ctx, userA, payment.ID, "category", "Rent")
	if !errors.Is(err, apperrors.ErrUnknownCategory) {
		t.Errorf("Expected ErrUnknownCategory, got %v", err)
	}

	updated, err := svc.UpdatePaymentField(ctx, userA, payment.ID, "category", "Коммунальные платежи")
	if err != nil {
		t.Fatalf("Expected valid category to be accepted, got %v", err)
	}
	if updated.Category != "Коммунальные платежи" {
		t.Errorf("Unexpected category %q", updated.Category)
	}

	stored, _ := store.Payment(payment.ID)
	if stored.Category != "Коммунальные платежи" {
		t.Errorf("Expected stored category to change, got %q", stored.Category)
	}
}

func TestAddPayment_StrictCategory(t *testing.T) {
	svc, _ := newTestService(t, Options{StrictAddCategory: true})

	_, err := svc.AddPayment(context.Background(), userA, rentRequest())
	if !errors.Is(err, apperrors.ErrUnknownCategory) {
		t.Errorf("Expected ErrUnknownCategory with strict option, got %v", err)
	}

	req := rentRequest()
	req.Category = "Квартплата"
	if _, err := svc.AddPayment(context.Background(), userA, req); err != nil {
		t.Errorf("Expected valid category to pass, got %v", err)
	}
}

func TestUnregisteredUser(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	const stranger int64 = 999

	if _, err := svc.AddPayment(ctx, stranger, rentRequest()); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("AddPayment: expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.ListPayments(ctx, stranger); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("ListPayments: expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.DeletePayment(ctx, stranger, 1); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("DeletePayment: expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.UpdatePaymentField(ctx, stranger, 1, "title", "x"); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("UpdatePaymentField: expected ErrUserNotFound, got %v", err)
	}
}

func TestForeignPaymentIsIndistinguishableFromMissing(t *testing.T) {
	svc, store := newTestService(t, Options{})
	ctx := context.Background()

	foreign := mustAdd(t, svc, userB, rentRequest())
	const missing uint = 9999

	for _, id := range []uint{foreign.ID, missing} {
		_, delErr := svc.DeletePayment(ctx, userA, id)
		_, updErr := svc.UpdatePaymentField(ctx, userA, id, "title", "hijacked")

		if !errors.Is(delErr, apperrors.ErrPaymentNotFound) {
			t.Errorf("Delete %d: expected ErrPaymentNotFound, got %v", id, delErr)
		}
		if !errors.Is(updErr, apperrors.ErrPaymentNotFound) {
			t.Errorf("Update %d: expected ErrPaymentNotFound, got %v", id, updErr)
		}
	}

	stored, ok := store.Payment(foreign.ID)
	if !ok {
		t.Fatal("Payment of user B must still exist")
	}
	if stored.Title != "Rent" {
		t.Errorf("Payment of user B must be unchanged, got title %q", stored.Title)
	}
}

func TestDeletePayment(t *testing.T) {
	svc, store := newTestService(t, Options{})
	ctx := context.Background()

	payment := mustAdd(t, svc, userA, rentRequest())

	deleted, err := svc.DeletePayment(ctx, userA, payment.ID)
	if err != nil {
		t.Fatalf("DeletePayment failed: %v", err)
	}
	if deleted.Title != "Rent" {
		t.Errorf("Expected deleted title Rent, got %q", deleted.Title)
	}
	if _, ok := store.Payment(payment.ID); ok {
		t.Error("Payment must be removed")
	}

	if _, err := svc.DeletePayment(ctx, userA, payment.ID); !errors.Is(err, apperrors.ErrPaymentNotFound) {
		t.Errorf("Second delete: expected ErrPaymentNotFound, got %v", err)
	}
}

func TestUpdatePaymentField_EachField(t *testing.T) {
	svc, store := newTestService(t, Options{})
	ctx := context.Background()
	req := rentRequest()
	req.Category = "Квартплата"
	payment := mustAdd(t, svc, userA, req)

	cases := []struct {
		field string
		value string
		check func(p models.Payment) bool
	}{
		{"title", "Аренда квартиры", func(p models.Payment) bool { return p.Title == "Аренда квартиры" }},
		{"amount", "750.5", func(p models.Payment) bool { return p.Amount.StringFixed(2) == "750.50" }},
		{"payment_date", "2024-04-15", func(p models.Payment) bool { return p.DueDate.Format(models.DateLayout) == "2024-04-15" }},
		{"reminder_period", "weekly", func(p models.Payment) bool { return p.RecurrencePeriod == 7*24*time.Hour }},
		{"notification_duration", "6 months", func(p models.Payment) bool { return p.NotificationLeadTime == 180*24*time.Hour }},
		{"category", "Налоги", func(p models.Payment) bool { return p.Category == "Налоги" }},
	}

	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			before, _ := store.Payment(payment.ID)

			updated, err := svc.UpdatePaymentField(ctx, userA, payment.ID, tc.field, tc.value)
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}

			stored, _ := store.Payment(payment.ID)
			if !tc.check(stored) {
				t.Errorf("Field %s was not updated: %+v", tc.field, stored)
			}
			if updated.Title != stored.Title {
				t.Errorf("Reply must name the stored title, got %q want %q", updated.Title, stored.Title)
			}

			// Остальные поля не меняются
			restored := stored
			field, _ := models.ParsePaymentField(tc.field)
			if err := applyField(&restored, field, valueOf(before, field)); err != nil {
				t.Fatalf("Failed to restore field: %v", err)
			}
			if !samePayment(restored, before) {
				t.Errorf("Update of %s touched other fields", tc.field)
			}
		})
	}
}

func TestUpdatePaymentField_TitleKeptVerbatim(t *testing.T) {
	svc, store := newTestService(t, Options{})
	payment := mustAdd(t, svc, userA, rentRequest())

	if _, err := svc.UpdatePaymentField(context.Background(), userA, payment.ID, "title", " Аренда  "); err != nil {
		t.Fatalf("UpdatePaymentField failed: %v", err)
	}

	stored, _ := store.Payment(payment.ID)
	if stored.Title != " Аренда  " {
		t.Errorf("Expected title to be stored verbatim, got %q", stored.Title)
	}
}

func TestUpdatePaymentField_Rejections(t *testing.T) {
	svc, store := newTestService(t, Options{})
	ctx := context.Background()
	payment := mustAdd(t, svc, userA, rentRequest())
	before, _ := store.Payment(payment.ID)

	cases := []struct {
		field string
		value string
		want  error
	}{
		{"reminder_period", "yearly", apperrors.ErrInvalidEnumeration},
		{"notification_duration", "7 months", apperrors.ErrUnknownNotification},
		{"amount", "0", apperrors.ErrInvalidFormat},
		{"amount", "-5", apperrors.ErrInvalidFormat},
		{"amount", "много", apperrors.ErrInvalidFormat},
		{"amount", "0.001", apperrors.ErrInvalidFormat},
		{"amount", "500.005", apperrors.ErrInvalidFormat},
		{"amount", "10000000000.00", apperrors.ErrInvalidFormat},
		{"payment_date", "2024/03/01", apperrors.ErrInvalidFormat},
		{"title", "", apperrors.ErrInvalidFormat},
		{"owner", "2002", apperrors.ErrUnknownField},
		{"Title", "x", apperrors.ErrUnknownField},
	}

	for _, tc := range cases {
		_, err := svc.UpdatePaymentField(ctx, userA, payment.ID, tc.field, tc.value)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s=%q: expected %v, got %v", tc.field, tc.value, tc.want, err)
		}
	}

	after, _ := store.Payment(payment.ID)
	if !samePayment(before, after) {
		t.Error("Rejected updates must leave the record unchanged")
	}
}

func TestUpdatePaymentField_PaymentCheckedBeforeField(t *testing.T) {
	svc, _ := newTestService(t, Options{})

	_, err := svc.UpdatePaymentField(context.Background(), userA, 12345, "owner", "x")
	if !errors.Is(err, apperrors.ErrPaymentNotFound) {
		t.Errorf("Expected ErrPaymentNotFound before field check, got %v", err)
	}
}

func TestStorageFault(t *testing.T) {
	svc, store := newTestService(t, Options{})
	ctx := context.Background()
	cause := errors.New("connection reset by peer")
	store.FailWith(cause)

	_, err := svc.ListPayments(ctx, userA)

	if !errors.Is(err, apperrors.ErrStorageFault) {
		t.Errorf("Expected ErrStorageFault, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected cause to be kept, got %v", err)
	}
	if apperrors.IsRejection(err) {
		t.Error("Storage fault must not look like a rejection")
	}
	if store.OpenSessions() != 0 {
		t.Errorf("Expected all sessions closed, got %d open", store.OpenSessions())
	}
}

func TestSessionsReleasedOnEveryPath(t *testing.T) {
	svc, store := newTestService(t, Options{})
	ctx := context.Background()

	_, _ = svc.AddPayment(ctx, userA, rentRequest())
	_, _ = svc.AddPayment(ctx, userA, AddPaymentRequest{Amount: "x"})
	_, _ = svc.DeletePayment(ctx, userA, 555)
	_, _ = svc.UpdatePaymentField(ctx, userA, 1, "unknown", "")
	_, _ = svc.ListPayments(ctx, 31337)

	if store.OpenSessions() != 0 {
		t.Errorf("Expected all sessions closed, got %d open", store.OpenSessions())
	}
}

func TestUserCache(t *testing.T) {
	store := NewMockStore()
	cache := NewMockUserCache()
	svc := NewPaymentService(store, cache, zap.NewNop(), Options{})
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, 42, ""); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	if _, err := svc.ListPayments(ctx, 42); err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}

	if cache.hits != 1 {
		t.Errorf("Expected user to be served from cache, hits=%d", cache.hits)
	}

	// Сбой кэша не влияет на команды
	cache.err = errors.New("redis down")
	if _, err := svc.ListPayments(ctx, 42); err != nil {
		t.Errorf("Cache failure must not fail the command, got %v", err)
	}
}

func TestUserCache_StaleEntryIsVerified(t *testing.T) {
	store := NewMockStore()
	cache := NewMockUserCache()
	svc := NewPaymentService(store, cache, zap.NewNop(), Options{})
	ctx := context.Background()

	if _, err := svc.RegisterUser(ctx, 42, ""); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}

	// База пересоздана, в кэше остался user_id=1 для 42
	store.Reset()

	if _, err := svc.ListPayments(ctx, 42); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound for stale cache entry, got %v", err)
	}

	// Теперь user_id=1 принадлежит другому пользователю
	if _, err := svc.RegisterUser(ctx, 7, ""); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	mustAdd(t, svc, 7, rentRequest())

	if _, err := svc.AddPayment(ctx, 42, rentRequest()); !errors.Is(err, apperrors.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}

	if _, err := svc.RegisterUser(ctx, 42, ""); err != nil {
		t.Fatalf("RegisterUser failed: %v", err)
	}
	payments, err := svc.ListPayments(ctx, 42)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(payments) != 0 {
		t.Errorf("Expected no payments of another user, got %d", len(payments))
	}
}

func valueOf(p models.Payment, field models.PaymentField) string {
	switch field {
	case models.FieldTitle:
		return p.Title
	case models.FieldAmount:
		return p.Amount.String()
	case models.FieldPaymentDate:
		return p.DueDate.Format(models.DateLayout)
	case models.FieldReminderPeriod:
		label, _ := models.LabelForRecurrence(p.RecurrencePeriod)
		return label
	case models.FieldNotificationDuration:
		label, _ := models.LabelForNotification(p.NotificationLeadTime)
		return label
	case models.FieldCategory:
		return p.Category
	}
	return ""
}

func samePayment(a, b models.Payment) bool {
	return a.ID == b.ID &&
		a.UserID == b.UserID &&
		a.Title == b.Title &&
		a.Amount.Equal(b.Amount) &&
		a.DueDate.Equal(b.DueDate) &&
		a.RecurrencePeriod == b.RecurrencePeriod &&
		a.NotificationLeadTime == b.NotificationLeadTime &&
		a.Category == b.Category
}
