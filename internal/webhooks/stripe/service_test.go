package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
)

type stubOrdersRepo struct {
	order    *models.Order
	findErr  error
	paid     []uuid.UUID
	canceled []uuid.UUID
	paidErr  error
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.order == nil || s.order.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrdersRepo) MarkPaid(ctx context.Context, orderID uuid.UUID) error {
	if s.paidErr != nil {
		return s.paidErr
	}
	s.paid = append(s.paid, orderID)
	return nil
}

func (s *stubOrdersRepo) MarkCanceled(ctx context.Context, orderID uuid.UUID) error {
	s.canceled = append(s.canceled, orderID)
	return nil
}

func sessionEvent(t *testing.T, eventType stripe.EventType, session *stripe.CheckoutSession) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_" + uuid.NewString(),
		Type: eventType,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestService_CompletedSessionMarksOrderPaid(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{order: &models.Order{ID: orderID}}
	service, err := NewService(ServiceParams{OrdersRepo: repo})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, &stripe.CheckoutSession{
		ID:            "cs_test",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      map[string]string{"orderId": orderID.String()},
	})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.paid) != 1 || repo.paid[0] != orderID {
		t.Fatalf("expected order %s marked paid, got %v", orderID, repo.paid)
	}
}

func TestService_CompletedSessionWithPendingPaymentIsDeferred(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{order: &models.Order{ID: orderID}}
	service, err := NewService(ServiceParams{OrdersRepo: repo})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, &stripe.CheckoutSession{
		PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
		Metadata:      map[string]string{"orderId": orderID.String()},
	})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.paid) != 0 {
		t.Fatal("unpaid session must not confirm the order")
	}
}

func TestService_AsyncPaymentSucceededMarksOrderPaid(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{order: &models.Order{ID: orderID}}
	service, err := NewService(ServiceParams{OrdersRepo: repo})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := sessionEvent(t, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded, &stripe.CheckoutSession{
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      map[string]string{"orderId": orderID.String()},
	})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.paid) != 1 {
		t.Fatal("expected order marked paid")
	}
}

func TestService_ExpiredSessionCancelsPendingOrder(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{order: &models.Order{ID: orderID, IsPaid: false}}
	service, err := NewService(ServiceParams{OrdersRepo: repo})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := sessionEvent(t, stripe.EventTypeCheckoutSessionExpired, &stripe.CheckoutSession{
		Metadata: map[string]string{"orderId": orderID.String()},
	})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.canceled) != 1 || repo.canceled[0] != orderID {
		t.Fatalf("expected order %s canceled, got %v", orderID, repo.canceled)
	}
}

func TestService_ExpiredSessionLeavesPaidOrderAlone(t *testing.T) {
	orderID := uuid.New()
	repo := &stubOrdersRepo{order: &models.Order{ID: orderID, IsPaid: true}}
	service, err := NewService(ServiceParams{OrdersRepo: repo})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := sessionEvent(t, stripe.EventTypeCheckoutSessionExpired, &stripe.CheckoutSession{
		Metadata: map[string]string{"orderId": orderID.String()},
	})
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.canceled) != 0 {
		t.Fatal("paid order must not be canceled by a late expiry")
	}
}

func TestService_UnknownOrderIsNotFound(t *testing.T) {
	repo := &stubOrdersRepo{}
	service, err := NewService(ServiceParams{OrdersRepo: repo})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}
	repo.paidErr = gorm.ErrRecordNotFound

	event := sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, &stripe.CheckoutSession{
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata:      map[string]string{"orderId": uuid.NewString()},
	})
	gotErr := service.HandleEvent(context.Background(), event)
	typed := pkgerrors.As(gotErr)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", gotErr)
	}
}

func TestService_MissingMetadataIsRejected(t *testing.T) {
	repo := &stubOrdersRepo{}
	service, err := NewService(ServiceParams{OrdersRepo: repo})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := sessionEvent(t, stripe.EventTypeCheckoutSessionCompleted, &stripe.CheckoutSession{
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
	})
	gotErr := service.HandleEvent(context.Background(), event)
	typed := pkgerrors.As(gotErr)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", gotErr)
	}
}

func TestService_IgnoresUnrelatedEvents(t *testing.T) {
	repo := &stubOrdersRepo{}
	service, err := NewService(ServiceParams{OrdersRepo: repo})
	if err != nil {
		t.Fatalf("setup service: %v", err)
	}

	event := &stripe.Event{
		Type: stripe.EventTypeInvoicePaid,
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	if err := service.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unrelated events must be acknowledged, got %v", err)
	}
	if len(repo.paid) != 0 || len(repo.canceled) != 0 {
		t.Fatal("unrelated events must not touch orders")
	}
}

type stubIdempotencyStore struct {
	keys   map[string]bool
	nxErr  error
	delErr error
}

func (s *stubIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	return "", nil
}

func (s *stubIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.nxErr != nil {
		return false, s.nxErr
	}
	if s.keys == nil {
		s.keys = map[string]bool{}
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *stubIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (s *stubIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	if s.delErr != nil {
		return s.delErr
	}
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func TestIdempotencyGuard_CheckAndMark(t *testing.T) {
	store := &stubIdempotencyStore{}
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe-webhook")
	if err != nil {
		t.Fatalf("setup guard: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if seen {
		t.Fatal("first delivery must not be reported as seen")
	}

	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !seen {
		t.Fatal("replay must be reported as seen")
	}
}

func TestIdempotencyGuard_DeleteAllowsRetry(t *testing.T) {
	store := &stubIdempotencyStore{}
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe-webhook")
	if err != nil {
		t.Fatalf("setup guard: %v", err)
	}

	if _, err := guard.CheckAndMark(context.Background(), "evt_2"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := guard.Delete(context.Background(), "evt_2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	seen, err := guard.CheckAndMark(context.Background(), "evt_2")
	if err != nil {
		t.Fatalf("re-check: %v", err)
	}
	if seen {
		t.Fatal("deleted event must be processable again")
	}
}

func TestIdempotencyGuard_Validation(t *testing.T) {
	if _, err := NewIdempotencyGuard(nil, time.Hour, "scope"); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := NewIdempotencyGuard(&stubIdempotencyStore{}, time.Hour, ""); err == nil {
		t.Fatal("expected error without scope")
	}

	guard, err := NewIdempotencyGuard(&stubIdempotencyStore{nxErr: errors.New("redis down")}, time.Hour, "scope")
	if err != nil {
		t.Fatalf("setup guard: %v", err)
	}
	if _, err := guard.CheckAndMark(context.Background(), "evt_3"); err == nil {
		t.Fatal("expected store error to surface")
	}
}
