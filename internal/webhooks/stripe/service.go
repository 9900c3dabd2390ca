package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

// metadataOrderIDKey mirrors the key checkout stamps on every session.
const metadataOrderIDKey = "orderId"

type orderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID) error
	MarkCanceled(ctx context.Context, orderID uuid.UUID) error
}

type ServiceParams struct {
	OrdersRepo orderRepository
	Logger     *logger.Logger
}

type Service struct {
	orders orderRepository
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.OrdersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repo required")
	}
	return &Service{
		orders: params.OrdersRepo,
		logg:   params.Logger,
	}, nil
}

// HandleEvent reconciles order state with checkout session lifecycle
// events. Unrecognized event types are acknowledged without side effects
// so the provider does not retry them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		session, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.confirmPayment(ctx, session)
	case stripe.EventTypeCheckoutSessionExpired,
		stripe.EventTypeCheckoutSessionAsyncPaymentFailed:
		session, err := decodeSession(event)
		if err != nil {
			return err
		}
		return s.cancelOrder(ctx, session)
	default:
		return nil
	}
}

func (s *Service) confirmPayment(ctx context.Context, session *stripe.CheckoutSession) error {
	orderID, err := orderIDFromSession(session)
	if err != nil {
		return err
	}

	// Async payment methods deliver a completed event before the money
	// has moved. The async_payment_succeeded event settles those later.
	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		if s.logg != nil {
			s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), "payment pending, awaiting settlement")
		}
		return nil
	}

	if err := s.orders.MarkPaid(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", orderID)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
	}
	return nil
}

func (s *Service) cancelOrder(ctx context.Context, session *stripe.CheckoutSession) error {
	orderID, err := orderIDFromSession(session)
	if err != nil {
		return err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "order %s not found", orderID)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	// Events can arrive out of order. A session expiry after a
	// successful payment must not undo the paid state.
	if order.IsPaid {
		return nil
	}

	if err := s.orders.MarkCanceled(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order canceled")
	}
	return nil
}

func decodeSession(event *stripe.Event) (*stripe.CheckoutSession, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
	}
	return &session, nil
}

func orderIDFromSession(session *stripe.CheckoutSession) (uuid.UUID, error) {
	raw, ok := session.Metadata[metadataOrderIDKey]
	if !ok || raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id missing from session metadata")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Newf(pkgerrors.CodeValidation, "malformed order id %q in session metadata", raw)
	}
	return orderID, nil
}
