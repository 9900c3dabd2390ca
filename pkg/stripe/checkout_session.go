package stripe

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

// CheckoutSessionClient exposes the subset of Stripe operations the
// checkout service needs, so it can be stubbed in tests.
type CheckoutSessionClient interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// CreateCheckoutSession creates a hosted checkout session.
func (c *Client) CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if c == nil {
		return nil, errors.New("stripe client not initialized")
	}
	if params != nil {
		params.Context = ctx
	}
	return session.New(params)
}
