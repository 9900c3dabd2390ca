package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/storefront-labs/storefront-backend/internal/orders"
	"github.com/storefront-labs/storefront-backend/pkg/config"
	"github.com/storefront-labs/storefront-backend/pkg/db/models"
	"github.com/storefront-labs/storefront-backend/pkg/enums"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

// defaultCurrency is fixed; the storefront does not carry per-store
// currency configuration.
const defaultCurrency = enums.CurrencyPKR

// metadataOrderIDKey links the provider session back to the order row.
const metadataOrderIDKey = "orderId"

var minorUnitFactor = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type storeLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type paymentClient interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Service executes checkout orchestration.
type Service interface {
	Execute(ctx context.Context, storeID string, input CheckoutInput) (*Result, error)
}

// CheckoutInput carries the decoded request payload.
type CheckoutInput struct {
	Products []ProductRequest
	// ShippingCost is accepted for forward compatibility but has no
	// downstream effect today.
	ShippingCost float64
}

// ProductRequest is one requested product with its quantity.
type ProductRequest struct {
	ProductID string
	Quantity  int
}

// Result is returned on successful checkout.
type Result struct {
	OrderID uuid.UUID
	URL     string
}

type service struct {
	tx         txRunner
	storeRepo  storeLoader
	products   productLoader
	ordersRepo orders.Repository
	payments   paymentClient
	storefront config.StorefrontConfig
	logg       *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	storeRepo storeLoader,
	productRepo productLoader,
	ordersRepo orders.Repository,
	payments paymentClient,
	storefront config.StorefrontConfig,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if storeRepo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if payments == nil {
		return nil, fmt.Errorf("payment client required")
	}
	if storefront.StoreURL == "" {
		return nil, fmt.Errorf("storefront base url required")
	}
	return &service{
		tx:         tx,
		storeRepo:  storeRepo,
		products:   productRepo,
		ordersRepo: ordersRepo,
		payments:   payments,
		storefront: storefront,
		logg:       logg,
	}, nil
}

func (s *service) Execute(ctx context.Context, storeID string, input CheckoutInput) (*Result, error) {
	sid, err := uuid.Parse(storeID)
	if err != nil {
		return nil, storeNotFound(storeID)
	}

	if len(input.Products) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Products are required")
	}

	if _, err := s.storeRepo.FindByID(ctx, sid); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storeNotFound(storeID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}

	// Resolve every product before touching the database: a missing
	// product aborts the whole request with nothing persisted. Input
	// order is preserved in the line items.
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(input.Products))
	items := make([]models.OrderItem, 0, len(input.Products))
	for _, requested := range input.Products {
		if requested.Quantity <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "Quantity must be greater than zero for product %s", requested.ProductID)
		}

		pid, err := uuid.Parse(requested.ProductID)
		if err != nil {
			return nil, productNotFound(requested.ProductID)
		}

		product, err := s.products.FindByID(ctx, pid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, productNotFound(requested.ProductID)
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(requested.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(defaultCurrency.Lower()),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(product.Name),
				},
				UnitAmount:  stripe.Int64(MinorUnits(product.Price)),
				TaxBehavior: stripe.String(string(stripe.PriceTaxBehaviorExclusive)),
			},
		})
		items = append(items, models.OrderItem{ProductID: pid})
	}

	order := &models.Order{
		StoreID: sid,
		IsPaid:  false,
		Status:  enums.OrderStatusPending,
		Items:   items,
	}
	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.ordersRepo.WithTx(tx).Create(ctx, order)
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
	}

	session, err := s.payments.CreateCheckoutSession(ctx, s.sessionParams(order.ID, lineItems))
	if err != nil {
		// Compensate: the order row is already committed, so mark it
		// canceled rather than leave it orphaned as pending.
		if cancelErr := s.ordersRepo.MarkCanceled(ctx, order.ID); cancelErr != nil {
			err = multierr.Append(err, cancelErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	if err := s.ordersRepo.AttachCheckoutSession(ctx, order.ID, session.ID); err != nil && s.logg != nil {
		octx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Error(octx, "attach checkout session", err)
	}

	return &Result{OrderID: order.ID, URL: session.URL}, nil
}

func (s *service) sessionParams(orderID uuid.UUID, lineItems []*stripe.CheckoutSessionLineItemParams) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		LineItems:                lineItems,
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		PhoneNumberCollection: &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		},
		SuccessURL: stripe.String(s.storefront.SuccessURL()),
		CancelURL:  stripe.String(s.storefront.CancelURL()),
	}
	// Stable key so a client-side retry of the provider call cannot mint
	// a second session for the same order.
	params.IdempotencyKey = stripe.String("checkout-session-" + orderID.String())
	params.AddMetadata(metadataOrderIDKey, orderID.String())
	return params
}

// MinorUnits converts a decimal store-native price into the provider's
// minor currency units (19.99 -> 1999), rounding to the nearest integer.
func MinorUnits(price decimal.Decimal) int64 {
	return price.Mul(minorUnitFactor).Round(0).IntPart()
}

func storeNotFound(id string) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "Store with ID %s not found", id)
}

func productNotFound(id string) *pkgerrors.Error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "Product with ID %s not found", id)
}
