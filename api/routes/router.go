package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storefront-labs/storefront-backend/api/controllers"
	webhookcontrollers "github.com/storefront-labs/storefront-backend/api/controllers/webhooks"
	"github.com/storefront-labs/storefront-backend/api/middleware"
	checkoutsvc "github.com/storefront-labs/storefront-backend/internal/checkout"
	stripewebhook "github.com/storefront-labs/storefront-backend/internal/webhooks/stripe"
	"github.com/storefront-labs/storefront-backend/pkg/config"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
	"github.com/storefront-labs/storefront-backend/pkg/stripe"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Database controllers.Pinger
	Cache    controllers.Pinger

	CheckoutService checkoutsvc.Service

	StripeClient       *stripe.Client
	StripeWebhookSvc   *stripewebhook.Service
	StripeWebhookGuard *stripewebhook.IdempotencyGuard
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, params.Database, params.Cache, logg))
	})

	r.Route("/api/{storeId}/checkout", func(r chi.Router) {
		r.Options("/", controllers.CheckoutPreflight())
		r.Post("/", controllers.Checkout(params.CheckoutService, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(params.StripeWebhookSvc, params.StripeClient, params.StripeWebhookGuard, logg))
	})

	return r
}
