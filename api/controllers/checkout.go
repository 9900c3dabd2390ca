package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/storefront-labs/storefront-backend/api/responses"
	"github.com/storefront-labs/storefront-backend/api/validators"
	checkoutsvc "github.com/storefront-labs/storefront-backend/internal/checkout"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

// Checkout converts a storefront cart into a hosted payment session.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		storeID := chi.URLParam(r, "storeId")

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		products := make([]checkoutsvc.ProductRequest, 0, len(payload.Products))
		for _, p := range payload.Products {
			products = append(products, checkoutsvc.ProductRequest{
				ProductID: p.ProductID,
				Quantity:  p.Quantity,
			})
		}

		result, err := svc.Execute(r.Context(), storeID, checkoutsvc.CheckoutInput{
			Products:     products,
			ShippingCost: payload.ShippingCost,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, checkoutResponse{URL: result.URL})
	}
}

// CheckoutPreflight answers storefront preflight probes. Browsers send
// these cross-origin before the POST.
func CheckoutPreflight() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		responses.WriteSuccess(w, struct{}{})
	}
}

// Cart payloads come from the storefront frontend and use camelCase keys.
type checkoutRequest struct {
	Products     []checkoutProductRequest `json:"products"`
	ShippingCost float64                  `json:"shippingCost"`
}

type checkoutProductRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type checkoutResponse struct {
	URL string `json:"url"`
}
