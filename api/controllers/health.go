package controllers

import (
	"context"
	"net/http"

	"github.com/storefront-labs/storefront-backend/api/responses"
	"github.com/storefront-labs/storefront-backend/pkg/config"
	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
	"github.com/storefront-labs/storefront-backend/pkg/logger"
)

// Pinger is the health surface of a backing store client.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the backing stores are reachable.
func HealthReady(cfg *config.Config, database Pinger, cache Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)

		if database != nil {
			if err := database.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
