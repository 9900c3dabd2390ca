package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware applying the storefront origin policy. The
// checkout endpoint is called directly from shopper browsers on
// arbitrary storefront domains, so any origin is allowed.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}).Handler
}
