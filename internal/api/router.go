/**
 * @description
 * This file sets up the HTTP router for the storefront-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS for the browser storefront.
 * - github.com/prometheus/client_golang: The /metrics endpoint.
 */

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StorefrontRoutes creates and returns a new router for the storefront service.
func StorefrontRoutes(h *StorefrontHandlers, allowedOrigins, sessionSecret, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Login is the only unauthenticated API endpoint.
		r.Post("/auth/login", h.LoginHandler)
		r.Get("/services", h.ListServicesHandler)

		// Group routes that require a session.
		r.Group(func(r chi.Router) {
			r.Use(SessionAuthMiddleware(sessionSecret))

			r.Get("/auth/user", h.CurrentAccountHandler)

			r.Post("/orders", h.PlaceOrderHandler)
			r.Get("/orders", h.ListOrdersHandler)

			r.Post("/payments", h.FileClaimHandler)
			r.Get("/payments", h.ListClaimsHandler)

			r.Post("/bonus/claim", h.ClaimBonusHandler)
			r.Get("/referrals", h.ReferralSummaryHandler)
			r.Post("/referrals/consume", h.ConsumeReferralHandler)
			r.Post("/rewards/discount/claim", h.ClaimDiscountHandler)
		})
	})

	// Operator endpoints for server-to-server reconciliation decisions.
	r.Route("/operator", func(r chi.Router) {
		r.Use(InternalAuthMiddleware(internalAPIKey))

		r.Post("/claims/{claimID}/approve", h.ApproveClaimHandler)
		r.Post("/claims/{claimID}/reject", h.RejectClaimHandler)
	})

	return r
}
