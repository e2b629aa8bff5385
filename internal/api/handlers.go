/**
 * @description
 * This file contains the HTTP handlers for the storefront-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/golang-jwt/jwt/v5: Session token minting.
 * - github.com/prometheus/client_golang: Request metrics.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/instaboost/storefront-service/internal/app"
	"github.com/instaboost/storefront-service/internal/domain"
	"github.com/instaboost/storefront-service/internal/store"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_logins_total",
		Help: "Total login attempts, labeled by outcome",
	}, []string{"outcome"})

	ordersSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_settled_total",
		Help: "Total orders settled against the wallet",
	})

	claimsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_payment_claims_total",
		Help: "Total payment claim transitions, labeled by action",
	}, []string{"action"})
)

// StorefrontHandlers holds the application service that handlers will use.
type StorefrontHandlers struct {
	service       *app.Service
	sessionSecret string
	sessionTTL    time.Duration
}

// NewStorefrontHandlers creates a new instance of StorefrontHandlers.
func NewStorefrontHandlers(service *app.Service, sessionSecret string, sessionTTL time.Duration) *StorefrontHandlers {
	if sessionTTL <= 0 {
		sessionTTL = 72 * time.Hour
	}
	return &StorefrontHandlers{service: service, sessionSecret: sessionSecret, sessionTTL: sessionTTL}
}

func (h *StorefrontHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *StorefrontHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *StorefrontHandlers) mintSessionToken(account *domain.Account) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": account.ID.String(),
		"uid": account.UID,
		"iat": now.Unix(),
		"exp": now.Add(h.sessionTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.sessionSecret))
}

// LoginHandler authenticates (or creates) an account and mints a session token.
func (h *StorefrontHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, newAccount, loginCount, err := h.service.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrValidation):
			loginsTotal.WithLabelValues("invalid").Inc()
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidCredentials):
			loginsTotal.WithLabelValues("rejected").Inc()
			h.writeError(w, http.StatusUnauthorized, "Invalid username or password")
		default:
			loginsTotal.WithLabelValues("error").Inc()
			log.Printf("level=error component=api msg=\"login failed\" err=%v", err)
			h.writeError(w, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	token, err := h.mintSessionToken(account)
	if err != nil {
		log.Printf("level=error component=api msg=\"session token mint failed\" account_uid=%s err=%v", account.UID, err)
		h.writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	loginsTotal.WithLabelValues("success").Inc()
	status := http.StatusOK
	if newAccount {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, domain.LoginResult{
		Account:      account,
		SessionToken: token,
		NewAccount:   newAccount,
		LoginCount:   loginCount,
	})
}

// CurrentAccountHandler returns the authenticated account's profile and balance.
func (h *StorefrontHandlers) CurrentAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get account ID from context")
		return
	}

	account, err := h.service.GetAccount(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			h.writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("level=error component=api msg=\"account lookup failed\" account_id=%s err=%v", accountID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load account")
		return
	}

	h.writeJSON(w, http.StatusOK, account)
}

// ListServicesHandler returns the active service catalog.
func (h *StorefrontHandlers) ListServicesHandler(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.ListServices(r.Context())
	if err != nil {
		log.Printf("level=error component=api msg=\"catalog listing failed\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load services")
		return
	}
	if services == nil {
		services = []domain.CatalogService{}
	}
	h.writeJSON(w, http.StatusOK, services)
}
