package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/instaboost/storefront-service/internal/app"
	"github.com/instaboost/storefront-service/internal/domain"
	"github.com/instaboost/storefront-service/internal/store"
)

// orderPlacedResponse pairs the settled order with the wallet balance left
// after the debit, so the client can refresh both in one round trip.
type orderPlacedResponse struct {
	Order   *domain.Order   `json:"order"`
	Balance decimal.Decimal `json:"wallet_balance"`
}

// PlaceOrderHandler validates and settles a new order against the wallet.
func (h *StorefrontHandlers) PlaceOrderHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get account ID from context")
		return
	}

	var req domain.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, balance, err := h.service.PlaceOrder(r.Context(), accountID, req)
	if err != nil {
		var limited *app.RateLimitedError
		switch {
		case errors.As(err, &limited):
			w.Header().Set("Retry-After", strconv.Itoa(limited.RetryAfterSeconds))
			h.writeError(w, http.StatusTooManyRequests, "Too many orders, slow down")
		case errors.Is(err, app.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrServiceNotFound):
			h.writeError(w, http.StatusNotFound, "Service not found")
		case errors.Is(err, store.ErrInsufficientFunds):
			h.writeError(w, http.StatusPaymentRequired, "Insufficient wallet balance")
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		default:
			log.Printf("level=error component=api msg=\"order placement failed\" account_id=%s err=%v", accountID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to place order")
		}
		return
	}

	ordersSettledTotal.Inc()
	h.writeJSON(w, http.StatusCreated, orderPlacedResponse{Order: order, Balance: balance})
}

// ListOrdersHandler returns the account's order history.
func (h *StorefrontHandlers) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get account ID from context")
		return
	}

	orders, err := h.service.ListOrders(r.Context(), accountID)
	if err != nil {
		log.Printf("level=error component=api msg=\"order listing failed\" account_id=%s err=%v", accountID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load orders")
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	h.writeJSON(w, http.StatusOK, orders)
}
