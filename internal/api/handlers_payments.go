package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/instaboost/storefront-service/internal/app"
	"github.com/instaboost/storefront-service/internal/domain"
	"github.com/instaboost/storefront-service/internal/store"
)

// FileClaimHandler records a Pending deposit claim for operator review.
func (h *StorefrontHandlers) FileClaimHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get account ID from context")
		return
	}

	var req domain.FileClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	claim, err := h.service.FileClaim(r.Context(), accountID, req)
	if err != nil {
		var limited *app.RateLimitedError
		switch {
		case errors.As(err, &limited):
			w.Header().Set("Retry-After", strconv.Itoa(limited.RetryAfterSeconds))
			h.writeError(w, http.StatusTooManyRequests, "Too many claims, slow down")
		case errors.Is(err, app.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrDuplicateReference):
			h.writeError(w, http.StatusConflict, "A claim with this UTR number already exists")
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		default:
			log.Printf("level=error component=api msg=\"claim filing failed\" account_id=%s err=%v", accountID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to file payment claim")
		}
		return
	}

	claimsTotal.WithLabelValues("filed").Inc()
	h.writeJSON(w, http.StatusCreated, claim)
}

// ListClaimsHandler returns the account's deposit claims.
func (h *StorefrontHandlers) ListClaimsHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get account ID from context")
		return
	}

	claims, err := h.service.ListClaims(r.Context(), accountID)
	if err != nil {
		log.Printf("level=error component=api msg=\"claim listing failed\" account_id=%s err=%v", accountID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load payment claims")
		return
	}
	if claims == nil {
		claims = []domain.PaymentClaim{}
	}
	h.writeJSON(w, http.StatusOK, claims)
}

// ApproveClaimHandler lets the operator approve a claim over HTTP; the same
// transition is reachable through the RabbitMQ decision queue.
func (h *StorefrontHandlers) ApproveClaimHandler(w http.ResponseWriter, r *http.Request) {
	h.resolveClaimHandler(w, r, true)
}

// RejectClaimHandler resolves a claim as rejected without touching the wallet.
func (h *StorefrontHandlers) RejectClaimHandler(w http.ResponseWriter, r *http.Request) {
	h.resolveClaimHandler(w, r, false)
}

func (h *StorefrontHandlers) resolveClaimHandler(w http.ResponseWriter, r *http.Request, approve bool) {
	claimID, err := uuid.Parse(chi.URLParam(r, "claimID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid claim ID")
		return
	}

	actor := r.Header.Get("X-Operator-ID")

	var claim *domain.PaymentClaim
	if approve {
		claim, err = h.service.ApproveClaim(r.Context(), claimID, actor)
	} else {
		claim, err = h.service.RejectClaim(r.Context(), claimID, actor)
	}
	if err != nil {
		switch {
		case errors.Is(err, store.ErrClaimNotFound):
			h.writeError(w, http.StatusNotFound, "Claim not found")
		case errors.Is(err, store.ErrClaimResolved):
			h.writeError(w, http.StatusConflict, "Claim has already been resolved")
		default:
			log.Printf("level=error component=api msg=\"claim resolution failed\" claim_id=%s err=%v", claimID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to resolve claim")
		}
		return
	}

	if approve {
		claimsTotal.WithLabelValues("approved").Inc()
	} else {
		claimsTotal.WithLabelValues("rejected").Inc()
	}
	h.writeJSON(w, http.StatusOK, claim)
}
