package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/instaboost/storefront-service/internal/app"
	"github.com/instaboost/storefront-service/internal/domain"
	"github.com/instaboost/storefront-service/internal/store"
)

// ClaimBonusHandler credits the one-time signup bonus.
func (h *StorefrontHandlers) ClaimBonusHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get account ID from context")
		return
	}

	balance, err := h.service.ClaimSignupBonus(r.Context(), accountID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrBonusClaimed):
			h.writeError(w, http.StatusConflict, "Signup bonus has already been claimed")
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		default:
			log.Printf("level=error component=api msg=\"bonus claim failed\" account_id=%s err=%v", accountID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to claim bonus")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"wallet_balance": balance})
}

// ReferralSummaryHandler returns the account's referral code and progress.
func (h *StorefrontHandlers) ReferralSummaryHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get account ID from context")
		return
	}

	summary, err := h.service.ReferralSummary(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			h.writeError(w, http.StatusNotFound, "Account not found")
			return
		}
		log.Printf("level=error component=api msg=\"referral summary failed\" account_id=%s err=%v", accountID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load referral summary")
		return
	}

	h.writeJSON(w, http.StatusOK, summary)
}

// ConsumeReferralHandler attributes the authenticated account to a referrer.
func (h *StorefrontHandlers) ConsumeReferralHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get account ID from context")
		return
	}

	var req domain.ConsumeReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	grant, err := h.service.ConsumeReferralCode(r.Context(), req.Code, accountID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrValidation):
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrReferralCodeNotFound):
			h.writeError(w, http.StatusNotFound, "Referral code not found")
		case errors.Is(err, app.ErrSelfReferral):
			h.writeError(w, http.StatusBadRequest, "You cannot use your own referral code")
		case errors.Is(err, store.ErrAlreadyReferred):
			h.writeError(w, http.StatusConflict, "This account has already been referred")
		default:
			log.Printf("level=error component=api msg=\"referral consume failed\" account_id=%s err=%v", accountID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to redeem referral code")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, grant)
}

// ClaimDiscountHandler unlocks the permanent order discount after enough
// completed referrals.
func (h *StorefrontHandlers) ClaimDiscountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := GetAccountID(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "Could not get account ID from context")
		return
	}

	if err := h.service.ClaimDiscountReward(r.Context(), accountID); err != nil {
		switch {
		case errors.Is(err, app.ErrNotEligible):
			h.writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, store.ErrDiscountClaimed):
			h.writeError(w, http.StatusConflict, "Discount has already been unlocked")
		case errors.Is(err, store.ErrAccountNotFound):
			h.writeError(w, http.StatusNotFound, "Account not found")
		default:
			log.Printf("level=error component=api msg=\"discount claim failed\" account_id=%s err=%v", accountID, err)
			h.writeError(w, http.StatusInternalServerError, "Unable to claim discount")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"discount_unlocked": true})
}
