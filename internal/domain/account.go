/**
 * @description
 * This file defines the account domain model for the storefront-service. An account
 * is created on a user's first successful login with an Instagram handle and owns
 * the wallet balance that every other component mutates through the ledger.
 *
 * @notes
 * - Monetary values use shopspring/decimal and map to NUMERIC(12,2) columns, so
 *   two-decimal amounts survive storage and arithmetic without float drift.
 * - `bonus_claimed` and `discount_unlocked` are one-way flags; they only ever
 *   transition false -> true, and the flip is done with a conditional update.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a storefront user and their wallet.
type Account struct {
	ID               uuid.UUID       `json:"id"`
	UID              string          `json:"uid"` // public identifier, e.g. "UID7F3K9Q2XA"
	InstagramHandle  string          `json:"instagram_username"`
	CredentialHash   string          `json:"-"`
	Balance          decimal.Decimal `json:"wallet_balance"`
	BonusClaimed     bool            `json:"bonus_claimed"`
	DiscountUnlocked bool            `json:"discount_unlocked"`
	CreatedAt        time.Time       `json:"created_at"`
}

// LoginRequest is the DTO for the login endpoint. A referral code may be carried
// along so that a brand-new account is attributed to its referrer in the same call.
type LoginRequest struct {
	InstagramUsername string `json:"instagram_username"`
	Password          string `json:"password"`
	ReferralCode      string `json:"referral_code,omitempty"`
}

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Account      *Account `json:"user"`
	SessionToken string   `json:"session_token"`
	NewAccount   bool     `json:"new_account"`
	LoginCount   int      `json:"login_count"`
}

// LoginLog records one successful login for an account.
type LoginLog struct {
	ID              uuid.UUID `json:"id"`
	AccountID       uuid.UUID `json:"account_id"`
	InstagramHandle string    `json:"instagram_username"`
	LoginCount      int       `json:"login_count"`
	CreatedAt       time.Time `json:"created_at"`
}
