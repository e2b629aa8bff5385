package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReferralGrant is one row of the referral ledger. The referrer's primary code
// is the row with a nil ReferredAccountID; each successful referral adds a
// second, consumed row with Completed=true linked to the referred account.
type ReferralGrant struct {
	ID                uuid.UUID  `json:"id"`
	ReferrerAccountID uuid.UUID  `json:"referrer_account_id"`
	Code              string     `json:"referral_code"`
	ReferredAccountID *uuid.UUID `json:"referred_account_id,omitempty"`
	Completed         bool       `json:"completed"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ReferralSummary is the rewards-page view for one account.
type ReferralSummary struct {
	Code               string `json:"referral_code"`
	CompletedReferrals int    `json:"completed_referrals"`
	Threshold          int    `json:"threshold"`
	DiscountEligible   bool   `json:"discount_eligible"`
	DiscountUnlocked   bool   `json:"discount_unlocked"`
}

// ConsumeReferralRequest is the DTO for redeeming a referral code.
type ConsumeReferralRequest struct {
	Code string `json:"code"`
}
