/**
 * @description
 * Payment-claim domain models. A claim is a user-submitted assertion that a bank
 * deposit happened (identified by its UTR/reference number) and waits in Pending
 * until an operator approves or rejects it. Approval is the only path by which a
 * deposit credits the wallet.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClaimStatus is the reconciliation state of a payment claim. A claim leaves
// Pending at most once.
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "Pending"
	ClaimStatusApproved ClaimStatus = "Approved"
	ClaimStatusRejected ClaimStatus = "Rejected"
)

// PaymentClaim represents a deposit awaiting manual reconciliation.
type PaymentClaim struct {
	ID              uuid.UUID       `json:"id"`
	AccountID       uuid.UUID       `json:"account_id"`
	Amount          decimal.Decimal `json:"amount"`
	ReferenceNumber string          `json:"utr_number"` // unique; blocks duplicate submission of one bank transaction
	Method          string          `json:"payment_method"`
	Status          ClaimStatus     `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
}

// FileClaimRequest is the DTO for filing a deposit claim.
type FileClaimRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	ReferenceNumber string          `json:"utr_number"`
	Method          string          `json:"payment_method"`
}
