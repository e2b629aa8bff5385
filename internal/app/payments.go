/**
 * @description
 * Payment reconciliation logic. Filing a claim records a Pending row and tells
 * the operator channel about it; nothing touches the wallet until the operator
 * comes back with a verdict. The approve/reject paths delegate the
 * exactly-once status transition and the credit to the repository.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/instaboost/storefront-service/internal/domain"
)

// Reference numbers are opaque bank tokens and vary in length across rails;
// only the alphabet is constrained here. Uniqueness is the real contract and
// lives in the storage layer.
var referencePattern = regexp.MustCompile(`^[A-Za-z0-9]{1,64}$`)

var allowedMethods = map[string]bool{
	"upi":  true,
	"imps": true,
	"neft": true,
	"rtgs": true,
}

// FileClaim records a Pending deposit claim and notifies the operator.
func (s *Service) FileClaim(ctx context.Context, accountID uuid.UUID, req domain.FileClaimRequest) (*domain.PaymentClaim, error) {
	if err := s.consumeRateLimit(ctx, "payments", accountID.String(), s.settings.ClaimRateLimit, s.settings.ClaimRateWindow); err != nil {
		return nil, err
	}

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	reference := strings.ToUpper(strings.TrimSpace(req.ReferenceNumber))
	if !referencePattern.MatchString(reference) {
		return nil, fmt.Errorf("%w: invalid UTR number", ErrValidation)
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if !allowedMethods[method] {
		return nil, fmt.Errorf("%w: unsupported payment method", ErrValidation)
	}

	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	claim := &domain.PaymentClaim{
		ID:              uuid.New(),
		AccountID:       account.ID,
		Amount:          req.Amount.Round(2),
		ReferenceNumber: reference,
		Method:          method,
		Status:          domain.ClaimStatusPending,
	}
	if err := s.repo.CreatePaymentClaim(ctx, claim); err != nil {
		return nil, err
	}

	log.Printf("level=info component=service flow=payments msg=\"claim filed\" claim_id=%s account_uid=%s amount=%s",
		claim.ID, account.UID, claim.Amount.StringFixed(2))

	s.publishOperatorEvent(ctx, domain.EventPaymentFiled, domain.PaymentFiledEvent{
		ClaimID:         claim.ID,
		AccountUID:      account.UID,
		Amount:          claim.Amount,
		ReferenceNumber: claim.ReferenceNumber,
		Method:          claim.Method,
		Timestamp:       time.Now().UTC(),
	})

	return claim, nil
}

// ListClaims returns the account's deposit claims, newest first.
func (s *Service) ListClaims(ctx context.Context, accountID uuid.UUID) ([]domain.PaymentClaim, error) {
	return s.repo.FindPaymentClaimsByAccountID(ctx, accountID)
}

// ApproveClaim resolves a Pending claim as Approved, crediting the wallet.
func (s *Service) ApproveClaim(ctx context.Context, claimID uuid.UUID, actor string) (*domain.PaymentClaim, error) {
	claim, err := s.repo.ApprovePaymentClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=service flow=payments msg=\"claim approved\" claim_id=%s amount=%s actor=%s",
		claim.ID, claim.Amount.StringFixed(2), actor)
	return claim, nil
}

// RejectClaim resolves a Pending claim as Rejected. The wallet is untouched.
func (s *Service) RejectClaim(ctx context.Context, claimID uuid.UUID, actor string) (*domain.PaymentClaim, error) {
	claim, err := s.repo.RejectPaymentClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	log.Printf("level=info component=service flow=payments msg=\"claim rejected\" claim_id=%s actor=%s", claim.ID, actor)
	return claim, nil
}
