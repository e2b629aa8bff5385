/**
 * @description
 * This file defines the `Repository` interface, the contract for all data access
 * required by the storefront-service. The interface keeps the business logic in
 * internal/app independent of PostgreSQL, which is what lets the service tests
 * run against an in-memory fake.
 *
 * Every balance or one-way-flag mutation in this contract is atomic at the
 * storage level: implementations must use conditional updates (checked by
 * affected-row count) or a single transaction, never a read followed by an
 * unconditional write.
 *
 * @dependencies
 * - context: Standard Go library.
 * - github.com/google/uuid: Identifier handling.
 * - github.com/shopspring/decimal: Monetary amounts.
 * - internal/domain: The service's domain models.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/instaboost/storefront-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
// There is no standalone credit or debit: every wallet mutation rides inside
// the transactional method that owns its business event (SettleOrder,
// ApprovePaymentClaim, ClaimSignupBonus), so a balance change can never be
// observed without its cause.
type Repository interface {
	// Account methods
	FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindAccountByHandle(ctx context.Context, handle string) (*domain.Account, error)
	CreateAccount(ctx context.Context, account *domain.Account) error
	// RecordLogin appends a login-log row and returns the account's new login count.
	RecordLogin(ctx context.Context, accountID uuid.UUID, handle string) (int, error)

	// Service catalog methods (read-only input to settlement)
	ListActiveServices(ctx context.Context) ([]domain.CatalogService, error)
	FindServiceByID(ctx context.Context, id int64) (*domain.CatalogService, error)

	// Order settlement. SettleOrder persists the order and debits its price in one
	// transaction; on ErrInsufficientFunds neither effect is applied. Returns the
	// post-debit balance.
	SettleOrder(ctx context.Context, order *domain.Order) (decimal.Decimal, error)
	FindOrdersByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.Order, error)

	// Payment reconciliation methods. CreatePaymentClaim fails with
	// ErrDuplicateReference when the reference number was already filed.
	CreatePaymentClaim(ctx context.Context, claim *domain.PaymentClaim) error
	FindPaymentClaimByID(ctx context.Context, id uuid.UUID) (*domain.PaymentClaim, error)
	FindPaymentClaimsByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.PaymentClaim, error)
	// ApprovePaymentClaim flips Pending->Approved and credits the claim amount in
	// one transaction; a claim that already left Pending fails with
	// ErrClaimResolved and the ledger is untouched.
	ApprovePaymentClaim(ctx context.Context, claimID uuid.UUID) (*domain.PaymentClaim, error)
	RejectPaymentClaim(ctx context.Context, claimID uuid.UUID) (*domain.PaymentClaim, error)

	// Referral / bonus methods. ClaimSignupBonus flips bonus_claimed false->true
	// and credits the bonus in one transaction; a second call fails with
	// ErrBonusClaimed.
	ClaimSignupBonus(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	FindPrimaryReferral(ctx context.Context, accountID uuid.UUID) (*domain.ReferralGrant, error)
	CreateReferralGrant(ctx context.Context, grant *domain.ReferralGrant) error
	FindReferrerByCode(ctx context.Context, code string) (*domain.Account, error)
	CountCompletedReferrals(ctx context.Context, accountID uuid.UUID) (int, error)
	// UnlockDiscount flips discount_unlocked false->true; fails with
	// ErrDiscountClaimed when the flag is already set.
	UnlockDiscount(ctx context.Context, accountID uuid.UUID) error
}
