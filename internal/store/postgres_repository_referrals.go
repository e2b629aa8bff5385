/**
 * @description
 * Referral and reward queries for the PostgreSQL repository. Both one-way flags
 * (bonus_claimed, discount_unlocked) are flipped with conditional updates keyed
 * on their prior FALSE value, so two racing claims cannot both succeed. The
 * partial unique index on referred_account_id enforces single attribution of a
 * referred account at write time rather than trusting the caller's checks.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/instaboost/storefront-service/internal/domain"
)

// ClaimSignupBonus flips bonus_claimed and credits the bonus in one transaction.
func (r *PostgresRepository) ClaimSignupBonus(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE accounts SET bonus_claimed = TRUE WHERE id = $1 AND bonus_claimed = FALSE`,
		accountID,
	)
	if err != nil {
		return decimal.Zero, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if checkErr := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); checkErr != nil {
			return decimal.Zero, checkErr
		}
		if !exists {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, ErrBonusClaimed
	}

	var balance decimal.Decimal
	if err := tx.QueryRow(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance`,
		amount, accountID,
	).Scan(&balance); err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

const grantColumns = `id, referrer_account_id, referral_code, referred_account_id, completed, created_at`

func scanGrant(row pgx.Row) (*domain.ReferralGrant, error) {
	var grant domain.ReferralGrant
	err := row.Scan(
		&grant.ID,
		&grant.ReferrerAccountID,
		&grant.Code,
		&grant.ReferredAccountID,
		&grant.Completed,
		&grant.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrReferralCodeNotFound
		}
		return nil, err
	}
	return &grant, nil
}

// FindPrimaryReferral returns the account's shareable code row (the one with no
// referred account attached).
func (r *PostgresRepository) FindPrimaryReferral(ctx context.Context, accountID uuid.UUID) (*domain.ReferralGrant, error) {
	query := `SELECT ` + grantColumns + ` FROM referral_grants WHERE referrer_account_id = $1 AND referred_account_id IS NULL`
	return scanGrant(r.db.QueryRow(ctx, query, accountID))
}

// CreateReferralGrant inserts a grant row. For consumed grants the partial
// unique index on referred_account_id surfaces double attribution as
// ErrAlreadyReferred.
func (r *PostgresRepository) CreateReferralGrant(ctx context.Context, grant *domain.ReferralGrant) error {
	query := `
		INSERT INTO referral_grants (id, referrer_account_id, referral_code, referred_account_id, completed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		grant.ID, grant.ReferrerAccountID, grant.Code, grant.ReferredAccountID, grant.Completed,
	).Scan(&grant.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "referral_grants_referred_account_idx") {
			return ErrAlreadyReferred
		}
		if isUniqueViolation(err, "") {
			return ErrReferralCodeNotFound
		}
		return err
	}
	return nil
}

// FindReferrerByCode resolves a primary referral code to its owning account.
func (r *PostgresRepository) FindReferrerByCode(ctx context.Context, code string) (*domain.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE id = (
			SELECT referrer_account_id FROM referral_grants
			WHERE referral_code = $1 AND referred_account_id IS NULL
		)
	`
	account, err := scanAccount(r.db.QueryRow(ctx, query, code))
	if err == ErrAccountNotFound {
		return nil, ErrReferralCodeNotFound
	}
	return account, err
}

// CountCompletedReferrals counts the account's completed referral grants.
func (r *PostgresRepository) CountCompletedReferrals(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM referral_grants WHERE referrer_account_id = $1 AND completed = TRUE AND referred_account_id IS NOT NULL`,
		accountID,
	).Scan(&count)
	return count, err
}

// UnlockDiscount flips discount_unlocked with the same conditional pattern as
// the signup bonus. Eligibility is checked by the service before calling this.
func (r *PostgresRepository) UnlockDiscount(ctx context.Context, accountID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET discount_unlocked = TRUE WHERE id = $1 AND discount_unlocked = FALSE`,
		accountID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if checkErr := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); checkErr != nil {
			return checkErr
		}
		if !exists {
			return ErrAccountNotFound
		}
		return ErrDiscountClaimed
	}
	return nil
}
