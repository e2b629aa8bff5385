/**
 * @description
 * Payment-claim queries for the PostgreSQL repository. The approve path is the
 * reconciliation core: a conditional status flip (Pending -> Approved) and the
 * wallet credit commit together or not at all, so a claim can never be marked
 * Approved without its deposit landing in the ledger. The conditional WHERE on
 * status is also what makes a second approval report ErrClaimResolved instead
 * of double-crediting.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/instaboost/storefront-service/internal/domain"
)

const claimColumns = `id, account_id, amount, utr_number, payment_method, status, created_at, resolved_at`

func scanClaim(row pgx.Row) (*domain.PaymentClaim, error) {
	var claim domain.PaymentClaim
	err := row.Scan(
		&claim.ID,
		&claim.AccountID,
		&claim.Amount,
		&claim.ReferenceNumber,
		&claim.Method,
		&claim.Status,
		&claim.CreatedAt,
		&claim.ResolvedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	return &claim, nil
}

// CreatePaymentClaim files a new Pending claim. The unique index on utr_number
// rejects a duplicate submission of the same bank transaction.
func (r *PostgresRepository) CreatePaymentClaim(ctx context.Context, claim *domain.PaymentClaim) error {
	query := `
		INSERT INTO payment_claims (id, account_id, amount, utr_number, payment_method, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		claim.ID, claim.AccountID, claim.Amount, claim.ReferenceNumber, claim.Method, claim.Status,
	).Scan(&claim.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "payment_claims_utr_number_key") {
			return ErrDuplicateReference
		}
		return err
	}
	return nil
}

// FindPaymentClaimByID retrieves a single claim.
func (r *PostgresRepository) FindPaymentClaimByID(ctx context.Context, id uuid.UUID) (*domain.PaymentClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM payment_claims WHERE id = $1`
	return scanClaim(r.db.QueryRow(ctx, query, id))
}

// FindPaymentClaimsByAccountID returns an account's claims, newest first.
func (r *PostgresRepository) FindPaymentClaimsByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.PaymentClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM payment_claims WHERE account_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []domain.PaymentClaim
	for rows.Next() {
		var claim domain.PaymentClaim
		if err := rows.Scan(&claim.ID, &claim.AccountID, &claim.Amount, &claim.ReferenceNumber, &claim.Method, &claim.Status, &claim.CreatedAt, &claim.ResolvedAt); err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

// ApprovePaymentClaim resolves a Pending claim as Approved and credits the
// wallet, both inside one transaction.
func (r *PostgresRepository) ApprovePaymentClaim(ctx context.Context, claimID uuid.UUID) (*domain.PaymentClaim, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	claim, err := r.resolveClaim(ctx, tx, claimID, domain.ClaimStatusApproved)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $1 WHERE id = $2`, claim.Amount, claim.AccountID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Rolling back leaves the claim Pending so the operator can retry after
		// the account issue is investigated.
		return nil, ErrAccountNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return claim, nil
}

// RejectPaymentClaim resolves a Pending claim as Rejected. No ledger effect.
func (r *PostgresRepository) RejectPaymentClaim(ctx context.Context, claimID uuid.UUID) (*domain.PaymentClaim, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	claim, err := r.resolveClaim(ctx, tx, claimID, domain.ClaimStatusRejected)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return claim, nil
}

// resolveClaim performs the exactly-once Pending -> terminal transition. Zero
// affected rows means the claim is either absent or already resolved; the
// follow-up read tells the two apart.
func (r *PostgresRepository) resolveClaim(ctx context.Context, tx pgx.Tx, claimID uuid.UUID, status domain.ClaimStatus) (*domain.PaymentClaim, error) {
	query := `
		UPDATE payment_claims
		SET status = $2, resolved_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING ` + claimColumns
	claim, err := scanClaim(tx.QueryRow(ctx, query, claimID, status, domain.ClaimStatusPending))
	if err == nil {
		return claim, nil
	}
	if err != ErrClaimNotFound {
		return nil, err
	}
	var existing domain.ClaimStatus
	checkErr := tx.QueryRow(ctx, `SELECT status FROM payment_claims WHERE id = $1`, claimID).Scan(&existing)
	if checkErr == pgx.ErrNoRows {
		return nil, ErrClaimNotFound
	}
	if checkErr != nil {
		return nil, checkErr
	}
	return nil, ErrClaimResolved
}
