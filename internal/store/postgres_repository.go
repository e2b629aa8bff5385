/**
 * @description
 * PostgreSQL implementation of the `Repository` interface: accounts, login
 * logs, and the shared error/scan plumbing. Order, payment-claim, and referral
 * queries live in the sibling postgres_repository_*.go files; every wallet
 * mutation happens inside the transactional method owning its business event,
 * as a conditional UPDATE checked by affected rows. There is deliberately no
 * SELECT-then-UPDATE anywhere in this package.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: PostgreSQL driver and pool.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/instaboost/storefront-service/internal/domain"
)

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrDuplicateHandle      = errors.New("handle already registered")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrServiceNotFound      = errors.New("service not found")
	ErrDuplicateReference   = errors.New("reference number already filed")
	ErrClaimNotFound        = errors.New("payment claim not found")
	ErrClaimResolved        = errors.New("payment claim already resolved")
	ErrBonusClaimed         = errors.New("signup bonus already claimed")
	ErrReferralCodeNotFound = errors.New("referral code not found")
	ErrAlreadyReferred      = errors.New("account already consumed a referral code")
	ErrDiscountClaimed      = errors.New("discount reward already claimed")
)

const uniqueViolationCode = "23505"

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolationCode && (constraint == "" || pgErr.ConstraintName == constraint)
}

const accountColumns = `id, uid, instagram_username, credential_hash, balance, bonus_claimed, discount_unlocked, created_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var account domain.Account
	err := row.Scan(
		&account.ID,
		&account.UID,
		&account.InstagramHandle,
		&account.CredentialHash,
		&account.Balance,
		&account.BonusClaimed,
		&account.DiscountUnlocked,
		&account.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// FindAccountByID retrieves an account by its internal UUID.
func (r *PostgresRepository) FindAccountByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRow(ctx, query, id))
}

// FindAccountByHandle retrieves an account by its Instagram handle, case-insensitively.
func (r *PostgresRepository) FindAccountByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(btrim(instagram_username)) = lower(btrim($1))`
	return scanAccount(r.db.QueryRow(ctx, query, handle))
}

// CreateAccount inserts a new account with a zero balance.
func (r *PostgresRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, uid, instagram_username, credential_hash, balance, bonus_claimed, discount_unlocked)
		VALUES ($1, $2, $3, $4, $5, FALSE, FALSE)
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query,
		account.ID, account.UID, account.InstagramHandle, account.CredentialHash, account.Balance,
	).Scan(&account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrDuplicateHandle
		}
		return err
	}
	return nil
}

// RecordLogin appends a login-log row and returns the new login count for the account.
func (r *PostgresRepository) RecordLogin(ctx context.Context, accountID uuid.UUID, handle string) (int, error) {
	query := `
		INSERT INTO login_logs (id, account_id, instagram_username, login_count)
		VALUES ($1, $2, $3, (SELECT COUNT(*) + 1 FROM login_logs WHERE account_id = $2))
		RETURNING login_count
	`
	var count int
	if err := r.db.QueryRow(ctx, query, uuid.New(), accountID, handle).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
