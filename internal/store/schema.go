/**
 * @description
 * Idempotent schema bootstrap and default-catalog seeding, run once at startup.
 * The constraints here back the ledger invariants: the CHECK on balance is the
 * database's last line of defense against overdraft, the unique index on
 * utr_number blocks duplicate deposit claims, and the partial unique index on
 * referred_account_id blocks double referral attribution.
 */

package store

import (
	"context"
	"fmt"
	"log"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		instagram_username TEXT NOT NULL UNIQUE,
		credential_hash TEXT NOT NULL,
		balance NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		bonus_claimed BOOLEAN NOT NULL DEFAULT FALSE,
		discount_unlocked BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS login_logs (
		id UUID PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES accounts(id),
		instagram_username TEXT NOT NULL,
		login_count INTEGER NOT NULL CHECK (login_count >= 1),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		rate NUMERIC(12,2) NOT NULL CHECK (rate >= 0),
		min_order INTEGER NOT NULL CHECK (min_order >= 1),
		max_order INTEGER NOT NULL CHECK (max_order >= min_order),
		delivery_time TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id TEXT PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES accounts(id),
		service_id BIGINT NOT NULL REFERENCES services(id),
		service_name TEXT NOT NULL,
		instagram_username TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		price NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		status TEXT NOT NULL DEFAULT 'Processing',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS orders_account_created_idx ON orders (account_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS payment_claims (
		id UUID PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES accounts(id),
		amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		utr_number TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		resolved_at TIMESTAMPTZ,
		CONSTRAINT payment_claims_utr_number_key UNIQUE (utr_number)
	)`,
	`CREATE INDEX IF NOT EXISTS payment_claims_account_created_idx ON payment_claims (account_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS referral_grants (
		id UUID PRIMARY KEY,
		referrer_account_id UUID NOT NULL REFERENCES accounts(id),
		referral_code TEXT NOT NULL UNIQUE,
		referred_account_id UUID REFERENCES accounts(id),
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS referral_grants_referred_account_idx
		ON referral_grants (referred_account_id) WHERE referred_account_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS referral_grants_primary_idx
		ON referral_grants (referrer_account_id) WHERE referred_account_id IS NULL`,
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema bootstrap failed: %w", err)
		}
	}
	return nil
}

type seedService struct {
	name         string
	category     string
	rate         string
	minOrder     int
	maxOrder     int
	deliveryTime string
}

// Default catalog shipped with the storefront. Rates are per 1000 units.
var defaultServices = []seedService{
	{"Instagram Followers - Indian", "Followers", "6.00", 100, 100000, "0-6 hours"},
	{"Instagram Followers - USA", "Followers", "7.00", 100, 50000, "0-12 hours"},
	{"Instagram Followers - HQ Non Drop", "Followers", "11.00", 100, 25000, "0-24 hours"},
	{"Instagram Followers - Global Mix", "Followers", "4.50", 100, 200000, "0-6 hours"},
	{"Instagram Likes - Bot Likes", "Likes", "2.00", 50, 100000, "0-1 hour"},
	{"Instagram Likes - Non Drop", "Likes", "4.50", 50, 50000, "0-3 hours"},
	{"Instagram Likes - Only Girl Accounts", "Likes", "6.00", 50, 25000, "0-6 hours"},
	{"Instagram Likes - Indian Real", "Likes", "3.50", 50, 30000, "0-2 hours"},
	{"Instagram Video Views - Fast", "Views", "1.20", 100, 1000000, "0-30 minutes"},
	{"Instagram Story Views - Premium", "Views", "2.80", 100, 50000, "0-2 hours"},
	{"Instagram Reel Views - High Quality", "Views", "1.50", 100, 500000, "0-1 hour"},
	{"Instagram Comments - Random Positive", "Comments", "8.00", 5, 1000, "1-6 hours"},
	{"Instagram Comments - Custom Text", "Comments", "15.00", 5, 500, "2-24 hours"},
	{"Instagram Comments - Emoji Only", "Comments", "5.00", 10, 2000, "0-3 hours"},
}

// SeedDefaultServices populates the catalog on first boot. A non-empty catalog
// is left untouched so operator edits survive restarts.
func (r *PostgresRepository) SeedDefaultServices(ctx context.Context) error {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM services`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		log.Printf("level=info component=store msg=\"service catalog already seeded\" services=%d", count)
		return nil
	}

	for _, svc := range defaultServices {
		_, err := r.db.Exec(ctx, `
			INSERT INTO services (name, category, rate, min_order, max_order, delivery_time, active)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		`, svc.name, svc.category, svc.rate, svc.minOrder, svc.maxOrder, svc.deliveryTime)
		if err != nil {
			return fmt.Errorf("seeding service %q failed: %w", svc.name, err)
		}
	}
	log.Printf("level=info component=store msg=\"default service catalog seeded\" services=%d", len(defaultServices))
	return nil
}
