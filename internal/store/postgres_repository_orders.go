/**
 * @description
 * Catalog and order queries for the PostgreSQL repository. Settlement is the
 * interesting one: the order insert and the wallet debit commit or roll back as
 * a single transaction, so an order row can never exist without its debit.
 */

package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/instaboost/storefront-service/internal/domain"
)

// ListActiveServices returns the purchasable catalog sorted by category and name.
func (r *PostgresRepository) ListActiveServices(ctx context.Context) ([]domain.CatalogService, error) {
	query := `
		SELECT id, name, category, rate, min_order, max_order, delivery_time, active
		FROM services
		WHERE active = TRUE
		ORDER BY category, name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []domain.CatalogService
	for rows.Next() {
		var svc domain.CatalogService
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Category, &svc.Rate, &svc.MinOrder, &svc.MaxOrder, &svc.DeliveryTime, &svc.Active); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}

// FindServiceByID retrieves one active catalog service.
func (r *PostgresRepository) FindServiceByID(ctx context.Context, id int64) (*domain.CatalogService, error) {
	query := `
		SELECT id, name, category, rate, min_order, max_order, delivery_time, active
		FROM services
		WHERE id = $1 AND active = TRUE
	`
	var svc domain.CatalogService
	err := r.db.QueryRow(ctx, query, id).Scan(&svc.ID, &svc.Name, &svc.Category, &svc.Rate, &svc.MinOrder, &svc.MaxOrder, &svc.DeliveryTime, &svc.Active)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &svc, nil
}

// SettleOrder debits the order price and inserts the order row in one
// transaction. The debit reuses the conditional-update guard, so an order whose
// price exceeds the balance fails with ErrInsufficientFunds and persists nothing.
func (r *PostgresRepository) SettleOrder(ctx context.Context, order *domain.Order) (decimal.Decimal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	defer tx.Rollback(ctx)

	var balance decimal.Decimal
	err = tx.QueryRow(ctx,
		`UPDATE accounts SET balance = balance - $1 WHERE id = $2 AND balance >= $1 RETURNING balance`,
		order.Price, order.AccountID,
	).Scan(&balance)
	if err != nil {
		if err != pgx.ErrNoRows {
			return decimal.Zero, err
		}
		var exists bool
		if checkErr := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, order.AccountID).Scan(&exists); checkErr != nil {
			return decimal.Zero, checkErr
		}
		if !exists {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, ErrInsufficientFunds
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (order_id, account_id, service_id, service_name, instagram_username, quantity, price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`,
		order.OrderID, order.AccountID, order.ServiceID, order.ServiceName,
		order.TargetHandle, order.Quantity, order.Price, order.Status,
	).Scan(&order.CreatedAt)
	if err != nil {
		return decimal.Zero, err
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// FindOrdersByAccountID returns an account's orders, newest first.
func (r *PostgresRepository) FindOrdersByAccountID(ctx context.Context, accountID uuid.UUID) ([]domain.Order, error) {
	query := `
		SELECT order_id, account_id, service_id, service_name, instagram_username, quantity, price, status, created_at
		FROM orders
		WHERE account_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.OrderID, &o.AccountID, &o.ServiceID, &o.ServiceName, &o.TargetHandle, &o.Quantity, &o.Price, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
