/**
 * @description
 * Catalog and order-settlement logic. The price of an order is always computed
 * server-side from the catalog rate, the requested quantity, and the account's
 * discount state; anything price-shaped in the request body is ignored. The
 * actual debit-plus-insert atomicity lives in the repository's SettleOrder.
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

var targetHandlePattern = regexp.MustCompile(`^[A-Za-z0-9._]{1,30}$`)

var perThousand = decimal.NewFromInt(1000)

// ListServices returns the active catalog.
func (s *Service) ListServices(ctx context.Context) ([]domain.CatalogService, error) {
	return s.repo.ListActiveServices(ctx)
}

// ComputeOrderPrice derives the settlement price for quantity units of a
// service: rate per 1000 units, scaled, discounted if the account has unlocked
// the referral discount, rounded to 2 decimal places.
func (s *Service) ComputeOrderPrice(svc *domain.CatalogService, quantity int, discountUnlocked bool) decimal.Decimal {
	price := svc.Rate.Mul(decimal.NewFromInt(int64(quantity))).Div(perThousand)
	if discountUnlocked {
		keep := decimal.NewFromInt(100 - s.settings.DiscountPercent).Div(decimal.NewFromInt(100))
		price = price.Mul(keep)
	}
	return price.Round(2)
}

// PlaceOrder validates the request, prices it, and settles it against the
// wallet. Returns the persisted order and the post-debit balance.
func (s *Service) PlaceOrder(ctx context.Context, accountID uuid.UUID, req domain.PlaceOrderRequest) (*domain.Order, decimal.Decimal, error) {
	if err := s.consumeRateLimit(ctx, "orders", accountID.String(), s.settings.OrderRateLimit, s.settings.OrderRateWindow); err != nil {
		return nil, decimal.Zero, err
	}

	target := strings.TrimPrefix(strings.TrimSpace(req.TargetHandle), "@")
	if !targetHandlePattern.MatchString(target) {
		return nil, decimal.Zero, fmt.Errorf("%w: invalid instagram username", ErrValidation)
	}

	account, err := s.repo.FindAccountByID(ctx, accountID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	svc, err := s.repo.FindServiceByID(ctx, req.ServiceID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if req.Quantity < svc.MinOrder || req.Quantity > svc.MaxOrder {
		return nil, decimal.Zero, fmt.Errorf("%w: quantity must be between %d and %d", ErrValidation, svc.MinOrder, svc.MaxOrder)
	}

	order := &domain.Order{
		OrderID:      generateOrderID(time.Now()),
		AccountID:    account.ID,
		ServiceID:    svc.ID,
		ServiceName:  svc.Name,
		TargetHandle: target,
		Quantity:     req.Quantity,
		Price:        s.ComputeOrderPrice(svc, req.Quantity, account.DiscountUnlocked),
		Status:       domain.OrderStatusProcessing,
	}

	balance, err := s.repo.SettleOrder(ctx, order)
	if err != nil {
		return nil, decimal.Zero, err
	}

	log.Printf("level=info component=service flow=orders msg=\"order settled\" order_id=%s account_uid=%s service_id=%d price=%s balance=%s",
		order.OrderID, account.UID, svc.ID, order.Price.StringFixed(2), balance.StringFixed(2))

	s.publishOperatorEvent(ctx, domain.EventOrderCreated, domain.OrderCreatedEvent{
		OrderID:      order.OrderID,
		AccountUID:   account.UID,
		ServiceName:  order.ServiceName,
		TargetHandle: order.TargetHandle,
		Quantity:     order.Quantity,
		Price:        order.Price,
		Timestamp:    time.Now().UTC(),
	})

	return order, balance, nil
}

// ListOrders returns the account's order history, newest first.
func (s *Service) ListOrders(ctx context.Context, accountID uuid.UUID) ([]domain.Order, error) {
	return s.repo.FindOrdersByAccountID(ctx, accountID)
}
