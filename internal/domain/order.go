/**
 * @description
 * Order and service-catalog domain models. An order is the persisted record of a
 * settled purchase: its price is a snapshot computed at creation time from the
 * catalog rate (and the account's discount state) and is never recomputed, even
 * if catalog prices change later.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus tracks fulfillment state. Orders are created as Processing and the
// core never transitions them further; fulfillment is an external concern.
type OrderStatus string

const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusFailed     OrderStatus = "Failed"
	OrderStatusPending    OrderStatus = "Pending"
)

// Order represents a purchased engagement package.
type Order struct {
	OrderID      string          `json:"order_id"` // e.g. "ORDER1718000000000X4QZ"
	AccountID    uuid.UUID       `json:"account_id"`
	ServiceID    int64           `json:"service_id"`
	ServiceName  string          `json:"service_name"`
	TargetHandle string          `json:"instagram_username"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"` // immutable snapshot
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CatalogService is a purchasable service as listed in the catalog. Rate is the
// price per 1000 units.
type CatalogService struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Rate         decimal.Decimal `json:"rate"`
	MinOrder     int             `json:"min_order"`
	MaxOrder     int             `json:"max_order"`
	DeliveryTime string          `json:"delivery_time"`
	Active       bool            `json:"active"`
}

// PlaceOrderRequest is the DTO for order placement. The client never supplies a
// price; it is recomputed server-side from the catalog rate and discount state.
type PlaceOrderRequest struct {
	ServiceID    int64  `json:"service_id"`
	TargetHandle string `json:"instagram_username"`
	Quantity     int    `json:"quantity"`
}
