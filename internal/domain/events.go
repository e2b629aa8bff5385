/**
 * @description
 * Message payloads exchanged with the operator channel over RabbitMQ. Outbound
 * events notify the operator that something needs attention (a filed claim, a new
 * order, a claimed bonus); the inbound decision payload carries the operator's
 * approve/reject verdict for a payment claim.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Routing keys on the storefront.events exchange.
const (
	EventOrderCreated   = "operator.order.created"
	EventPaymentFiled   = "operator.payment.filed"
	EventBonusClaimed   = "operator.bonus.claimed"
	DecisionApprovedKey = "operator.decision.approved"
	DecisionRejectedKey = "operator.decision.rejected"
)

// OrderCreatedEvent is published after an order settles.
type OrderCreatedEvent struct {
	OrderID      string          `json:"order_id"`
	AccountUID   string          `json:"account_uid"`
	ServiceName  string          `json:"service_name"`
	TargetHandle string          `json:"instagram_username"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	Timestamp    time.Time       `json:"timestamp"`
}

// PaymentFiledEvent is published when a deposit claim is filed. The operator
// uses the claim id to approve or reject it later.
type PaymentFiledEvent struct {
	ClaimID         uuid.UUID       `json:"claim_id"`
	AccountUID      string          `json:"account_uid"`
	Amount          decimal.Decimal `json:"amount"`
	ReferenceNumber string          `json:"utr_number"`
	Method          string          `json:"payment_method"`
	Timestamp       time.Time       `json:"timestamp"`
}

// BonusClaimedEvent is published when a signup bonus is credited.
type BonusClaimedEvent struct {
	AccountUID string          `json:"account_uid"`
	Amount     decimal.Decimal `json:"amount"`
	Timestamp  time.Time       `json:"timestamp"`
}

// OperatorDecision is the inbound payload on operator.decision.* routing keys.
type OperatorDecision struct {
	ClaimID uuid.UUID `json:"claim_id"`
	Actor   string    `json:"actor,omitempty"`
}
