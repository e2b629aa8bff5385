package app

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/instaboost/storefront-service/internal/domain"
	"github.com/instaboost/storefront-service/internal/store"
)

// OperatorDecisionConsumer applies asynchronous operator verdicts on payment
// claims delivered over RabbitMQ. Each handler returns true to ack and false
// to re-queue, matching the consumer contract in pkg/rabbitmq.
type OperatorDecisionConsumer struct {
	service *Service
}

func NewOperatorDecisionConsumer(service *Service) *OperatorDecisionConsumer {
	return &OperatorDecisionConsumer{service: service}
}

func (c *OperatorDecisionConsumer) HandleApproved(body []byte) bool {
	return c.handleDecision(body, true)
}

func (c *OperatorDecisionConsumer) HandleRejected(body []byte) bool {
	return c.handleDecision(body, false)
}

func (c *OperatorDecisionConsumer) handleDecision(body []byte, approve bool) bool {
	var decision domain.OperatorDecision
	if err := json.Unmarshal(body, &decision); err != nil {
		log.Printf("operator-consumer: failed to unmarshal payload: %v", err)
		return true
	}

	if decision.ClaimID == uuid.Nil {
		log.Printf("operator-consumer: missing claim id in decision %+v", decision)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	if approve {
		_, err = c.service.ApproveClaim(ctx, decision.ClaimID, decision.Actor)
	} else {
		_, err = c.service.RejectClaim(ctx, decision.ClaimID, decision.Actor)
	}
	if err != nil {
		// An unknown or already-resolved claim is final; re-delivery cannot fix it.
		if errors.Is(err, store.ErrClaimNotFound) || errors.Is(err, store.ErrClaimResolved) {
			log.Printf("operator-consumer: dropping decision for claim %s: %v", decision.ClaimID, err)
			return true
		}
		log.Printf("operator-consumer: processing error for claim %s: %v", decision.ClaimID, err)
		return false
	}

	return true
}
