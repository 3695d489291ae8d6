// Package notify implements the notification dispatcher (component M):
// it turns a deal status change into a message on the "events:deal" Redis
// pub/sub channel. This package never talks to a notification provider
// directly — it only publishes. cmd/bot-notify-bridge subscribes to the
// same channel but forwards only events whose payload carries a
// telegram_user_id, which the payloads published here do not include.
package notify

import (
	"context"

	"github.com/sponsorlink/dealcore/internal/events"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DealStream is the Redis pub/sub channel carrying every deal lifecycle
// notification. cmd/bot-notify-bridge subscribes to this same name.
const DealStream = "events:deal"

// Dispatcher publishes deal lifecycle notifications. A nil *Dispatcher is
// valid and silently drops every call, so callers that run without a
// configured Redis connection (most tests) don't need a stub.
type Dispatcher struct {
	publisher events.Publisher
	log       *zap.Logger
}

func New(publisher events.Publisher, log *zap.Logger) *Dispatcher {
	return &Dispatcher{publisher: publisher, log: log}
}

// DealStatusChanged publishes one status-transition notification. Errors
// are logged, not returned — the transition already committed, so there
// is nothing left to roll back on a publish failure.
func (d *Dispatcher) DealStatusChanged(ctx context.Context, dealID uuid.UUID, oldStatus, newStatus, eventType string) {
	if d == nil || d.publisher == nil {
		return
	}
	err := d.publisher.Publish(ctx, DealStream, events.Event{
		Type: events.EventDealStatusChanged,
		Payload: map[string]any{
			"deal_id":    dealID.String(),
			"event_type": eventType,
			"old_status": oldStatus,
			"new_status": newStatus,
		},
	})
	if err != nil {
		d.log.Warn("failed to publish deal status notification",
			zap.String("deal_id", dealID.String()), zap.Error(err))
	}
}
