package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/craftora/storefront-backend/internal/notifications"
	"github.com/craftora/storefront-backend/internal/shipping"
	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/outbox"
	"github.com/craftora/storefront-backend/pkg/outbox/idempotency"
	"github.com/craftora/storefront-backend/pkg/outbox/payloads"
)

const domainEventConsumer = "domain-events-worker"

// Consumer drains the domain event subscription and fans events out to
// the notification and shipping services. Handlers run at-least-once;
// the Redis marker keeps redeliveries from double-running a handler
// that already completed.
type Consumer struct {
	subscription  *pubsub.Subscriber
	idempotency   *idempotency.Manager
	notifications notifications.Service
	shipping      shipping.Service
	logg          *logger.Logger
}

// NewConsumer builds the domain event consumer.
func NewConsumer(subscription *pubsub.Subscriber, manager *idempotency.Manager, notificationService notifications.Service, shippingService shipping.Service, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if notificationService == nil {
		return nil, fmt.Errorf("notification service required")
	}
	if shippingService == nil {
		return nil, fmt.Errorf("shipping service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription:  subscription,
		idempotency:   manager,
		notifications: notificationService,
		shipping:      shippingService,
		logg:          logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	handler, ok := c.handlerFor(enums.OutboxEventType(eventType))
	if !ok {
		c.logg.Info(logCtx, "no handler for event type, skipping")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id": envelope.EventID,
		"store_id": envelope.StoreID.String(),
	})

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, domainEventConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := handler(ctx, envelope.Data); err != nil {
		c.logg.Error(logCtx, "event handling failed", err)
		// Clear the marker so a redelivery gets another shot.
		_ = c.idempotency.Delete(ctx, domainEventConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) handlerFor(eventType enums.OutboxEventType) (func(context.Context, json.RawMessage) error, bool) {
	switch eventType {
	case enums.EventOrderSettled:
		return c.handleOrderSettled, true
	case enums.EventPaymentFailed:
		return decodeInto(c.notifications.HandlePaymentFailed), true
	case enums.EventLowStockDetected:
		return decodeInto(c.notifications.HandleLowStock), true
	case enums.EventShipmentRequested:
		return decodeInto(c.shipping.HandleShipmentRequested), true
	default:
		return nil, false
	}
}

// handleOrderSettled fans one event out to both confirmation email and
// shipment creation. Both run so a notification failure cannot starve
// fulfillment; errors are combined and the event redelivered.
func (c *Consumer) handleOrderSettled(ctx context.Context, data json.RawMessage) error {
	var event payloads.OrderSettledEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("decode order_settled payload: %w", err)
	}

	var errs error
	if err := c.notifications.HandleOrderSettled(ctx, &event); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("order confirmation: %w", err))
	}
	if err := c.shipping.RequestForOrder(ctx, &event); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("shipment request: %w", err))
	}
	return errs
}

func decodeInto[T any](handle func(context.Context, *T) error) func(context.Context, json.RawMessage) error {
	return func(ctx context.Context, data json.RawMessage) error {
		var event T
		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		return handle(ctx, &event)
	}
}
