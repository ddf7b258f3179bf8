package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateShipment     OutboxAggregateType = "shipment"
	AggregateGiftCard     OutboxAggregateType = "gift_card"
	AggregateInventory    OutboxAggregateType = "inventory"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateShipment,
	AggregateGiftCard,
	AggregateInventory,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderSettled      OutboxEventType = "order_settled"
	EventOrderRecovered    OutboxEventType = "order_recovered"
	EventPaymentFailed     OutboxEventType = "payment_failed"
	EventSettlementDegrade OutboxEventType = "settlement_degraded"
	EventLowStockDetected  OutboxEventType = "low_stock_detected"
	EventShipmentRequested OutboxEventType = "shipment_requested"
	EventGiftCardDepleted  OutboxEventType = "gift_card_depleted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderSettled,
	EventOrderRecovered,
	EventPaymentFailed,
	EventSettlementDegrade,
	EventLowStockDetected,
	EventShipmentRequested,
	EventGiftCardDepleted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
