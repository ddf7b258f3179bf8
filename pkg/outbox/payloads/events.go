package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftora/storefront-backend/pkg/enums"
)

// OrderSettledEvent is emitted exactly once when a pending order flips
// to paid.
type OrderSettledEvent struct {
	OrderID     uuid.UUID     `json:"order_id"`
	StoreID     uuid.UUID     `json:"store_id"`
	OrderNumber int           `json:"order_number"`
	Gateway     enums.Gateway `json:"gateway"`
	Email       string        `json:"email"`
	TotalCents  int           `json:"total_cents"`
	Currency    string        `json:"currency"`
	SettledAt   time.Time     `json:"settled_at"`
	Degraded    bool          `json:"degraded,omitempty"`
	Recovered   bool          `json:"recovered,omitempty"`
}

// PaymentFailedEvent records a gateway callback that resolved to failure.
type PaymentFailedEvent struct {
	OrderID     *uuid.UUID                  `json:"order_id,omitempty"`
	StoreID     uuid.UUID                   `json:"store_id"`
	Gateway     enums.Gateway               `json:"gateway"`
	Reason      enums.CheckoutFailureReason `json:"reason"`
	FailureCode string                      `json:"failure_code,omitempty"`
}

// OrderRecoveredEvent reports that the fallback builder reconstructed a
// missing order from the payment snapshot.
type OrderRecoveredEvent struct {
	OrderID          uuid.UUID     `json:"order_id"`
	StoreID          uuid.UUID     `json:"store_id"`
	PendingPaymentID uuid.UUID     `json:"pending_payment_id"`
	Gateway          enums.Gateway `json:"gateway"`
}

// SettlementDegradedEvent reports an order settled without ledger
// execution because the cart snapshot was missing.
type SettlementDegradedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	StoreID uuid.UUID `json:"store_id"`
	Reason  string    `json:"reason"`
}

// LowStockDetectedEvent asks the notification pipeline to alert the
// merchant about a variant that crossed the low stock threshold.
type LowStockDetectedEvent struct {
	StoreID   uuid.UUID `json:"store_id"`
	VariantID uuid.UUID `json:"variant_id"`
	ProductID uuid.UUID `json:"product_id"`
	Title     string    `json:"title"`
	Quantity  int       `json:"quantity"`
	Threshold int       `json:"threshold"`
}

// ShipmentRequestedEvent asks the worker to dispatch a shipment to the
// carrier outside the settlement transaction.
type ShipmentRequestedEvent struct {
	ShipmentID uuid.UUID `json:"shipment_id"`
	OrderID    uuid.UUID `json:"order_id"`
	StoreID    uuid.UUID `json:"store_id"`
}

// GiftCardDepletedEvent reports a gift card balance hitting zero during
// settlement.
type GiftCardDepletedEvent struct {
	GiftCardID uuid.UUID `json:"gift_card_id"`
	StoreID    uuid.UUID `json:"store_id"`
	OrderID    uuid.UUID `json:"order_id"`
}
