package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/types"
)

// PendingPayment tracks one redirect to a payment gateway. The gateway
// reference is what callbacks carry back, and the snapshot lets the
// recovery path rebuild the order if the order row went missing.
type PendingPayment struct {
	ID               uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID          uuid.UUID                  `gorm:"column:store_id;type:uuid;not null;index"`
	OrderID          *uuid.UUID                 `gorm:"column:order_id;type:uuid;index"`
	Gateway          enums.Gateway              `gorm:"column:gateway;type:payment_gateway;not null"`
	GatewayReference string                     `gorm:"column:gateway_reference;not null;uniqueIndex:uq_pending_payments_gateway_ref"`
	Status           enums.PendingPaymentStatus `gorm:"column:status;type:pending_payment_status;not null;default:'initiated'"`
	AmountCents      int                        `gorm:"column:amount_cents;not null"`
	Currency         string                     `gorm:"column:currency;not null;default:'USD'"`
	Snapshot         *types.OrderSnapshot       `gorm:"column:snapshot;type:jsonb"`
	FailureCode      *string                    `gorm:"column:failure_code"`
	ResolvedAt       *time.Time                 `gorm:"column:resolved_at"`
	CreatedAt        time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}
