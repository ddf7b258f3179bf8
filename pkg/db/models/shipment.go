package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/types"
)

// Shipment tracks the carrier-side fulfillment of an order.
type Shipment struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID         uuid.UUID            `gorm:"column:store_id;type:uuid;not null;index"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	Status          enums.ShipmentStatus `gorm:"column:status;type:shipment_status;not null;default:'pending'"`
	CarrierCode     *string              `gorm:"column:carrier_code"`
	TrackingNumber  *string              `gorm:"column:tracking_number"`
	TrackingURL     *string              `gorm:"column:tracking_url"`
	ShippingAddress *types.Address       `gorm:"column:shipping_address;type:jsonb"`
	DispatchedAt    *time.Time           `gorm:"column:dispatched_at"`
	DeliveredAt     *time.Time           `gorm:"column:delivered_at"`
	LastError       *string              `gorm:"column:last_error"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
