package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/types"
)

// Notification is one queued or delivered message to a merchant or
// customer. Delivery failures never propagate back to settlement.
type Notification struct {
	ID        uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID   uuid.UUID                `gorm:"column:store_id;type:uuid;not null;index"`
	Type      enums.NotificationType   `gorm:"column:type;type:notification_type;not null"`
	Status    enums.NotificationStatus `gorm:"column:status;type:notification_status;not null;default:'pending'"`
	Recipient string                   `gorm:"column:recipient;not null"`
	Subject   *string                  `gorm:"column:subject"`
	OrderID   *uuid.UUID               `gorm:"column:order_id;type:uuid"`
	VariantID *uuid.UUID               `gorm:"column:variant_id;type:uuid"`
	Payload   *types.JSONMap           `gorm:"column:payload;type:jsonb"`
	SentAt    *time.Time               `gorm:"column:sent_at"`
	LastError *string                  `gorm:"column:last_error"`
	CreatedAt time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
