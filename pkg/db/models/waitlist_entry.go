package models

import (
	"time"

	"github.com/google/uuid"
)

// WaitlistEntry records a customer waiting on a sold-out variant.
type WaitlistEntry struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID    uuid.UUID  `gorm:"column:store_id;type:uuid;not null;index"`
	VariantID  uuid.UUID  `gorm:"column:variant_id;type:uuid;not null;index"`
	Email      string     `gorm:"column:email;not null"`
	NotifiedAt *time.Time `gorm:"column:notified_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
