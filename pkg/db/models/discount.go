package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftora/storefront-backend/pkg/enums"
)

// Discount is a code-based discount with optional usage caps.
type Discount struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID      uuid.UUID          `gorm:"column:store_id;type:uuid;not null;index"`
	Code         string             `gorm:"column:code;not null;uniqueIndex:uq_discounts_store_code,composite:store_id"`
	Type         enums.DiscountType `gorm:"column:type;type:discount_type;not null"`
	Value        int                `gorm:"column:value;not null"`
	UsageCount   int                `gorm:"column:usage_count;not null;default:0"`
	UsageLimit   *int               `gorm:"column:usage_limit"`
	MinSpendCents *int              `gorm:"column:min_spend_cents"`
	StartsAt     *time.Time         `gorm:"column:starts_at"`
	EndsAt       *time.Time         `gorm:"column:ends_at"`
	IsActive     bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// AutomaticDiscount applies without a code when its conditions match.
type AutomaticDiscount struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID       uuid.UUID          `gorm:"column:store_id;type:uuid;not null;index"`
	Title         string             `gorm:"column:title;not null"`
	Type          enums.DiscountType `gorm:"column:type;type:discount_type;not null"`
	Value         int                `gorm:"column:value;not null"`
	UsageCount    int                `gorm:"column:usage_count;not null;default:0"`
	MinSpendCents *int               `gorm:"column:min_spend_cents"`
	StartsAt      *time.Time         `gorm:"column:starts_at"`
	EndsAt        *time.Time         `gorm:"column:ends_at"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
