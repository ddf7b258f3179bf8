package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/craftora/storefront-backend/pkg/enums"
)

// Influencer is an affiliate whose referral code earns commission on
// settled orders. The aggregate totals must always equal the sum of the
// influencer's sale rows.
type Influencer struct {
	ID                   uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID              uuid.UUID            `gorm:"column:store_id;type:uuid;not null;index"`
	Name                 string               `gorm:"column:name;not null"`
	Email                *string              `gorm:"column:email"`
	Code                 string               `gorm:"column:code;not null;uniqueIndex:uq_influencers_store_code,composite:store_id"`
	CommissionType       enums.CommissionType `gorm:"column:commission_type;type:commission_type;not null"`
	CommissionRate       decimal.Decimal      `gorm:"column:commission_rate;type:numeric(6,3);not null"`
	IsActive             bool                 `gorm:"column:is_active;not null;default:true"`
	TotalSalesCents      int                  `gorm:"column:total_sales_cents;not null;default:0"`
	TotalCommissionCents int                  `gorm:"column:total_commission_cents;not null;default:0"`
	OrdersCount          int                  `gorm:"column:orders_count;not null;default:0"`
	CreatedAt            time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// InfluencerSale records the commission earned on one settled order.
type InfluencerSale struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID         uuid.UUID       `gorm:"column:store_id;type:uuid;not null;index"`
	InfluencerID    uuid.UUID       `gorm:"column:influencer_id;type:uuid;not null;index"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uq_influencer_sales_order"`
	OrderTotalCents int             `gorm:"column:order_total_cents;not null"`
	CommissionCents int             `gorm:"column:commission_cents;not null"`
	RateApplied     decimal.Decimal `gorm:"column:rate_applied;type:numeric(6,3);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}
