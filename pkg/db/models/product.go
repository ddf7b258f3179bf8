package models

import (
	"time"

	"github.com/google/uuid"
)

// Product represents the canonical storefront listing.
type Product struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID   uuid.UUID        `gorm:"column:store_id;type:uuid;not null;index"`
	Title     string           `gorm:"column:title;not null"`
	Handle    string           `gorm:"column:handle;not null"`
	BodyHTML  *string          `gorm:"column:body_html"`
	IsActive  bool             `gorm:"column:is_active;not null;default:true"`
	Variants  []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// ProductVariant is the purchasable unit. Stock is tracked here and
// only ever mutated through conditional UPDATEs.
type ProductVariant struct {
	ID                uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID         uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index"`
	StoreID           uuid.UUID  `gorm:"column:store_id;type:uuid;not null;index"`
	Title             string     `gorm:"column:title;not null"`
	SKU               *string    `gorm:"column:sku"`
	PriceCents        int        `gorm:"column:price_cents;not null"`
	CompareAtCents    *int       `gorm:"column:compare_at_cents"`
	StockQuantity     int        `gorm:"column:stock_quantity;not null;default:0"`
	TrackInventory    bool       `gorm:"column:track_inventory;not null;default:true"`
	AllowBackorder    bool       `gorm:"column:allow_backorder;not null;default:false"`
	LowStockNotifiedAt *time.Time `gorm:"column:low_stock_notified_at"`
	CreatedAt         time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
