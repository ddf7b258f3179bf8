package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/types"
)

// Order is the settled (or settling) record of a checkout. The cart
// snapshot is frozen at redirect time so the ledger never depends on
// live catalog state.
type Order struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID           uuid.UUID                 `gorm:"column:store_id;type:uuid;not null;index"`
	OrderNumber       int                       `gorm:"column:order_number;not null"`
	CustomerID        *uuid.UUID                `gorm:"column:customer_id;type:uuid"`
	Email             string                    `gorm:"column:email;not null"`
	FinancialStatus   enums.FinancialStatus     `gorm:"column:financial_status;type:financial_status;not null;default:'pending'"`
	FulfillmentStatus enums.FulfillmentStatus   `gorm:"column:fulfillment_status;type:fulfillment_status;not null;default:'unfulfilled'"`
	Currency          string                    `gorm:"column:currency;not null;default:'USD'"`
	SubtotalCents     int                       `gorm:"column:subtotal_cents;not null;default:0"`
	DiscountCents     int                       `gorm:"column:discount_cents;not null;default:0"`
	ShippingCents     int                       `gorm:"column:shipping_cents;not null;default:0"`
	TaxCents          int                       `gorm:"column:tax_cents;not null;default:0"`
	TotalCents        int                       `gorm:"column:total_cents;not null;default:0"`
	GiftCardCents     int                       `gorm:"column:gift_card_cents;not null;default:0"`
	StoreCreditCents  int                       `gorm:"column:store_credit_cents;not null;default:0"`
	AppliedDiscounts  types.AppliedDiscountList `gorm:"column:applied_discounts;type:jsonb"`
	Snapshot          *types.OrderSnapshot      `gorm:"column:snapshot;type:jsonb"`
	PaymentMetadata   *types.PaymentMetadata    `gorm:"column:payment_metadata;type:jsonb"`
	ShippingAddress   *types.Address            `gorm:"column:shipping_address;type:jsonb"`
	BillingAddress    *types.Address            `gorm:"column:billing_address;type:jsonb"`
	ShippingLine      *types.ShippingLine       `gorm:"column:shipping_line;type:jsonb"`
	IsRecovered       bool                      `gorm:"column:is_recovered;not null;default:false"`
	SettledAt         *time.Time                `gorm:"column:settled_at"`
	LineItems         []OrderLineItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLineItem is one purchased line, denormalized from the snapshot
// at settlement time.
type OrderLineItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	StoreID        uuid.UUID `gorm:"column:store_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	VariantID      uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	Title          string    `gorm:"column:title;not null"`
	VariantTitle   *string   `gorm:"column:variant_title"`
	SKU            *string   `gorm:"column:sku"`
	Quantity       int       `gorm:"column:quantity;not null"`
	UnitPriceCents int       `gorm:"column:unit_price_cents;not null"`
	LineTotalCents int       `gorm:"column:line_total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
