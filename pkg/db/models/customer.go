package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/types"
)

// Customer is a storefront buyer scoped to a single store.
type Customer struct {
	ID                uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID           uuid.UUID      `gorm:"column:store_id;type:uuid;not null;index"`
	Email             string         `gorm:"column:email;not null"`
	FirstName         *string        `gorm:"column:first_name"`
	LastName          *string        `gorm:"column:last_name"`
	Phone             *string        `gorm:"column:phone"`
	CreditCents       int            `gorm:"column:credit_cents;not null;default:0"`
	DefaultAddress    *types.Address `gorm:"column:default_address;type:jsonb"`
	AcceptsMarketing  bool           `gorm:"column:accepts_marketing;not null;default:false"`
	OrdersCount       int            `gorm:"column:orders_count;not null;default:0"`
	TotalSpentCents   int64          `gorm:"column:total_spent_cents;not null;default:0"`
	LastOrderAt       *time.Time     `gorm:"column:last_order_at"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// CustomerCreditTransaction is an append-only record of a store credit
// balance movement. BalanceAfterCents is captured from the same UPDATE
// that moved the balance.
type CustomerCreditTransaction struct {
	ID                uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID           uuid.UUID                   `gorm:"column:store_id;type:uuid;not null;index"`
	CustomerID        uuid.UUID                   `gorm:"column:customer_id;type:uuid;not null;index"`
	OrderID           *uuid.UUID                  `gorm:"column:order_id;type:uuid"`
	Type              enums.CreditTransactionType `gorm:"column:type;type:credit_transaction_type;not null"`
	AmountCents       int                         `gorm:"column:amount_cents;not null"`
	BalanceAfterCents int                         `gorm:"column:balance_after_cents;not null"`
	Note              *string                     `gorm:"column:note"`
	CreatedAt         time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
