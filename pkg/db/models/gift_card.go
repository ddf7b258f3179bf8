package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftora/storefront-backend/pkg/enums"
)

// GiftCard holds a prepaid balance. The code is stored hashed; only
// the last four characters survive in plaintext for support lookups.
type GiftCard struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID      uuid.UUID            `gorm:"column:store_id;type:uuid;not null;index"`
	CodeHash     string               `gorm:"column:code_hash;not null;uniqueIndex:uq_gift_cards_code_hash"`
	CodeLast4    string               `gorm:"column:code_last4;not null"`
	Status       enums.GiftCardStatus `gorm:"column:status;type:gift_card_status;not null;default:'active'"`
	InitialCents int                  `gorm:"column:initial_cents;not null"`
	BalanceCents int                  `gorm:"column:balance_cents;not null"`
	CustomerID   *uuid.UUID           `gorm:"column:customer_id;type:uuid"`
	ExpiresAt    *time.Time           `gorm:"column:expires_at"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// GiftCardTransaction is an append-only record of a balance movement.
type GiftCardTransaction struct {
	ID                uuid.UUID                     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID           uuid.UUID                     `gorm:"column:store_id;type:uuid;not null;index"`
	GiftCardID        uuid.UUID                     `gorm:"column:gift_card_id;type:uuid;not null;index"`
	OrderID           *uuid.UUID                    `gorm:"column:order_id;type:uuid"`
	Type              enums.GiftCardTransactionType `gorm:"column:type;type:gift_card_transaction_type;not null"`
	AmountCents       int                           `gorm:"column:amount_cents;not null"`
	BalanceAfterCents int                           `gorm:"column:balance_after_cents;not null"`
	CreatedAt         time.Time                     `gorm:"column:created_at;autoCreateTime"`
}
