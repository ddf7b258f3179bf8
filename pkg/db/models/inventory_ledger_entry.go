package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftora/storefront-backend/pkg/enums"
)

// InventoryLedgerEntry is an append-only record of a stock movement.
// QuantityBefore and QuantityAfter come from the same conditional
// UPDATE that moved the stock, so the ledger always reconciles.
type InventoryLedgerEntry struct {
	ID             uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StoreID        uuid.UUID                   `gorm:"column:store_id;type:uuid;not null;index"`
	VariantID      uuid.UUID                   `gorm:"column:variant_id;type:uuid;not null;index"`
	OrderID        *uuid.UUID                  `gorm:"column:order_id;type:uuid"`
	Reason         enums.InventoryChangeReason `gorm:"column:reason;type:inventory_change_reason;not null"`
	Delta          int                         `gorm:"column:delta;not null"`
	QuantityBefore int                         `gorm:"column:quantity_before;not null"`
	QuantityAfter  int                         `gorm:"column:quantity_after;not null"`
	Note           *string                     `gorm:"column:note"`
	CreatedAt      time.Time                   `gorm:"column:created_at;autoCreateTime"`
}
