package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
)

// StockAdjustment is the before/after view returned by the conditional
// stock UPDATE.
type StockAdjustment struct {
	VariantID      uuid.UUID `gorm:"column:id"`
	ProductID      uuid.UUID `gorm:"column:product_id"`
	Title          string    `gorm:"column:title"`
	QuantityBefore int       `gorm:"column:quantity_before"`
	QuantityAfter  int       `gorm:"column:quantity_after"`
	TrackInventory bool      `gorm:"column:track_inventory"`
}

// Repository manages persistence for variant stock and its ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) (*StockAdjustment, error)
	CreateLedgerEntry(ctx context.Context, entry *models.InventoryLedgerEntry) error
	MarkLowStockNotified(ctx context.Context, variantID uuid.UUID) error
	ListLedgerByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.InventoryLedgerEntry, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// AdjustStock applies delta to the variant's stock inside one atomic
// statement, clamping at zero. The row lock on prev keeps concurrent
// settlements from double-spending the same units.
func (r *repository) AdjustStock(ctx context.Context, variantID uuid.UUID, delta int) (*StockAdjustment, error) {
	const query = `
		WITH prev AS (
			SELECT id, stock_quantity
			FROM product_variants
			WHERE id = ?
			FOR UPDATE
		)
		UPDATE product_variants v
		SET stock_quantity = GREATEST(v.stock_quantity + ?, 0),
		    updated_at = now()
		FROM prev
		WHERE v.id = prev.id
		RETURNING v.id, v.product_id, v.title,
		          prev.stock_quantity AS quantity_before,
		          v.stock_quantity AS quantity_after,
		          v.track_inventory`

	var adjustment StockAdjustment
	result := r.db.WithContext(ctx).Raw(query, variantID, delta).Scan(&adjustment)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &adjustment, nil
}

func (r *repository) CreateLedgerEntry(ctx context.Context, entry *models.InventoryLedgerEntry) error {
	if entry == nil {
		return errors.New("ledger entry required")
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) MarkLowStockNotified(ctx context.Context, variantID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.ProductVariant{}).
		Where("id = ?", variantID).
		Update("low_stock_notified_at", gorm.Expr("now()")).Error
}

func (r *repository) ListLedgerByOrderID(ctx context.Context, orderID uuid.UUID) ([]models.InventoryLedgerEntry, error) {
	var entries []models.InventoryLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
