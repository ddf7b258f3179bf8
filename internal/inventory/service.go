package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/types"
)

// LowStockVariant describes a variant that crossed the low stock
// threshold during a deduction.
type LowStockVariant struct {
	VariantID uuid.UUID
	ProductID uuid.UUID
	Title     string
	Quantity  int
}

// DeductionResult summarizes a settled order's stock movements.
type DeductionResult struct {
	Entries  []models.InventoryLedgerEntry
	LowStock []LowStockVariant
}

// DeductInput carries the snapshot lines to deduct for one order.
type DeductInput struct {
	StoreID   uuid.UUID
	OrderID   uuid.UUID
	LineItems []types.SnapshotLineItem
	Threshold int
}

// Service defines stock mutations driven by settlement.
type Service interface {
	DeductForOrder(ctx context.Context, tx *gorm.DB, input DeductInput) (*DeductionResult, error)
	Restock(ctx context.Context, tx *gorm.DB, storeID, orderID, variantID uuid.UUID, quantity int) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires an inventory service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// DeductForOrder decrements stock for every tracked line item, clamping
// at zero, and writes one ledger row per movement. A variant that
// vanished since checkout is skipped with a warning so the remaining
// lines still settle.
func (s *service) DeductForOrder(ctx context.Context, tx *gorm.DB, input DeductInput) (*DeductionResult, error) {
	if input.StoreID == uuid.Nil {
		return nil, fmt.Errorf("store id is required")
	}
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}

	repo := s.repo.WithTx(tx)
	result := &DeductionResult{}

	for _, line := range input.LineItems {
		if line.Quantity <= 0 {
			continue
		}

		adjustment, err := repo.AdjustStock(ctx, line.VariantID, -line.Quantity)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"order_id":   input.OrderID.String(),
					"variant_id": line.VariantID.String(),
				})
				s.logg.Warn(logCtx, "variant missing, line skipped during stock deduction")
				continue
			}
			return nil, err
		}
		if !adjustment.TrackInventory {
			continue
		}

		orderID := input.OrderID
		entry := models.InventoryLedgerEntry{
			StoreID:        input.StoreID,
			VariantID:      line.VariantID,
			OrderID:        &orderID,
			Reason:         enums.InventoryReasonOrderSettled,
			Delta:          adjustment.QuantityAfter - adjustment.QuantityBefore,
			QuantityBefore: adjustment.QuantityBefore,
			QuantityAfter:  adjustment.QuantityAfter,
		}
		if err := repo.CreateLedgerEntry(ctx, &entry); err != nil {
			return nil, err
		}
		result.Entries = append(result.Entries, entry)

		if crossedThreshold(adjustment, input.Threshold) {
			result.LowStock = append(result.LowStock, LowStockVariant{
				VariantID: adjustment.VariantID,
				ProductID: adjustment.ProductID,
				Title:     adjustment.Title,
				Quantity:  adjustment.QuantityAfter,
			})
			if err := repo.MarkLowStockNotified(ctx, adjustment.VariantID); err != nil {
				return nil, err
			}
		}

		if adjustment.QuantityBefore < line.Quantity {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"variant_id": line.VariantID.String(),
				"requested":  line.Quantity,
				"available":  adjustment.QuantityBefore,
			})
			s.logg.Warn(logCtx, "stock deduction clamped at zero")
		}
	}

	return result, nil
}

// Restock adds quantity back to a variant and records a refund ledger row.
func (s *service) Restock(ctx context.Context, tx *gorm.DB, storeID, orderID, variantID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("restock quantity must be positive")
	}

	repo := s.repo.WithTx(tx)
	adjustment, err := repo.AdjustStock(ctx, variantID, quantity)
	if err != nil {
		return err
	}

	oid := orderID
	entry := models.InventoryLedgerEntry{
		StoreID:        storeID,
		VariantID:      variantID,
		OrderID:        &oid,
		Reason:         enums.InventoryReasonRefund,
		Delta:          quantity,
		QuantityBefore: adjustment.QuantityBefore,
		QuantityAfter:  adjustment.QuantityAfter,
	}
	return repo.CreateLedgerEntry(ctx, &entry)
}

// crossedThreshold reports whether this adjustment took the variant
// from above the threshold to at-or-below it.
func crossedThreshold(adjustment *StockAdjustment, threshold int) bool {
	if threshold <= 0 {
		return false
	}
	return adjustment.QuantityBefore > threshold && adjustment.QuantityAfter <= threshold
}
