package inventory

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/types"
)

type fakeRepo struct {
	stock    map[uuid.UUID]int
	tracked  map[uuid.UUID]bool
	entries  []models.InventoryLedgerEntry
	notified []uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		stock:   make(map[uuid.UUID]int),
		tracked: make(map[uuid.UUID]bool),
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) AdjustStock(_ context.Context, variantID uuid.UUID, delta int) (*StockAdjustment, error) {
	before, ok := f.stock[variantID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	after := before + delta
	if after < 0 {
		after = 0
	}
	f.stock[variantID] = after
	tracked, hasTracked := f.tracked[variantID]
	if !hasTracked {
		tracked = true
	}
	return &StockAdjustment{
		VariantID:      variantID,
		ProductID:      uuid.New(),
		Title:          "variant",
		QuantityBefore: before,
		QuantityAfter:  after,
		TrackInventory: tracked,
	}, nil
}

func (f *fakeRepo) CreateLedgerEntry(_ context.Context, entry *models.InventoryLedgerEntry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeRepo) MarkLowStockNotified(_ context.Context, variantID uuid.UUID) error {
	f.notified = append(f.notified, variantID)
	return nil
}

func (f *fakeRepo) ListLedgerByOrderID(context.Context, uuid.UUID) ([]models.InventoryLedgerEntry, error) {
	return f.entries, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
}

func TestDeductForOrderWritesPairedLedgerRows(t *testing.T) {
	repo := newFakeRepo()
	variantID := uuid.New()
	repo.stock[variantID] = 10

	svc, err := NewService(repo, testLogger(t))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.DeductForOrder(context.Background(), nil, DeductInput{
		StoreID: uuid.New(),
		OrderID: uuid.New(),
		LineItems: []types.SnapshotLineItem{
			{VariantID: variantID, Quantity: 3},
		},
		Threshold: 2,
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}

	if repo.stock[variantID] != 7 {
		t.Fatalf("stock = %d, want 7", repo.stock[variantID])
	}
	if len(result.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(result.Entries))
	}
	entry := result.Entries[0]
	if entry.Reason != enums.InventoryReasonOrderSettled {
		t.Fatalf("reason = %s", entry.Reason)
	}
	if entry.QuantityBefore != 10 || entry.QuantityAfter != 7 || entry.Delta != -3 {
		t.Fatalf("ledger row mismatch: %+v", entry)
	}
	if len(result.LowStock) != 0 {
		t.Fatalf("unexpected low stock: %+v", result.LowStock)
	}
}

func TestDeductForOrderClampsAtZero(t *testing.T) {
	repo := newFakeRepo()
	variantID := uuid.New()
	repo.stock[variantID] = 2

	svc, _ := NewService(repo, testLogger(t))
	result, err := svc.DeductForOrder(context.Background(), nil, DeductInput{
		StoreID: uuid.New(),
		OrderID: uuid.New(),
		LineItems: []types.SnapshotLineItem{
			{VariantID: variantID, Quantity: 5},
		},
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}

	if repo.stock[variantID] != 0 {
		t.Fatalf("stock = %d, want 0", repo.stock[variantID])
	}
	if result.Entries[0].Delta != -2 {
		t.Fatalf("delta = %d, want -2 (clamped)", result.Entries[0].Delta)
	}
}

func TestDeductForOrderFlagsLowStockOnce(t *testing.T) {
	repo := newFakeRepo()
	variantID := uuid.New()
	repo.stock[variantID] = 5

	svc, _ := NewService(repo, testLogger(t))
	result, err := svc.DeductForOrder(context.Background(), nil, DeductInput{
		StoreID: uuid.New(),
		OrderID: uuid.New(),
		LineItems: []types.SnapshotLineItem{
			{VariantID: variantID, Quantity: 4},
		},
		Threshold: 3,
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}

	if len(result.LowStock) != 1 {
		t.Fatalf("low stock = %d, want 1", len(result.LowStock))
	}
	if result.LowStock[0].Quantity != 1 {
		t.Fatalf("low stock quantity = %d, want 1", result.LowStock[0].Quantity)
	}
	if len(repo.notified) != 1 {
		t.Fatalf("notified = %d, want 1", len(repo.notified))
	}
}

func TestDeductForOrderSkipsUntrackedVariants(t *testing.T) {
	repo := newFakeRepo()
	variantID := uuid.New()
	repo.stock[variantID] = 10
	repo.tracked[variantID] = false

	svc, _ := NewService(repo, testLogger(t))
	result, err := svc.DeductForOrder(context.Background(), nil, DeductInput{
		StoreID: uuid.New(),
		OrderID: uuid.New(),
		LineItems: []types.SnapshotLineItem{
			{VariantID: variantID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Fatalf("untracked variant should not write ledger rows")
	}
}

func TestDeductForOrderSkipsMissingVariant(t *testing.T) {
	repo := newFakeRepo()
	presentID := uuid.New()
	repo.stock[presentID] = 8

	svc, _ := NewService(repo, testLogger(t))
	result, err := svc.DeductForOrder(context.Background(), nil, DeductInput{
		StoreID: uuid.New(),
		OrderID: uuid.New(),
		LineItems: []types.SnapshotLineItem{
			{VariantID: uuid.New(), Quantity: 1},
			{VariantID: presentID, Quantity: 2},
		},
	})
	if err != nil {
		t.Fatalf("missing variant must not abort the step: %v", err)
	}

	if repo.stock[presentID] != 6 {
		t.Fatalf("stock = %d, want 6 (later lines still processed)", repo.stock[presentID])
	}
	if len(result.Entries) != 1 {
		t.Fatalf("entries = %d, want 1 (only the present variant)", len(result.Entries))
	}
}
