package affiliates

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/logger"
)

type fakeRepo struct {
	influencers map[uuid.UUID]*models.Influencer
	sales       []models.InfluencerSale
	saleOrders  map[uuid.UUID]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		influencers: make(map[uuid.UUID]*models.Influencer),
		saleOrders:  make(map[uuid.UUID]bool),
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) FindByID(_ context.Context, influencerID uuid.UUID) (*models.Influencer, error) {
	influencer, ok := f.influencers[influencerID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return influencer, nil
}

func (f *fakeRepo) FindByCode(_ context.Context, storeID uuid.UUID, code string) (*models.Influencer, error) {
	for _, influencer := range f.influencers {
		if influencer.StoreID == storeID && influencer.Code == code {
			return influencer, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) CreateSale(_ context.Context, sale *models.InfluencerSale) error {
	if f.saleOrders[sale.OrderID] {
		return &pgconn.PgError{Code: "23505", ConstraintName: "uq_influencer_sales_order"}
	}
	f.saleOrders[sale.OrderID] = true
	f.sales = append(f.sales, *sale)
	return nil
}

func (f *fakeRepo) IncrementTotals(_ context.Context, influencerID uuid.UUID, orderTotalCents, commissionCents int) error {
	influencer, ok := f.influencers[influencerID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	influencer.TotalSalesCents += orderTotalCents
	influencer.TotalCommissionCents += commissionCents
	influencer.OrdersCount++
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
}

func activeInfluencer(storeID uuid.UUID, kind enums.CommissionType, rate string) *models.Influencer {
	return &models.Influencer{
		ID:             uuid.New(),
		StoreID:        storeID,
		Name:           "Jordan",
		Code:           "JORDAN15",
		CommissionType: kind,
		CommissionRate: decimal.RequireFromString(rate),
		IsActive:       true,
	}
}

func TestRecordCommissionPercentage(t *testing.T) {
	repo := newFakeRepo()
	storeID := uuid.New()
	influencer := activeInfluencer(storeID, enums.CommissionTypePercentage, "12.5")
	repo.influencers[influencer.ID] = influencer

	svc, err := NewService(repo, testLogger(t))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	sale, err := svc.RecordCommission(context.Background(), nil, CommissionInput{
		StoreID:         storeID,
		OrderID:         uuid.New(),
		InfluencerID:    influencer.ID,
		OrderTotalCents: 10000,
	})
	if err != nil {
		t.Fatalf("record commission: %v", err)
	}
	if sale == nil {
		t.Fatal("expected a sale row")
	}
	if sale.CommissionCents != 1250 {
		t.Fatalf("commission = %d, want 1250", sale.CommissionCents)
	}
	if !sale.RateApplied.Equal(influencer.CommissionRate) {
		t.Fatalf("rate applied = %s, want %s", sale.RateApplied, influencer.CommissionRate)
	}
}

func TestRecordCommissionFlat(t *testing.T) {
	repo := newFakeRepo()
	storeID := uuid.New()
	influencer := activeInfluencer(storeID, enums.CommissionTypeFlat, "7.50")
	repo.influencers[influencer.ID] = influencer

	svc, _ := NewService(repo, testLogger(t))
	sale, err := svc.RecordCommission(context.Background(), nil, CommissionInput{
		StoreID:         storeID,
		OrderID:         uuid.New(),
		InfluencerID:    influencer.ID,
		OrderTotalCents: 10000,
	})
	if err != nil {
		t.Fatalf("record commission: %v", err)
	}
	if sale.CommissionCents != 750 {
		t.Fatalf("commission = %d, want 750", sale.CommissionCents)
	}
}

func TestRecordCommissionRoundsToCents(t *testing.T) {
	repo := newFakeRepo()
	storeID := uuid.New()
	influencer := activeInfluencer(storeID, enums.CommissionTypePercentage, "3.333")
	repo.influencers[influencer.ID] = influencer

	svc, _ := NewService(repo, testLogger(t))
	sale, err := svc.RecordCommission(context.Background(), nil, CommissionInput{
		StoreID:         storeID,
		OrderID:         uuid.New(),
		InfluencerID:    influencer.ID,
		OrderTotalCents: 9999,
	})
	if err != nil {
		t.Fatalf("record commission: %v", err)
	}
	// 9999 * 3.333 / 100 = 333.267, rounds to 333
	if sale.CommissionCents != 333 {
		t.Fatalf("commission = %d, want 333", sale.CommissionCents)
	}
}

func TestRecordCommissionDuplicateOrderIsNoop(t *testing.T) {
	repo := newFakeRepo()
	storeID := uuid.New()
	influencer := activeInfluencer(storeID, enums.CommissionTypePercentage, "10")
	repo.influencers[influencer.ID] = influencer

	svc, _ := NewService(repo, testLogger(t))
	input := CommissionInput{
		StoreID:         storeID,
		OrderID:         uuid.New(),
		InfluencerID:    influencer.ID,
		OrderTotalCents: 5000,
	}
	if _, err := svc.RecordCommission(context.Background(), nil, input); err != nil {
		t.Fatalf("first commission: %v", err)
	}
	sale, err := svc.RecordCommission(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("duplicate commission should not fail: %v", err)
	}
	if sale != nil {
		t.Fatal("duplicate commission should return nil sale")
	}
	if len(repo.sales) != 1 {
		t.Fatalf("sales = %d, want 1", len(repo.sales))
	}
	if influencer.OrdersCount != 1 {
		t.Fatalf("orders count = %d, want 1 (duplicate must not bump aggregates)", influencer.OrdersCount)
	}
}

func TestRecordCommissionBumpsAggregateTotals(t *testing.T) {
	repo := newFakeRepo()
	storeID := uuid.New()
	influencer := activeInfluencer(storeID, enums.CommissionTypePercentage, "10")
	repo.influencers[influencer.ID] = influencer

	svc, _ := NewService(repo, testLogger(t))
	for _, total := range []int{4000, 6000} {
		if _, err := svc.RecordCommission(context.Background(), nil, CommissionInput{
			StoreID:         storeID,
			OrderID:         uuid.New(),
			InfluencerID:    influencer.ID,
			OrderTotalCents: total,
		}); err != nil {
			t.Fatalf("record commission: %v", err)
		}
	}

	if influencer.TotalSalesCents != 10000 {
		t.Fatalf("total sales = %d, want 10000", influencer.TotalSalesCents)
	}
	if influencer.TotalCommissionCents != 1000 {
		t.Fatalf("total commission = %d, want 1000", influencer.TotalCommissionCents)
	}
	if influencer.OrdersCount != 2 {
		t.Fatalf("orders count = %d, want 2", influencer.OrdersCount)
	}
}

func TestRecordCommissionInactiveInfluencerSkipped(t *testing.T) {
	repo := newFakeRepo()
	storeID := uuid.New()
	influencer := activeInfluencer(storeID, enums.CommissionTypePercentage, "10")
	influencer.IsActive = false
	repo.influencers[influencer.ID] = influencer

	svc, _ := NewService(repo, testLogger(t))
	sale, err := svc.RecordCommission(context.Background(), nil, CommissionInput{
		StoreID:         storeID,
		OrderID:         uuid.New(),
		InfluencerID:    influencer.ID,
		OrderTotalCents: 5000,
	})
	if err != nil {
		t.Fatalf("inactive influencer should not fail: %v", err)
	}
	if sale != nil {
		t.Fatal("inactive influencer should not earn commission")
	}
}
