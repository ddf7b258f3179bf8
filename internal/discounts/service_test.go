package discounts

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/types"
)

type fakeRepo struct {
	usage     map[uuid.UUID]int
	autoUsage map[uuid.UUID]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		usage:     make(map[uuid.UUID]int),
		autoUsage: make(map[uuid.UUID]int),
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) IncrementUsage(_ context.Context, discountID uuid.UUID) (int64, error) {
	if _, ok := f.usage[discountID]; !ok {
		return 0, nil
	}
	f.usage[discountID]++
	return 1, nil
}

func (f *fakeRepo) IncrementAutomaticUsage(_ context.Context, automaticDiscountID uuid.UUID) (int64, error) {
	if _, ok := f.autoUsage[automaticDiscountID]; !ok {
		return 0, nil
	}
	f.autoUsage[automaticDiscountID]++
	return 1, nil
}

func (f *fakeRepo) FindByID(_ context.Context, discountID uuid.UUID) (*models.Discount, error) {
	if _, ok := f.usage[discountID]; !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Discount{ID: discountID, UsageCount: f.usage[discountID]}, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard})
}

func TestRecordUsageForOrderIncrementsBothKinds(t *testing.T) {
	repo := newFakeRepo()
	codeID := uuid.New()
	autoID := uuid.New()
	repo.usage[codeID] = 0
	repo.autoUsage[autoID] = 0

	svc, err := NewService(repo, testLogger(t))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	applied := []types.AppliedDiscount{
		{DiscountID: &codeID, Code: "WELCOME10", AmountCents: 1000},
		{AutomaticDiscountID: &autoID, AmountCents: 500},
	}
	if err := svc.RecordUsageForOrder(context.Background(), nil, uuid.New(), applied); err != nil {
		t.Fatalf("record usage: %v", err)
	}

	if repo.usage[codeID] != 1 {
		t.Fatalf("code usage = %d, want 1", repo.usage[codeID])
	}
	if repo.autoUsage[autoID] != 1 {
		t.Fatalf("automatic usage = %d, want 1", repo.autoUsage[autoID])
	}
}

func TestRecordUsageForOrderSkipsDeletedDiscount(t *testing.T) {
	repo := newFakeRepo()
	missing := uuid.New()

	svc, _ := NewService(repo, testLogger(t))
	applied := []types.AppliedDiscount{
		{DiscountID: &missing, Code: "GONE", AmountCents: 250},
	}
	if err := svc.RecordUsageForOrder(context.Background(), nil, uuid.New(), applied); err != nil {
		t.Fatalf("deleted discount should not fail the step: %v", err)
	}
}

func TestRecordUsageForOrderIgnoresEmptyEntries(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := NewService(repo, testLogger(t))

	applied := []types.AppliedDiscount{{AmountCents: 100}}
	if err := svc.RecordUsageForOrder(context.Background(), nil, uuid.New(), applied); err != nil {
		t.Fatalf("entry without ids should be ignored: %v", err)
	}
}
