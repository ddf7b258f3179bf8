package affiliates

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db"
	"github.com/craftora/storefront-backend/pkg/db/models"
	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/logger"
)

// CommissionInput carries the referral attribution from the snapshot.
type CommissionInput struct {
	StoreID         uuid.UUID
	OrderID         uuid.UUID
	InfluencerID    uuid.UUID
	OrderTotalCents int
}

// Service defines affiliate mutations driven by settlement.
type Service interface {
	RecordCommission(ctx context.Context, tx *gorm.DB, input CommissionInput) (*models.InfluencerSale, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires an affiliate service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("affiliate repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// RecordCommission computes and persists the commission for one settled
// order and bumps the influencer's aggregate totals by the same
// amounts. The unique index on order_id makes retries idempotent; a
// duplicate insert is treated as already recorded and leaves the
// aggregates untouched.
func (s *service) RecordCommission(ctx context.Context, tx *gorm.DB, input CommissionInput) (*models.InfluencerSale, error) {
	if input.StoreID == uuid.Nil {
		return nil, fmt.Errorf("store id is required")
	}
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if input.InfluencerID == uuid.Nil {
		return nil, fmt.Errorf("influencer id is required")
	}

	repo := s.repo.WithTx(tx)
	influencer, err := repo.FindByID(ctx, input.InfluencerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("influencer %s not found", input.InfluencerID)
		}
		return nil, err
	}
	if !influencer.IsActive {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":      input.OrderID.String(),
			"influencer_id": input.InfluencerID.String(),
		})
		s.logg.Warn(logCtx, "influencer inactive, commission not recorded")
		return nil, nil
	}

	sale := models.InfluencerSale{
		StoreID:         input.StoreID,
		InfluencerID:    influencer.ID,
		OrderID:         input.OrderID,
		OrderTotalCents: input.OrderTotalCents,
		CommissionCents: commissionCents(influencer.CommissionType, influencer.CommissionRate, input.OrderTotalCents),
		RateApplied:     influencer.CommissionRate,
	}
	if err := repo.CreateSale(ctx, &sale); err != nil {
		if db.IsUniqueViolation(err, "uq_influencer_sales_order") {
			return nil, nil
		}
		return nil, err
	}
	if err := repo.IncrementTotals(ctx, influencer.ID, sale.OrderTotalCents, sale.CommissionCents); err != nil {
		return nil, err
	}
	return &sale, nil
}

// commissionCents computes the commission in integer cents. Percentage
// rates apply against the order total; flat rates are denominated in
// major currency units.
func commissionCents(kind enums.CommissionType, rate decimal.Decimal, orderTotalCents int) int {
	switch kind {
	case enums.CommissionTypePercentage:
		total := decimal.NewFromInt(int64(orderTotalCents))
		return int(total.Mul(rate).Div(decimal.NewFromInt(100)).Round(0).IntPart())
	case enums.CommissionTypeFlat:
		return int(rate.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	default:
		return 0
	}
}
