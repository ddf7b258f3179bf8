package discounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/types"
)

// Service defines discount mutations driven by settlement.
type Service interface {
	RecordUsageForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, applied []types.AppliedDiscount) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires a discount service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// RecordUsageForOrder increments usage_count for every discount the
// snapshot applied. A discount deleted since checkout is logged and
// skipped; the customer already received the price.
func (s *service) RecordUsageForOrder(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, applied []types.AppliedDiscount) error {
	if orderID == uuid.Nil {
		return fmt.Errorf("order id is required")
	}

	repo := s.repo.WithTx(tx)
	for _, discount := range applied {
		var (
			affected int64
			err      error
			id       uuid.UUID
		)
		switch {
		case discount.DiscountID != nil:
			id = *discount.DiscountID
			affected, err = repo.IncrementUsage(ctx, id)
		case discount.AutomaticDiscountID != nil:
			id = *discount.AutomaticDiscountID
			affected, err = repo.IncrementAutomaticUsage(ctx, id)
		default:
			continue
		}
		if err != nil {
			return err
		}
		if affected == 0 {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id":    orderID.String(),
				"discount_id": id.String(),
			})
			s.logg.Warn(logCtx, "applied discount no longer exists, usage not recorded")
		}
	}
	return nil
}
