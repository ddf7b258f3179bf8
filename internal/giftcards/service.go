package giftcards

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

// RedemptionResult reports the balance movements for one order.
type RedemptionResult struct {
	Transactions []models.GiftCardTransaction
	DepletedIDs  []uuid.UUID
}

// RedeemInput carries the snapshot gift card usages to apply.
type RedeemInput struct {
	StoreID   uuid.UUID
	OrderID   uuid.UUID
	GiftCards []types.SnapshotGiftCard
}

// Service defines gift card mutations driven by settlement.
type Service interface {
	RedeemForOrder(ctx context.Context, tx *gorm.DB, input RedeemInput) (*RedemptionResult, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires a gift card service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("gift card repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// RedeemForOrder debits each applied gift card, clamping at zero, and
// writes one redeem transaction per movement. A card that disappeared
// or was disabled since checkout is skipped silently; its validity was
// already checked at checkout time.
func (s *service) RedeemForOrder(ctx context.Context, tx *gorm.DB, input RedeemInput) (*RedemptionResult, error) {
	if input.StoreID == uuid.Nil {
		return nil, fmt.Errorf("store id is required")
	}
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}

	repo := s.repo.WithTx(tx)
	result := &RedemptionResult{}

	for _, usage := range input.GiftCards {
		if usage.AmountCents <= 0 {
			continue
		}

		debit, err := repo.DebitBalance(ctx, usage.GiftCardID, usage.AmountCents)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"order_id":     input.OrderID.String(),
					"gift_card_id": usage.GiftCardID.String(),
				})
				s.logg.Warn(logCtx, "gift card no longer redeemable, skipped")
				continue
			}
			return nil, err
		}

		debited := debit.BalanceBefore - debit.BalanceAfter
		if debited < usage.AmountCents {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"gift_card_id": usage.GiftCardID.String(),
				"requested":    usage.AmountCents,
				"debited":      debited,
			})
			s.logg.Warn(logCtx, "gift card debit clamped at balance")
		}

		orderID := input.OrderID
		txn := models.GiftCardTransaction{
			StoreID:           input.StoreID,
			GiftCardID:        usage.GiftCardID,
			OrderID:           &orderID,
			Type:              enums.GiftCardTxnRedeem,
			AmountCents:       -debited,
			BalanceAfterCents: debit.BalanceAfter,
		}
		if err := repo.CreateTransaction(ctx, &txn); err != nil {
			return nil, err
		}
		result.Transactions = append(result.Transactions, txn)

		if debit.BalanceAfter == 0 {
			result.DepletedIDs = append(result.DepletedIDs, usage.GiftCardID)
		}
	}

	return result, nil
}
