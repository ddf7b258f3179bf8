package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/logger"
)

// SpendResult reports a store credit debit for one order.
type SpendResult struct {
	Transaction models.CustomerCreditTransaction
	SpentCents  int
}

// SpendInput carries the snapshot store credit usage to apply.
type SpendInput struct {
	StoreID     uuid.UUID
	OrderID     uuid.UUID
	CustomerID  uuid.UUID
	AmountCents int
}

// Service defines customer mutations driven by settlement.
type Service interface {
	SpendCreditForOrder(ctx context.Context, tx *gorm.DB, input SpendInput) (*SpendResult, error)
	RecordOrderActivity(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, totalCents int) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires a customer service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// SpendCreditForOrder debits the customer's store credit, clamping at
// zero, and writes one spend transaction recording the actual movement.
func (s *service) SpendCreditForOrder(ctx context.Context, tx *gorm.DB, input SpendInput) (*SpendResult, error) {
	if input.StoreID == uuid.Nil {
		return nil, fmt.Errorf("store id is required")
	}
	if input.OrderID == uuid.Nil {
		return nil, fmt.Errorf("order id is required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("customer id is required")
	}
	if input.AmountCents <= 0 {
		return &SpendResult{}, nil
	}

	repo := s.repo.WithTx(tx)
	debit, err := repo.DebitCredit(ctx, input.CustomerID, input.AmountCents)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("customer %s not found", input.CustomerID)
		}
		return nil, err
	}

	spent := debit.CreditBefore - debit.CreditAfter
	if spent < input.AmountCents {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"customer_id": input.CustomerID.String(),
			"requested":   input.AmountCents,
			"spent":       spent,
		})
		s.logg.Warn(logCtx, "store credit spend clamped at balance")
	}

	orderID := input.OrderID
	txn := models.CustomerCreditTransaction{
		StoreID:           input.StoreID,
		CustomerID:        input.CustomerID,
		OrderID:           &orderID,
		Type:              enums.CreditTxnSpend,
		AmountCents:       -spent,
		BalanceAfterCents: debit.CreditAfter,
	}
	if err := repo.CreateCreditTransaction(ctx, &txn); err != nil {
		return nil, err
	}

	return &SpendResult{Transaction: txn, SpentCents: spent}, nil
}

// RecordOrderActivity bumps orders_count, total_spent_cents and
// last_order_at for a settled order.
func (s *service) RecordOrderActivity(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, totalCents int) error {
	if customerID == uuid.Nil {
		return fmt.Errorf("customer id is required")
	}
	return s.repo.WithTx(tx).RecordOrderActivity(ctx, customerID, totalCents)
}
