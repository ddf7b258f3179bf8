package orders

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

// Service defines order mutations driven by settlement.
type Service interface {
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindPendingPaymentByReference(ctx context.Context, gateway enums.Gateway, reference string) (*models.PendingPayment, error)
	MarkPaidIfPending(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, metadata *types.PaymentMetadata) (bool, error)
	ResolvePendingPayment(ctx context.Context, tx *gorm.DB, pendingID uuid.UUID, status enums.PendingPaymentStatus, orderID *uuid.UUID, failureCode *string) error
	ClaimPendingPayment(ctx context.Context, tx *gorm.DB, pendingID, orderID uuid.UUID) (bool, error)
	RebuildFromSnapshot(ctx context.Context, tx *gorm.DB, pending *models.PendingPayment) (*models.Order, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires an order service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.repo.FindByID(ctx, orderID)
}

func (s *service) FindPendingPaymentByReference(ctx context.Context, gateway enums.Gateway, reference string) (*models.PendingPayment, error) {
	return s.repo.FindPendingPaymentByReference(ctx, gateway, reference)
}

// MarkPaidIfPending is the settlement transition guard. It returns
// false when the order had already left pending, which callers treat
// as a duplicate callback.
func (s *service) MarkPaidIfPending(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, metadata *types.PaymentMetadata) (bool, error) {
	affected, err := s.repo.WithTx(tx).MarkPaidIfPending(ctx, orderID, metadata)
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (s *service) ResolvePendingPayment(ctx context.Context, tx *gorm.DB, pendingID uuid.UUID, status enums.PendingPaymentStatus, orderID *uuid.UUID, failureCode *string) error {
	return s.repo.WithTx(tx).ResolvePendingPayment(ctx, pendingID, status, orderID, failureCode)
}

// ClaimPendingPayment is the rebuild-path idempotency anchor. It
// returns false when another caller already linked an order to the
// pending payment, which means this caller's rebuild must be abandoned.
func (s *service) ClaimPendingPayment(ctx context.Context, tx *gorm.DB, pendingID, orderID uuid.UUID) (bool, error) {
	affected, err := s.repo.WithTx(tx).ClaimPendingPaymentForOrder(ctx, pendingID, orderID)
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// RebuildFromSnapshot reconstructs an order from the pending payment's
// frozen snapshot when the order row is missing at callback time. The
// rebuilt order starts pending so the normal transition guard still
// applies.
func (s *service) RebuildFromSnapshot(ctx context.Context, tx *gorm.DB, pending *models.PendingPayment) (*models.Order, error) {
	if pending == nil {
		return nil, fmt.Errorf("pending payment required")
	}
	snapshot := pending.Snapshot
	if snapshot == nil {
		return nil, ErrNoSnapshot
	}

	repo := s.repo.WithTx(tx)
	orderNumber, err := repo.AllocateOrderNumber(ctx, pending.StoreID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("store %s not found", pending.StoreID)
		}
		return nil, err
	}

	giftCardCents := 0
	for _, card := range snapshot.GiftCards {
		giftCardCents += card.AmountCents
	}

	order := models.Order{
		StoreID:          pending.StoreID,
		OrderNumber:      orderNumber,
		CustomerID:       snapshot.CustomerID,
		Email:            snapshot.Email,
		FinancialStatus:  enums.FinancialStatusPending,
		Currency:         snapshot.Currency,
		SubtotalCents:    snapshot.SubtotalCents,
		DiscountCents:    snapshot.DiscountCents,
		ShippingCents:    snapshot.ShippingCents,
		TaxCents:         snapshot.TaxCents,
		TotalCents:       snapshot.TotalCents,
		GiftCardCents:    giftCardCents,
		StoreCreditCents: snapshot.StoreCreditCents,
		AppliedDiscounts: snapshot.Discounts,
		Snapshot:         snapshot,
		ShippingAddress:  snapshot.ShippingAddress,
		BillingAddress:   snapshot.BillingAddress,
		ShippingLine:     snapshot.ShippingLine,
		IsRecovered:      true,
	}
	for _, line := range snapshot.LineItems {
		item := models.OrderLineItem{
			StoreID:        pending.StoreID,
			ProductID:      line.ProductID,
			VariantID:      line.VariantID,
			Title:          line.Title,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			LineTotalCents: line.LineTotalCents,
		}
		if line.VariantTitle != "" {
			variantTitle := line.VariantTitle
			item.VariantTitle = &variantTitle
		}
		if line.SKU != "" {
			sku := line.SKU
			item.SKU = &sku
		}
		order.LineItems = append(order.LineItems, item)
	}

	if err := repo.CreateWithLineItems(ctx, &order); err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": orderNumber,
		"pending_id":   pending.ID.String(),
	})
	s.logg.Warn(logCtx, "order rebuilt from pending payment snapshot")
	return &order, nil
}

// ErrNoSnapshot marks a pending payment that cannot seed a rebuild.
var ErrNoSnapshot = errors.New("pending payment has no snapshot")
