package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/types"
)

// Repository manages persistence for orders and pending payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindPendingPaymentByReference(ctx context.Context, gateway enums.Gateway, reference string) (*models.PendingPayment, error)
	MarkPaidIfPending(ctx context.Context, orderID uuid.UUID, metadata *types.PaymentMetadata) (int64, error)
	MarkRecovered(ctx context.Context, orderID uuid.UUID) error
	ResolvePendingPayment(ctx context.Context, pendingID uuid.UUID, status enums.PendingPaymentStatus, orderID *uuid.UUID, failureCode *string) error
	ClaimPendingPaymentForOrder(ctx context.Context, pendingID, orderID uuid.UUID) (int64, error)
	AllocateOrderNumber(ctx context.Context, storeID uuid.UUID) (int, error)
	CreateWithLineItems(ctx context.Context, order *models.Order) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("id = ?", orderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindPendingPaymentByReference(ctx context.Context, gateway enums.Gateway, reference string) (*models.PendingPayment, error) {
	var pending models.PendingPayment
	if err := r.db.WithContext(ctx).
		Where("gateway = ? AND gateway_reference = ?", gateway, reference).
		First(&pending).Error; err != nil {
		return nil, err
	}
	return &pending, nil
}

// MarkPaidIfPending flips the order to paid only while it is still
// pending. Zero rows affected means another callback settled it first.
func (r *repository) MarkPaidIfPending(ctx context.Context, orderID uuid.UUID, metadata *types.PaymentMetadata) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND financial_status = ?", orderID, enums.FinancialStatusPending).
		Updates(map[string]any{
			"financial_status": enums.FinancialStatusPaid,
			"payment_metadata": metadata,
			"settled_at":       gorm.Expr("now()"),
			"updated_at":       gorm.Expr("now()"),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) MarkRecovered(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("is_recovered", true).Error
}

// ResolvePendingPayment records the terminal state of a payment attempt.
func (r *repository) ResolvePendingPayment(ctx context.Context, pendingID uuid.UUID, status enums.PendingPaymentStatus, orderID *uuid.UUID, failureCode *string) error {
	updates := map[string]any{
		"status":      status,
		"resolved_at": gorm.Expr("now()"),
		"updated_at":  gorm.Expr("now()"),
	}
	if orderID != nil {
		updates["order_id"] = *orderID
	}
	if failureCode != nil {
		updates["failure_code"] = *failureCode
	}
	return r.db.WithContext(ctx).Model(&models.PendingPayment{}).
		Where("id = ?", pendingID).
		Updates(updates).Error
}

// ClaimPendingPaymentForOrder attaches the order id only while no other
// caller has, and only while the attempt is still open. Zero rows
// affected means a concurrent rebuild claimed the pending payment
// first; the caller must re-fetch and settle against the winner's
// order instead of keeping its own.
func (r *repository) ClaimPendingPaymentForOrder(ctx context.Context, pendingID, orderID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PendingPayment{}).
		Where("id = ? AND order_id IS NULL AND status = ?", pendingID, enums.PendingPaymentInitiated).
		Updates(map[string]any{
			"order_id":   orderID,
			"updated_at": gorm.Expr("now()"),
		})
	return result.RowsAffected, result.Error
}

// AllocateOrderNumber hands out the store's next order number in one
// atomic statement.
func (r *repository) AllocateOrderNumber(ctx context.Context, storeID uuid.UUID) (int, error) {
	const query = `
		UPDATE stores
		SET next_order_number = next_order_number + 1,
		    updated_at = now()
		WHERE id = ?
		RETURNING next_order_number - 1 AS order_number`

	var allocated struct {
		OrderNumber int `gorm:"column:order_number"`
	}
	result := r.db.WithContext(ctx).Raw(query, storeID).Scan(&allocated)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return allocated.OrderNumber, nil
}

func (r *repository) CreateWithLineItems(ctx context.Context, order *models.Order) error {
	if order == nil {
		return errors.New("order row required")
	}
	return r.db.WithContext(ctx).Create(order).Error
}
