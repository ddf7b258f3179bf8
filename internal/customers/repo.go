package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
)

// CreditDebit is the before/after view returned by the conditional
// credit UPDATE.
type CreditDebit struct {
	CustomerID   uuid.UUID `gorm:"column:id"`
	CreditBefore int       `gorm:"column:credit_before"`
	CreditAfter  int       `gorm:"column:credit_after"`
}

// Repository manages persistence for customers and their credit ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	DebitCredit(ctx context.Context, customerID uuid.UUID, amountCents int) (*CreditDebit, error)
	CreateCreditTransaction(ctx context.Context, txn *models.CustomerCreditTransaction) error
	RecordOrderActivity(ctx context.Context, customerID uuid.UUID, totalCents int) error
	FindByID(ctx context.Context, customerID uuid.UUID) (*models.Customer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a customer repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// DebitCredit subtracts up to amountCents from the customer's store
// credit inside one atomic statement, clamping at zero.
func (r *repository) DebitCredit(ctx context.Context, customerID uuid.UUID, amountCents int) (*CreditDebit, error) {
	const query = `
		WITH prev AS (
			SELECT id, credit_cents
			FROM customers
			WHERE id = ?
			FOR UPDATE
		)
		UPDATE customers c
		SET credit_cents = GREATEST(c.credit_cents - ?, 0),
		    updated_at = now()
		FROM prev
		WHERE c.id = prev.id
		RETURNING c.id,
		          prev.credit_cents AS credit_before,
		          c.credit_cents AS credit_after`

	var debit CreditDebit
	result := r.db.WithContext(ctx).Raw(query, customerID, amountCents).Scan(&debit)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &debit, nil
}

func (r *repository) CreateCreditTransaction(ctx context.Context, txn *models.CustomerCreditTransaction) error {
	if txn == nil {
		return errors.New("credit transaction row required")
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

// RecordOrderActivity bumps the customer's lifetime order counters.
func (r *repository) RecordOrderActivity(ctx context.Context, customerID uuid.UUID, totalCents int) error {
	return r.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", customerID).
		Updates(map[string]any{
			"orders_count":      gorm.Expr("orders_count + 1"),
			"total_spent_cents": gorm.Expr("total_spent_cents + ?", totalCents),
			"last_order_at":     gorm.Expr("now()"),
		}).Error
}

func (r *repository) FindByID(ctx context.Context, customerID uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", customerID).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}
