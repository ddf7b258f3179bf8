package giftcards

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
)

// BalanceDebit is the before/after view returned by the conditional
// balance UPDATE.
type BalanceDebit struct {
	GiftCardID    uuid.UUID `gorm:"column:id"`
	BalanceBefore int       `gorm:"column:balance_before"`
	BalanceAfter  int       `gorm:"column:balance_after"`
}

// Repository manages persistence for gift cards and their transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	DebitBalance(ctx context.Context, giftCardID uuid.UUID, amountCents int) (*BalanceDebit, error)
	CreateTransaction(ctx context.Context, txn *models.GiftCardTransaction) error
	FindByID(ctx context.Context, giftCardID uuid.UUID) (*models.GiftCard, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gift card repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// DebitBalance subtracts up to amountCents from an active card inside
// one atomic statement, clamping at zero and flipping the status to
// depleted when the balance runs out.
func (r *repository) DebitBalance(ctx context.Context, giftCardID uuid.UUID, amountCents int) (*BalanceDebit, error) {
	const query = `
		WITH prev AS (
			SELECT id, balance_cents
			FROM gift_cards
			WHERE id = ? AND status = 'active'
			FOR UPDATE
		)
		UPDATE gift_cards g
		SET balance_cents = GREATEST(g.balance_cents - ?, 0),
		    status = CASE WHEN g.balance_cents - ? <= 0 THEN 'depleted'::gift_card_status ELSE g.status END,
		    updated_at = now()
		FROM prev
		WHERE g.id = prev.id
		RETURNING g.id,
		          prev.balance_cents AS balance_before,
		          g.balance_cents AS balance_after`

	var debit BalanceDebit
	result := r.db.WithContext(ctx).Raw(query, giftCardID, amountCents, amountCents).Scan(&debit)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &debit, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.GiftCardTransaction) error {
	if txn == nil {
		return errors.New("transaction row required")
	}
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindByID(ctx context.Context, giftCardID uuid.UUID) (*models.GiftCard, error) {
	var card models.GiftCard
	if err := r.db.WithContext(ctx).Where("id = ?", giftCardID).First(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}
