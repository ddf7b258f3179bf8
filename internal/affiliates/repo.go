package affiliates

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
)

// Repository manages persistence for influencers and their sales.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, influencerID uuid.UUID) (*models.Influencer, error)
	FindByCode(ctx context.Context, storeID uuid.UUID, code string) (*models.Influencer, error)
	CreateSale(ctx context.Context, sale *models.InfluencerSale) error
	IncrementTotals(ctx context.Context, influencerID uuid.UUID, orderTotalCents, commissionCents int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an affiliate repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, influencerID uuid.UUID) (*models.Influencer, error) {
	var influencer models.Influencer
	if err := r.db.WithContext(ctx).Where("id = ?", influencerID).First(&influencer).Error; err != nil {
		return nil, err
	}
	return &influencer, nil
}

func (r *repository) FindByCode(ctx context.Context, storeID uuid.UUID, code string) (*models.Influencer, error) {
	var influencer models.Influencer
	if err := r.db.WithContext(ctx).
		Where("store_id = ? AND code = ?", storeID, code).
		First(&influencer).Error; err != nil {
		return nil, err
	}
	return &influencer, nil
}

func (r *repository) CreateSale(ctx context.Context, sale *models.InfluencerSale) error {
	if sale == nil {
		return errors.New("sale row required")
	}
	return r.db.WithContext(ctx).Create(sale).Error
}

// IncrementTotals bumps the influencer's aggregates so they stay equal
// to the sum of the sale rows.
func (r *repository) IncrementTotals(ctx context.Context, influencerID uuid.UUID, orderTotalCents, commissionCents int) error {
	return r.db.WithContext(ctx).Model(&models.Influencer{}).
		Where("id = ?", influencerID).
		Updates(map[string]any{
			"total_sales_cents":      gorm.Expr("total_sales_cents + ?", orderTotalCents),
			"total_commission_cents": gorm.Expr("total_commission_cents + ?", commissionCents),
			"orders_count":           gorm.Expr("orders_count + 1"),
			"updated_at":             gorm.Expr("now()"),
		}).Error
}
