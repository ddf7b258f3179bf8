package discounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
)

// Repository manages persistence for discounts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	IncrementUsage(ctx context.Context, discountID uuid.UUID) (int64, error)
	IncrementAutomaticUsage(ctx context.Context, automaticDiscountID uuid.UUID) (int64, error)
	FindByID(ctx context.Context, discountID uuid.UUID) (*models.Discount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a discount repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// IncrementUsage bumps usage_count for a code discount. The returned
// row count is zero when the discount no longer exists.
func (r *repository) IncrementUsage(ctx context.Context, discountID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Discount{}).
		Where("id = ?", discountID).
		Updates(map[string]any{
			"usage_count": gorm.Expr("usage_count + 1"),
			"updated_at":  gorm.Expr("now()"),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) IncrementAutomaticUsage(ctx context.Context, automaticDiscountID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.AutomaticDiscount{}).
		Where("id = ?", automaticDiscountID).
		Updates(map[string]any{
			"usage_count": gorm.Expr("usage_count + 1"),
			"updated_at":  gorm.Expr("now()"),
		})
	return result.RowsAffected, result.Error
}

func (r *repository) FindByID(ctx context.Context, discountID uuid.UUID) (*models.Discount, error) {
	var discount models.Discount
	if err := r.db.WithContext(ctx).Where("id = ?", discountID).First(&discount).Error; err != nil {
		return nil, err
	}
	return &discount, nil
}
