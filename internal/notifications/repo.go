package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
)

// Repository persists notification rows and the lookups the dispatcher
// needs to render them.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	MarkSent(ctx context.Context, notificationID uuid.UUID) error
	MarkFailed(ctx context.Context, notificationID uuid.UUID, reason string) error
	FindStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	CountWaitlisted(ctx context.Context, variantID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a notification repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, notification *models.Notification) error {
	if notification == nil {
		return errors.New("notification row required")
	}
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repository) MarkSent(ctx context.Context, notificationID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Updates(map[string]any{
			"status":  "sent",
			"sent_at": gorm.Expr("now()"),
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, notificationID uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", notificationID).
		Updates(map[string]any{
			"status":     "failed",
			"last_error": reason,
		}).Error
}

func (r *repository) FindStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).Where("id = ?", storeID).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

// CountWaitlisted reports how many customers are waiting on a restock
// of the variant and have not been notified yet.
func (r *repository) CountWaitlisted(ctx context.Context, variantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.WaitlistEntry{}).
		Where("variant_id = ? AND notified_at IS NULL", variantID).
		Count(&count).Error
	return count, err
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("id = ?", orderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
