package shipping

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
)

// Repository persists shipments and the lookups dispatch needs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, shipment *models.Shipment) error
	FindByID(ctx context.Context, shipmentID uuid.UUID) (*models.Shipment, error)
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error)
	MarkDispatched(ctx context.Context, shipmentID uuid.UUID, carrierCode, trackingNumber, trackingURL string) error
	MarkFailed(ctx context.Context, shipmentID uuid.UUID, reason string) error
	FindStore(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a shipment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, shipment *models.Shipment) error {
	if shipment == nil {
		return errors.New("shipment row required")
	}
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *repository) FindByID(ctx context.Context, shipmentID uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).Where("id = ?", shipmentID).First(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) MarkDispatched(ctx context.Context, shipmentID uuid.UUID, carrierCode, trackingNumber, trackingURL string) error {
	return r.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("id = ?", shipmentID).
		Updates(map[string]any{
			"status":          "dispatched",
			"carrier_code":    carrierCode,
			"tracking_number": trackingNumber,
			"tracking_url":    trackingURL,
			"dispatched_at":   gorm.Expr("now()"),
			"last_error":      nil,
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, shipmentID uuid.UUID, reason string) error {
	return r.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("id = ?", shipmentID).
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

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
