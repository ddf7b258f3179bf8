package stores

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftora/storefront-backend/pkg/db/models"
)

// Repository reads tenant records for request scoping.
type Repository interface {
	FindByID(ctx context.Context, storeID uuid.UUID) (*models.Store, error)
	FindBySubdomain(ctx context.Context, subdomain string) (*models.Store, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a store repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, storeID uuid.UUID) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).Where("id = ?", storeID).First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *repository) FindBySubdomain(ctx context.Context, subdomain string) (*models.Store, error) {
	var store models.Store
	if err := r.db.WithContext(ctx).
		Where("subdomain = ?", strings.ToLower(strings.TrimSpace(subdomain))).
		First(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}
