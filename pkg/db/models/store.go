package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/craftora/storefront-backend/pkg/types"
)

// Store represents the canonical tenant model.
type Store struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string         `gorm:"column:name;not null"`
	Subdomain       string         `gorm:"column:subdomain;not null;uniqueIndex"`
	Email           *string        `gorm:"column:email"`
	Currency        string         `gorm:"column:currency;not null;default:'USD'"`
	NextOrderNumber int            `gorm:"column:next_order_number;not null;default:1000"`
	OrderPrefix     string         `gorm:"column:order_prefix;not null;default:'#'"`
	Settings        *types.JSONMap `gorm:"column:settings;type:jsonb"`
	IsActive        bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
