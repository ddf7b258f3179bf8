package stores

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/craftora/storefront-backend/pkg/db/models"
)

// Service resolves the tenant behind an incoming request.
type Service interface {
	Resolve(ctx context.Context, storeIDHeader, host string) (*models.Store, error)
}

type service struct {
	repo Repository
}

// NewService wires the store resolver.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &service{repo: repo}, nil
}

// Resolve prefers an explicit store id header and falls back to the
// leftmost host label as the subdomain.
func (s *service) Resolve(ctx context.Context, storeIDHeader, host string) (*models.Store, error) {
	if storeIDHeader != "" {
		storeID, err := uuid.Parse(storeIDHeader)
		if err != nil {
			return nil, fmt.Errorf("invalid store id header: %w", err)
		}
		return s.repo.FindByID(ctx, storeID)
	}

	subdomain := subdomainOf(host)
	if subdomain == "" {
		return nil, fmt.Errorf("no store id header and no subdomain in host %q", host)
	}
	return s.repo.FindBySubdomain(ctx, subdomain)
}

func subdomainOf(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	label, rest, ok := strings.Cut(host, ".")
	if !ok || rest == "" {
		return ""
	}
	return label
}
