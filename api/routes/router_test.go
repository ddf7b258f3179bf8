package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/craftora/storefront-backend/internal/settlement"
	"github.com/craftora/storefront-backend/pkg/config"
	"github.com/craftora/storefront-backend/pkg/db/models"
	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/metrics"
)

type stubStores struct {
	store *models.Store
	err   error
}

func (s *stubStores) Resolve(_ context.Context, _, _ string) (*models.Store, error) {
	return s.store, s.err
}

type stubSettlement struct {
	result *settlement.Result
}

func (s *stubSettlement) HandleReturn(_ context.Context, _ settlement.HandleReturnInput) (*settlement.Result, error) {
	return s.result, nil
}

func newTestRouter(t *testing.T, store *models.Store) http.Handler {
	t.Helper()
	return NewRouter(RouterParams{
		Config: &config.Config{App: config.AppConfig{Env: "test"}},
		Logger: logger.New(logger.Options{Level: zerolog.ErrorLevel, Output: io.Discard}),
		Stores: &stubStores{store: store},
		Settlement: &stubSettlement{result: &settlement.Result{
			RedirectURL: "/checkout/confirmation",
			Outcome:     metrics.OutcomeSettled,
		}},
	})
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(t, &models.Store{ID: uuid.New(), IsActive: true})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.Code)
	}
}

func TestRouterPaymentReturnResolvesStore(t *testing.T) {
	router := newTestRouter(t, &models.Store{ID: uuid.New(), IsActive: true})

	req := httptest.NewRequest(http.MethodGet, "/payments/paypal/return?token=EC-1", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", resp.Code)
	}
}

func TestRouterRejectsInactiveStore(t *testing.T) {
	router := newTestRouter(t, &models.Store{ID: uuid.New(), IsActive: false})

	req := httptest.NewRequest(http.MethodGet, "/payments/paypal/return", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.Code)
	}
}
