package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/craftora/storefront-backend/api/controllers"
	"github.com/craftora/storefront-backend/api/middleware"
	"github.com/craftora/storefront-backend/internal/settlement"
	"github.com/craftora/storefront-backend/internal/stores"
	"github.com/craftora/storefront-backend/pkg/config"
	"github.com/craftora/storefront-backend/pkg/logger"
)

// RouterParams carries everything the HTTP surface needs.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	Stores     stores.Service
	Settlement settlement.Service
	Pingers    map[string]controllers.Pinger
	Registry   *prometheus.Registry
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Pingers))
	})

	if params.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/payments/{gateway}", func(r chi.Router) {
		r.Use(middleware.ResolveStore(params.Stores, logg))
		r.Get("/return", controllers.PaymentReturn(params.Settlement, logg))
		r.Post("/callback", controllers.PaymentCallback(params.Settlement, logg))
	})

	return r
}
