package middleware

import (
	"net/http"

	"github.com/craftora/storefront-backend/api/responses"
	"github.com/craftora/storefront-backend/internal/stores"
	pkgerrors "github.com/craftora/storefront-backend/pkg/errors"
	"github.com/craftora/storefront-backend/pkg/logger"
)

const storeIDHeader = "X-Store-Id"

// ResolveStore binds the request to a tenant via the store id header or
// the host subdomain. Inactive and unknown stores are rejected before
// any handler runs.
func ResolveStore(storeService stores.Service, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			store, err := storeService.Resolve(ctx, r.Header.Get(storeIDHeader), r.Host)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "store not found"))
				return
			}
			if !store.IsActive {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "store is inactive"))
				return
			}

			ctx = WithStoreID(ctx, store.ID)
			if logg != nil {
				ctx = logg.WithStoreID(ctx, store.ID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
