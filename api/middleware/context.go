package middleware

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const ctxStoreID contextKey = "store_id"

// WithStoreID injects the resolved store identifier for downstream handlers.
func WithStoreID(ctx context.Context, storeID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStoreID, storeID)
}

// StoreIDFromContext returns the resolved store id, or uuid.Nil when no
// store was resolved.
func StoreIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxStoreID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}
