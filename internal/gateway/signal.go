package gateway

import (
	"context"
	"net/url"

	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/types"
)

// CallbackSignal is the normalized outcome of one provider callback.
// Reference is the provider-side request id used to locate the pending
// payment; OrderRef is the business order reference when the callback
// carries one.
type CallbackSignal struct {
	Gateway     enums.Gateway
	Succeeded   bool
	Reference   string
	OrderRef    string
	Metadata    *types.PaymentMetadata
	FailureCode string
}

// Normalizer maps one provider's raw callback parameters into a
// CallbackSignal. Implementations that need a second round-trip (the
// PayPal capture) perform it here so callers always receive a final
// verdict.
type Normalizer interface {
	Gateway() enums.Gateway
	Normalize(ctx context.Context, params url.Values) (*CallbackSignal, error)
}

// Registry resolves the Normalizer for a gateway.
type Registry struct {
	normalizers map[enums.Gateway]Normalizer
}

// NewRegistry indexes the given normalizers by gateway.
func NewRegistry(normalizers ...Normalizer) *Registry {
	indexed := make(map[enums.Gateway]Normalizer, len(normalizers))
	for _, n := range normalizers {
		if n == nil {
			continue
		}
		indexed[n.Gateway()] = n
	}
	return &Registry{normalizers: indexed}
}

// Resolve returns the normalizer for the gateway, or false when the
// gateway has no registered handler.
func (r *Registry) Resolve(gateway enums.Gateway) (Normalizer, bool) {
	n, ok := r.normalizers[gateway]
	return n, ok
}

// failed builds a failure signal with a machine-readable reason.
func failed(gw enums.Gateway, reference string, reason enums.CheckoutFailureReason) *CallbackSignal {
	return &CallbackSignal{
		Gateway:     gw,
		Succeeded:   false,
		Reference:   reference,
		FailureCode: reason.String(),
	}
}
