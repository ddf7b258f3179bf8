package gateway

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/paypal"
	"github.com/craftora/storefront-backend/pkg/types"
)

// PayPalCaptureAPI is the slice of the PayPal client the normalizer needs.
type PayPalCaptureAPI interface {
	CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureResult, error)
}

// PayPalNormalizer finishes PayPal's two-phase flow. The redirect only
// proves the customer approved the order, so the capture call is what
// actually decides success.
type PayPalNormalizer struct {
	api  PayPalCaptureAPI
	logg *logger.Logger
}

// NewPayPalNormalizer wires the PayPal callback handler.
func NewPayPalNormalizer(api PayPalCaptureAPI, logg *logger.Logger) *PayPalNormalizer {
	return &PayPalNormalizer{api: api, logg: logg}
}

func (n *PayPalNormalizer) Gateway() enums.Gateway {
	return enums.GatewayPayPal
}

func (n *PayPalNormalizer) Normalize(ctx context.Context, params url.Values) (*CallbackSignal, error) {
	token := strings.TrimSpace(params.Get("token"))
	if token == "" {
		return failed(enums.GatewayPayPal, "", enums.FailureReasonPaymentFailed), nil
	}

	result, err := n.api.CaptureOrder(ctx, token)
	if err != nil {
		n.logg.Error(n.logg.WithFields(ctx, map[string]any{"paypal_order_id": token}),
			"paypal capture failed", err)
		return failed(enums.GatewayPayPal, token, enums.FailureReasonPayPalCaptureFailed), nil
	}
	if !result.Completed() {
		return failed(enums.GatewayPayPal, token, enums.FailureReasonPayPalCaptureFailed), nil
	}

	now := time.Now().UTC()
	return &CallbackSignal{
		Gateway:   enums.GatewayPayPal,
		Succeeded: true,
		Reference: token,
		OrderRef:  strings.TrimSpace(params.Get("order_id")),
		Metadata: &types.PaymentMetadata{
			Gateway:       enums.GatewayPayPal,
			TransactionID: result.CaptureID,
			AmountCents:   result.AmountCents,
			Currency:      result.Currency,
			CapturedAt:    &now,
			RawStatus:     result.Status,
		},
	}, nil
}
