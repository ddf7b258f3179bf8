package gateway

import (
	"context"
	"net/url"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/types"
)

// StripeIntentAPI is the slice of the Stripe client the normalizer needs.
type StripeIntentAPI interface {
	GetPaymentIntent(ctx context.Context, intentID string) (*stripeapi.PaymentIntent, error)
}

// StripeNormalizer verifies the payment intent server side rather than
// trusting the redirect parameters.
type StripeNormalizer struct {
	api  StripeIntentAPI
	logg *logger.Logger
}

// NewStripeNormalizer wires the Stripe callback handler.
func NewStripeNormalizer(api StripeIntentAPI, logg *logger.Logger) *StripeNormalizer {
	return &StripeNormalizer{api: api, logg: logg}
}

func (n *StripeNormalizer) Gateway() enums.Gateway {
	return enums.GatewayStripe
}

func (n *StripeNormalizer) Normalize(ctx context.Context, params url.Values) (*CallbackSignal, error) {
	intentID := strings.TrimSpace(params.Get("payment_intent"))
	if intentID == "" {
		return failed(enums.GatewayStripe, "", enums.FailureReasonPaymentFailed), nil
	}

	intent, err := n.api.GetPaymentIntent(ctx, intentID)
	if err != nil {
		n.logg.Error(n.logg.WithFields(ctx, map[string]any{"payment_intent": intentID}),
			"stripe intent lookup failed", err)
		return failed(enums.GatewayStripe, intentID, enums.FailureReasonPaymentFailed), nil
	}
	if intent.Status != stripeapi.PaymentIntentStatusSucceeded {
		return failed(enums.GatewayStripe, intentID, enums.FailureReasonPaymentFailed), nil
	}

	now := time.Now().UTC()
	metadata := &types.PaymentMetadata{
		Gateway:       enums.GatewayStripe,
		TransactionID: intent.ID,
		AmountCents:   int(intent.Amount),
		Currency:      strings.ToUpper(string(intent.Currency)),
		CapturedAt:    &now,
		RawStatus:     string(intent.Status),
	}
	if intent.LatestCharge != nil && intent.LatestCharge.PaymentMethodDetails != nil &&
		intent.LatestCharge.PaymentMethodDetails.Card != nil {
		card := intent.LatestCharge.PaymentMethodDetails.Card
		metadata.CardBrand = string(card.Brand)
		metadata.CardLast4 = card.Last4
	}

	return &CallbackSignal{
		Gateway:   enums.GatewayStripe,
		Succeeded: true,
		Reference: intentID,
		OrderRef:  strings.TrimSpace(params.Get("order_id")),
		Metadata:  metadata,
	}, nil
}
