package gateway

import (
	"context"
	"net/url"
	"strings"
	"time"

	sq "github.com/square/square-go-sdk"

	"github.com/craftora/storefront-backend/pkg/enums"
	"github.com/craftora/storefront-backend/pkg/logger"
	"github.com/craftora/storefront-backend/pkg/types"
)

// SquarePaymentAPI is the slice of the Square client the normalizer needs.
type SquarePaymentAPI interface {
	GetPayment(ctx context.Context, paymentID string) (*sq.Payment, error)
}

// SquareNormalizer verifies the payment server side rather than
// trusting the redirect parameters.
type SquareNormalizer struct {
	api  SquarePaymentAPI
	logg *logger.Logger
}

// NewSquareNormalizer wires the Square callback handler.
func NewSquareNormalizer(api SquarePaymentAPI, logg *logger.Logger) *SquareNormalizer {
	return &SquareNormalizer{api: api, logg: logg}
}

func (n *SquareNormalizer) Gateway() enums.Gateway {
	return enums.GatewaySquare
}

func (n *SquareNormalizer) Normalize(ctx context.Context, params url.Values) (*CallbackSignal, error) {
	paymentID := strings.TrimSpace(params.Get("payment_id"))
	if paymentID == "" {
		// Older Square checkouts use transactionId on the redirect.
		paymentID = strings.TrimSpace(params.Get("transactionId"))
	}
	if paymentID == "" {
		return failed(enums.GatewaySquare, "", enums.FailureReasonPaymentFailed), nil
	}

	payment, err := n.api.GetPayment(ctx, paymentID)
	if err != nil {
		n.logg.Error(n.logg.WithFields(ctx, map[string]any{"payment_id": paymentID}),
			"square payment lookup failed", err)
		return failed(enums.GatewaySquare, paymentID, enums.FailureReasonPaymentFailed), nil
	}

	status := strings.ToUpper(deref(payment.GetStatus()))
	if status != "COMPLETED" {
		return failed(enums.GatewaySquare, paymentID, enums.FailureReasonPaymentFailed), nil
	}

	now := time.Now().UTC()
	metadata := &types.PaymentMetadata{
		Gateway:       enums.GatewaySquare,
		TransactionID: deref(payment.GetID()),
		CapturedAt:    &now,
		RawStatus:     status,
	}
	if money := payment.GetAmountMoney(); money != nil {
		if amount := money.GetAmount(); amount != nil {
			metadata.AmountCents = int(*amount)
		}
		if currency := money.GetCurrency(); currency != nil {
			metadata.Currency = string(*currency)
		}
	}
	if details := payment.GetCardDetails(); details != nil {
		if card := details.GetCard(); card != nil {
			if brand := card.GetCardBrand(); brand != nil {
				metadata.CardBrand = string(*brand)
			}
			if last4 := card.GetLast4(); last4 != nil {
				metadata.CardLast4 = *last4
			}
		}
	}

	return &CallbackSignal{
		Gateway:   enums.GatewaySquare,
		Succeeded: true,
		Reference: paymentID,
		OrderRef:  strings.TrimSpace(params.Get("order_id")),
		Metadata:  metadata,
	}, nil
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
