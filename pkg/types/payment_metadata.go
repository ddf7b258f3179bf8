package types

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/craftora/storefront-backend/pkg/enums"
)

// PaymentMetadata captures gateway-reported detail about a settled or
// failed payment attempt, stored alongside the order for support and
// reconciliation.
type PaymentMetadata struct {
	Gateway       enums.Gateway `json:"gateway"`
	TransactionID string        `json:"transaction_id,omitempty"`
	ApprovalCode  string        `json:"approval_code,omitempty"`
	CardBrand     string        `json:"card_brand,omitempty"`
	CardLast4     string        `json:"card_last4,omitempty"`
	AmountCents   int           `json:"amount_cents,omitempty"`
	Currency      string        `json:"currency,omitempty"`
	CapturedAt    *time.Time    `json:"captured_at,omitempty"`
	FailureCode   string        `json:"failure_code,omitempty"`
	RawStatus     string        `json:"raw_status,omitempty"`
}

// Value serializes the metadata to JSON.
func (p *PaymentMetadata) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// Scan decodes JSONB into the metadata struct.
func (p *PaymentMetadata) Scan(value interface{}) error {
	if value == nil {
		*p = PaymentMetadata{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, p)
}
