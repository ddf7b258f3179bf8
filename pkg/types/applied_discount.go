package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/craftora/storefront-backend/pkg/enums"
)

// AppliedDiscount records a discount that reduced the order total.
// Exactly one of DiscountID or AutomaticDiscountID is set.
type AppliedDiscount struct {
	DiscountID          *uuid.UUID         `json:"discount_id,omitempty"`
	AutomaticDiscountID *uuid.UUID         `json:"automatic_discount_id,omitempty"`
	Code                string             `json:"code,omitempty"`
	Type                enums.DiscountType `json:"type"`
	AmountCents         int                `json:"amount_cents"`
}

// IsCodeBased reports whether the discount was entered by the customer.
func (a AppliedDiscount) IsCodeBased() bool {
	return a.DiscountID != nil
}

// AppliedDiscountList stores the applied discounts in a JSONB column.
type AppliedDiscountList []AppliedDiscount

// Value serializes the list to JSON.
func (l *AppliedDiscountList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan decodes JSONB into the list.
func (l *AppliedDiscountList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded AppliedDiscountList
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*l = decoded
	return nil
}
