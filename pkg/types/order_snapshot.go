package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
)

// SnapshotLineItem is one purchasable line frozen at checkout time.
// Prices are captured here so later catalog edits never change what
// the customer was charged.
type SnapshotLineItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	VariantID      uuid.UUID `json:"variant_id"`
	Title          string    `json:"title"`
	VariantTitle   string    `json:"variant_title,omitempty"`
	SKU            string    `json:"sku,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int       `json:"unit_price_cents"`
	LineTotalCents int       `json:"line_total_cents"`
}

// SnapshotGiftCard records a gift card applied against the order total.
type SnapshotGiftCard struct {
	GiftCardID  uuid.UUID `json:"gift_card_id"`
	CodeLast4   string    `json:"code_last4"`
	AmountCents int       `json:"amount_cents"`
}

// SnapshotAffiliate records the referral attached to the checkout session.
type SnapshotAffiliate struct {
	InfluencerID uuid.UUID `json:"influencer_id"`
	Code         string    `json:"code"`
}

// OrderSnapshot freezes everything the settlement ledger needs about a
// checkout at the moment the customer was sent to the gateway.
type OrderSnapshot struct {
	CheckoutID       uuid.UUID          `json:"checkout_id"`
	CustomerID       *uuid.UUID         `json:"customer_id,omitempty"`
	Email            string             `json:"email"`
	LineItems        []SnapshotLineItem `json:"line_items"`
	Discounts        []AppliedDiscount  `json:"discounts,omitempty"`
	GiftCards        []SnapshotGiftCard `json:"gift_cards,omitempty"`
	StoreCreditCents int                `json:"store_credit_cents,omitempty"`
	Affiliate        *SnapshotAffiliate `json:"affiliate,omitempty"`
	SubtotalCents    int                `json:"subtotal_cents"`
	DiscountCents    int                `json:"discount_cents"`
	ShippingCents    int                `json:"shipping_cents"`
	TaxCents         int                `json:"tax_cents"`
	TotalCents       int                `json:"total_cents"`
	Currency         string             `json:"currency"`
	ShippingAddress  *Address           `json:"shipping_address,omitempty"`
	BillingAddress   *Address           `json:"billing_address,omitempty"`
	ShippingLine     *ShippingLine      `json:"shipping_line,omitempty"`
}

// DueCents is the amount the gateway was asked to capture after gift
// cards and store credit were applied. Clamped at zero.
func (s OrderSnapshot) DueCents() int {
	due := s.TotalCents - s.StoreCreditCents
	for _, gc := range s.GiftCards {
		due -= gc.AmountCents
	}
	if due < 0 {
		return 0
	}
	return due
}

// TotalQuantity sums the quantities across all line items.
func (s OrderSnapshot) TotalQuantity() int {
	total := 0
	for _, li := range s.LineItems {
		total += li.Quantity
	}
	return total
}

// Value serializes the snapshot to JSON.
func (s *OrderSnapshot) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan decodes JSONB into the snapshot struct.
func (s *OrderSnapshot) Scan(value interface{}) error {
	if value == nil {
		*s = OrderSnapshot{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, s)
}
