package enums

// GiftCardStatus maps to the gift_card_status enum in Postgres.
type GiftCardStatus string

const (
	GiftCardStatusActive   GiftCardStatus = "active"
	GiftCardStatusDepleted GiftCardStatus = "depleted"
	GiftCardStatusDisabled GiftCardStatus = "disabled"
	GiftCardStatusExpired  GiftCardStatus = "expired"
)

var validGiftCardStatuses = []GiftCardStatus{
	GiftCardStatusActive,
	GiftCardStatusDepleted,
	GiftCardStatusDisabled,
	GiftCardStatusExpired,
}

// IsValid reports whether the value is a known GiftCardStatus.
func (g GiftCardStatus) IsValid() bool {
	for _, candidate := range validGiftCardStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// GiftCardTransactionType classifies a gift card balance movement.
type GiftCardTransactionType string

const (
	GiftCardTxnIssue  GiftCardTransactionType = "issue"
	GiftCardTxnRedeem GiftCardTransactionType = "redeem"
	GiftCardTxnRefund GiftCardTransactionType = "refund"
	GiftCardTxnAdjust GiftCardTransactionType = "adjust"
)

var validGiftCardTransactionTypes = []GiftCardTransactionType{
	GiftCardTxnIssue,
	GiftCardTxnRedeem,
	GiftCardTxnRefund,
	GiftCardTxnAdjust,
}

// IsValid reports whether the value is a known GiftCardTransactionType.
func (g GiftCardTransactionType) IsValid() bool {
	for _, candidate := range validGiftCardTransactionTypes {
		if candidate == g {
			return true
		}
	}
	return false
}
