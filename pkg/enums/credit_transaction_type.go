package enums

// CreditTransactionType classifies a store credit balance movement.
type CreditTransactionType string

const (
	CreditTxnGrant  CreditTransactionType = "grant"
	CreditTxnSpend  CreditTransactionType = "spend"
	CreditTxnRefund CreditTransactionType = "refund"
)

var validCreditTransactionTypes = []CreditTransactionType{
	CreditTxnGrant,
	CreditTxnSpend,
	CreditTxnRefund,
}

// IsValid reports whether the value is a known CreditTransactionType.
func (c CreditTransactionType) IsValid() bool {
	for _, candidate := range validCreditTransactionTypes {
		if candidate == c {
			return true
		}
	}
	return false
}
