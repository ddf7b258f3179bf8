package enums

// PendingPaymentStatus tracks a payment attempt from redirect to resolution.
type PendingPaymentStatus string

const (
	PendingPaymentInitiated PendingPaymentStatus = "initiated"
	PendingPaymentCaptured  PendingPaymentStatus = "captured"
	PendingPaymentFailed    PendingPaymentStatus = "failed"
	PendingPaymentAbandoned PendingPaymentStatus = "abandoned"
)

var validPendingPaymentStatuses = []PendingPaymentStatus{
	PendingPaymentInitiated,
	PendingPaymentCaptured,
	PendingPaymentFailed,
	PendingPaymentAbandoned,
}

// String implements fmt.Stringer.
func (p PendingPaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PendingPaymentStatus.
func (p PendingPaymentStatus) IsValid() bool {
	for _, candidate := range validPendingPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}
