package enums

// CheckoutFailureReason is carried back to the storefront on a failed
// payment return so the error page can explain what happened.
type CheckoutFailureReason string

const (
	FailureReasonPaymentFailed       CheckoutFailureReason = "payment_failed"
	FailureReasonPayPalCaptureFailed CheckoutFailureReason = "paypal_capture_failed"
	FailureReasonOrderNotFound       CheckoutFailureReason = "order_not_found"
)

var validCheckoutFailureReasons = []CheckoutFailureReason{
	FailureReasonPaymentFailed,
	FailureReasonPayPalCaptureFailed,
	FailureReasonOrderNotFound,
}

// String implements fmt.Stringer.
func (c CheckoutFailureReason) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutFailureReason.
func (c CheckoutFailureReason) IsValid() bool {
	for _, candidate := range validCheckoutFailureReasons {
		if candidate == c {
			return true
		}
	}
	return false
}
