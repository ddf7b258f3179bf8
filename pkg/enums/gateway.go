package enums

import (
	"fmt"
	"strings"
)

// Gateway identifies the payment provider behind a callback.
type Gateway string

const (
	GatewayPayPal Gateway = "paypal"
	GatewayStripe Gateway = "stripe"
	GatewaySquare Gateway = "square"
)

var validGateways = []Gateway{
	GatewayPayPal,
	GatewayStripe,
	GatewaySquare,
}

// String implements fmt.Stringer.
func (g Gateway) String() string {
	return string(g)
}

// IsValid reports whether the value is a known Gateway.
func (g Gateway) IsValid() bool {
	for _, candidate := range validGateways {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGateway converts raw input into a Gateway, case-insensitively.
func ParseGateway(value string) (Gateway, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validGateways {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gateway %q", value)
}
