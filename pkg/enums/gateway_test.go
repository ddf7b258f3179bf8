package enums

import "testing"

func TestParseGatewayNormalizes(t *testing.T) {
	g, err := ParseGateway(" PayPal ")
	if err != nil {
		t.Fatalf("parse gateway: %v", err)
	}
	if g != GatewayPayPal {
		t.Fatalf("expected paypal, got %s", g)
	}
}

func TestParseGatewayRejectsUnknown(t *testing.T) {
	if _, err := ParseGateway("venmo"); err == nil {
		t.Fatal("expected error for unknown gateway")
	}
}

func TestFinancialStatusValidity(t *testing.T) {
	if !FinancialStatusPending.IsValid() {
		t.Fatal("pending should be valid")
	}
	if FinancialStatus("settledd").IsValid() {
		t.Fatal("typo should be invalid")
	}
}
