package paypal

import "testing"

func TestParseAmountCents(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"12.34", 1234},
		{"0.50", 50},
		{"100", 10000},
		{"7.5", 750},
		{"-3.25", -325},
		{"", 0},
		{"abc", 0},
	}
	for _, tc := range cases {
		if got := parseAmountCents(tc.in); got != tc.want {
			t.Errorf("parseAmountCents(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestCaptureResultCompleted(t *testing.T) {
	if !(CaptureResult{Status: "COMPLETED"}).Completed() {
		t.Fatal("completed status should report completed")
	}
	if !(CaptureResult{AlreadyCaptured: true}).Completed() {
		t.Fatal("already captured should report completed")
	}
	if (CaptureResult{Status: "DECLINED"}).Completed() {
		t.Fatal("declined should not report completed")
	}
}

func TestHasIssue(t *testing.T) {
	body := []byte(`{"details":[{"issue":"ORDER_ALREADY_CAPTURED"}]}`)
	if !hasIssue(body, issueOrderAlreadyCaptured) {
		t.Fatal("expected issue match")
	}
	if hasIssue([]byte(`{"details":[]}`), issueOrderAlreadyCaptured) {
		t.Fatal("expected no match for empty details")
	}
	if hasIssue([]byte(`not json`), issueOrderAlreadyCaptured) {
		t.Fatal("expected no match for bad json")
	}
}

func TestParseCaptureResponse(t *testing.T) {
	body := []byte(`{
		"id": "5O190127TN364715T",
		"status": "COMPLETED",
		"payer": {"email_address": "buyer@example.com"},
		"purchase_units": [{
			"payments": {"captures": [{
				"id": "3C679366HH908993F",
				"status": "COMPLETED",
				"amount": {"currency_code": "USD", "value": "42.00"}
			}]}
		}]
	}`)

	result, err := parseCaptureResponse(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if result.CaptureID != "3C679366HH908993F" {
		t.Fatalf("capture id mismatch: %s", result.CaptureID)
	}
	if result.AmountCents != 4200 {
		t.Fatalf("amount mismatch: %d", result.AmountCents)
	}
	if !result.Completed() {
		t.Fatal("expected completed result")
	}
}
