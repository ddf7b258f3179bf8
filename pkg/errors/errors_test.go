package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "gift card lookup")

	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code: %s", err.Code())
	}
	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped cause should be reachable via errors.Is")
	}
}

func TestAsFindsTypedError(t *testing.T) {
	inner := New(CodeStateConflict, "order already settled")
	wrapped := Wrap(CodeInternal, inner, "settlement failed")

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeInternal {
		t.Fatalf("outermost code expected, got %s", typed.Code())
	}
}

func TestMetadataForUnknownCode(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown codes should map to internal, got %d", meta.HTTPStatus)
	}
}

func TestMetadataForGateway(t *testing.T) {
	meta := MetadataFor(CodeGateway)
	if meta.HTTPStatus != http.StatusBadGateway {
		t.Fatalf("gateway code should map to 502, got %d", meta.HTTPStatus)
	}
	if !meta.Retryable {
		t.Fatal("gateway errors are retryable")
	}
}
