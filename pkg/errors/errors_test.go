package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeConflict, http.StatusConflict},
		{CodeDependency, http.StatusBadGateway},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("code %s: expected status %d got %d", tc.code, tc.status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "create checkout session")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be found with errors.Is")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", err.Code())
	}
	if err.Error() != "DEPENDENCY_ERROR: create checkout session" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeNotFound, "Product with ID p1 not found")
	wrapped := fmt.Errorf("resolving products: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeNotFound {
		t.Fatalf("unexpected code %s", typed.Code())
	}
}

func TestAsReturnsNilForPlainError(t *testing.T) {
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("expected nil for untyped error")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeInternal, stdErrors.New("db down"), "persist order")
	dump := Dump(err)

	if dump.Code != CodeInternal {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected 2 chain entries, got %d", len(dump.Chain))
	}
	if dump.TopMessage == "" {
		t.Fatal("expected top message")
	}
}

func TestNewfFormatsMessage(t *testing.T) {
	err := Newf(CodeNotFound, "Product with ID %s not found", "p1")
	if err.Message() != "Product with ID p1 not found" {
		t.Fatalf("unexpected message %q", err.Message())
	}
}
