package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/storefront-labs/storefront-backend/pkg/errors"
)

func TestWriteSuccessRawPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"url": "https://checkout.example.com"})

	if rec.Code != 200 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content type %q", got)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["url"] != "https://checkout.example.com" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["data"]; ok {
		t.Fatal("success bodies must not be wrapped in an envelope")
	}
}

func TestWriteErrorClientMessageExposed(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeValidation, "Products are required"))

	if rec.Code != 400 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected content type %q", got)
	}
	if rec.Body.String() != "Products are required" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestWriteErrorNotFoundMessageExposed(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeNotFound, "Product with ID abc not found"))

	if rec.Code != 404 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Body.String() != "Product with ID abc not found" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestWriteErrorServerMessagesHidden(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.Wrap(pkgerrors.CodeInternal, errors.New("pq: connection refused"), "persist order"))

	if rec.Code != 500 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Body.String() != "internal server error" {
		t.Fatalf("internal details must not leak, got %q", rec.Body.String())
	}
}

func TestWriteErrorDependencyIs502(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("stripe: api key expired"), "create checkout session"))

	if rec.Code != 502 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Body.String() != "upstream dependency failed" {
		t.Fatalf("dependency details must not leak, got %q", rec.Body.String())
	}
}

func TestWriteErrorUntypedErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, errors.New("boom"))

	if rec.Code != 500 {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec.Body.String() != "internal server error" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}
