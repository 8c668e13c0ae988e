package errmodel

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNewAndFrom(t *testing.T) {
	e := Validation("unknown_tool", "tool not registered", map[string]any{"tool": "lookup"})
	if e.Category != CategoryValidation || e.Code != "unknown_tool" {
		t.Fatalf("unexpected: %#v", e)
	}
	if got := From(e); got != e {
		t.Fatalf("From should return same error instance")
	}

	wrapped := fmt.Errorf("round 2: %w", e)
	if got := From(wrapped); got != e {
		t.Fatalf("From should unwrap to the compact error, got %#v", got)
	}
}

func TestFrom_PlainError(t *testing.T) {
	plain := errors.New("boom")
	ce := From(plain)
	if ce.Category != CategorySystem || ce.Code != "internal" {
		t.Fatalf("unexpected: %#v", ce)
	}
	if !errors.Is(ce, plain) {
		t.Error("compact error should unwrap to its cause")
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{Config("missing_credential", "no key"), http.StatusInternalServerError},
		{Validation("bad_request", "bad json", nil), http.StatusBadRequest},
		{Validation("unknown_tool", "x", nil), http.StatusBadGateway},
		{Model("gateway_error", "x", nil), http.StatusBadGateway},
		{nil, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestTruncateContext(t *testing.T) {
	e := Tool("provider_error", "x", map[string]any{"body": strings.Repeat("a", 1000)}, nil)
	if got := e.Context["body"].(string); len(got) != 256 {
		t.Errorf("context value length = %d, want 256", len(got))
	}
	if !IsCategory(e, CategoryTool) {
		t.Error("IsCategory should match tool category")
	}
}
