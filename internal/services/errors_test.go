package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"flowcatalog/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrAnalysis, "analysis", "llm", "request failed", base)
	if !errors.Is(err, services.ErrAnalysis) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"analysis", "llm", "request failed", "boom"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestDetailsClassification(t *testing.T) {
	tests := []struct {
		err  error
		kind string
	}{
		{services.Wrap(services.ErrValidation, "importer", "validate", "empty", nil), "validation"},
		{services.Wrap(services.ErrParse, "pipeline", "parse", "", nil), "parse"},
		{fmt.Errorf("outer: %w", services.Wrap(services.ErrAnalysis, "", "", "x", nil)), "analysis"},
		{errors.New("database is locked"), "storage"},
	}
	for _, tt := range tests {
		if got := services.Details(tt.err).Kind; got != tt.kind {
			t.Fatalf("Details(%v).Kind = %q, want %q", tt.err, got, tt.kind)
		}
	}
	if got := services.Details(nil); got.Kind != "" || got.Message != "" {
		t.Fatalf("expected empty details for nil, got %+v", got)
	}
}

func TestIsItemFailure(t *testing.T) {
	if !services.IsItemFailure(services.Wrap(services.ErrParse, "", "", "", nil)) {
		t.Fatal("parse errors fail the item")
	}
	if !services.IsItemFailure(services.Wrap(services.ErrAnalysis, "", "", "", nil)) {
		t.Fatal("analysis errors fail the item")
	}
	if !services.IsItemFailure(services.Wrap(services.ErrTimeout, "", "", "", nil)) {
		t.Fatal("timeouts fail the item")
	}
	if services.IsItemFailure(errors.New("disk I/O error")) {
		t.Fatal("storage errors must propagate")
	}
}
