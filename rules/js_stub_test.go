//go:build !js_eval

package rules

import (
	"errors"
	"testing"
)

func TestJSEngineUnavailableWithoutTag(t *testing.T) {
	if JSAvailable() {
		t.Fatalf("expected js engine to be unavailable")
	}
	if _, err := NewJSEngine(); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}
