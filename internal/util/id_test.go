package util

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewID(t *testing.T) {
	id := NewID("plan")
	if !strings.HasPrefix(id, "plan_") {
		t.Fatalf("NewID(plan) = %q, want plan_ prefix", id)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(id, "plan_")); err != nil {
		t.Fatalf("suffix is not a uuid: %v", err)
	}
	if NewID("") == NewID("") {
		t.Fatal("expected distinct ids")
	}
}
