package simulation

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewRunID(t *testing.T) {
	id := NewRunID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("Expected a UUID, got %q: %v", id, err)
	}

	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRunID()
		if ids[id] {
			t.Errorf("Duplicate ID found: %s", id)
		}
		ids[id] = true
	}
}
