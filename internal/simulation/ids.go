package simulation

import "github.com/google/uuid"

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.NewString()
}
