// Package util holds small internal helpers shared across packages.
package util

import "github.com/google/uuid"

// NewID generates a unique identifier for turns and tool-call correlation.
func NewID() string { return uuid.NewString() }
