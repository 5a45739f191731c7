package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	FrameID   ID
	ProblemID ID
)

// String conversions for domain IDs
func (id FrameID) String() string   { return ID(id).String() }
func (id ProblemID) String() string { return ID(id).String() }

// ParseFrameID parses a string into FrameID
func ParseFrameID(s string) (FrameID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("frame ID cannot be empty")
	}
	return FrameID(s), nil
}

// ParseProblemID parses a string into ProblemID
func ParseProblemID(s string) (ProblemID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("problem ID cannot be empty")
	}
	return ProblemID(s), nil
}
