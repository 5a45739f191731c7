package decision

import (
	"fmt"

	"godecide/domain/core"
)

// Limits caps frame sizes and statement counts. Every limit is checked as a
// precondition, so a limit violation never needs a rollback.
type Limits struct {
	// MaxAlternatives may not exceed 64; subset selections are one mask word
	MaxAlternatives int `json:"max_alternatives"`
	// MaxLeaves caps one flat alternative, MaxNodes one tree alternative
	MaxLeaves     int `json:"max_leaves"`
	MaxNodes      int `json:"max_nodes"`
	MaxTotalNodes int `json:"max_total_nodes"`
	MaxStatements int `json:"max_statements"`
	// MinStatementWidth below this width rejects a statement; 0 disables the check
	MinStatementWidth float64 `json:"min_statement_width"`
}

// DefaultLimits returns the stock capacity configuration
func DefaultLimits() Limits {
	return Limits{
		MaxAlternatives:   32,
		MaxLeaves:         128,
		MaxNodes:          255,
		MaxTotalNodes:     2048,
		MaxStatements:     1024,
		MinStatementWidth: 0,
	}
}

// Validate rejects non-positive capacities
func (l Limits) Validate() error {
	if l.MaxAlternatives < 2 || l.MaxAlternatives > 64 {
		return core.NewInputError("limits", fmt.Sprintf("max alternatives must lie in [2, 64], got %d", l.MaxAlternatives))
	}
	if l.MaxLeaves < 1 || l.MaxNodes < 1 || l.MaxTotalNodes < 2 {
		return core.NewInputError("limits", "node capacities must be positive")
	}
	if l.MaxStatements < 1 {
		return core.NewInputError("limits", "statement capacity must be positive")
	}
	if l.MinStatementWidth < 0 || l.MinStatementWidth > 1 {
		return core.NewInputError("limits", "minimum statement width must lie in [0, 1]")
	}
	return nil
}
