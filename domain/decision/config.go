package decision

import (
	"fmt"

	"godecide/domain/core"
)

// EmptySelectionPolicy decides what a subset comparison does when the
// selection mask is empty.
type EmptySelectionPolicy string

const (
	// DegradeToPsi treats an empty selection as a plain interval evaluation
	DegradeToPsi EmptySelectionPolicy = "degrade_to_psi"
	// RejectEmpty fails an empty selection with an input error
	RejectEmpty EmptySelectionPolicy = "reject"
)

// Config carries the engine switches: the consistency tolerance, the
// vertex-enumeration correction limits, and the empty-selection policy.
type Config struct {
	// Epsilon is the consistency tolerance for level sums and bound checks
	Epsilon float64 `json:"epsilon"`
	// WarpEnabled switches the vertex-enumeration correction on
	WarpEnabled bool `json:"warp_enabled"`
	// WarpSoftDim is the largest sibling count corrected at full strength;
	// between it and WarpHardDim the correction fades linearly to zero. The
	// enumeration is exponential in the sibling count, so both caps are
	// mandatory.
	WarpSoftDim int `json:"warp_soft_dim"`
	WarpHardDim int `json:"warp_hard_dim"`
	// EmptySelection picks the subset-comparison behavior on an empty mask
	EmptySelection EmptySelectionPolicy `json:"empty_selection"`
}

// DefaultConfig returns the stock engine configuration
func DefaultConfig() Config {
	return Config{
		Epsilon:        1e-6,
		WarpEnabled:    true,
		WarpSoftDim:    6,
		WarpHardDim:    12,
		EmptySelection: DegradeToPsi,
	}
}

// Validate rejects unusable engine settings
func (c Config) Validate() error {
	if c.Epsilon <= 0 || c.Epsilon >= 0.1 {
		return core.NewInputError("config", fmt.Sprintf("epsilon %g outside (0, 0.1)", c.Epsilon))
	}
	if c.WarpSoftDim < 1 || c.WarpHardDim < c.WarpSoftDim {
		return core.NewInputError("config", fmt.Sprintf("warp dims soft=%d hard=%d must satisfy 1 <= soft <= hard", c.WarpSoftDim, c.WarpHardDim))
	}
	if c.WarpHardDim > 24 {
		return core.NewInputError("config", fmt.Sprintf("warp hard dim %d too large, enumeration is 2^dim", c.WarpHardDim))
	}
	if c.EmptySelection != DegradeToPsi && c.EmptySelection != RejectEmpty {
		return core.NewInputError("config", fmt.Sprintf("unknown empty-selection policy %q", c.EmptySelection))
	}
	return nil
}
