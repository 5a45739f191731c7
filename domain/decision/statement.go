package decision

import (
	"fmt"

	"godecide/domain/core"
)

// Layer selects one of a frame's two constraint bases
type Layer string

const (
	// P is the probability layer; statements may reference any node
	P Layer = "P"
	// V is the value layer; statements may reference real nodes only
	V Layer = "V"
)

// Valid reports whether the layer is one of P or V
func (l Layer) Valid() bool { return l == P || l == V }

// Statement is one interval bound on a node's probability or value.
// Statements are stored in insertion order and numbered 1..n; deleting one
// renumbers those after it.
type Statement struct {
	Alt  int     `json:"alt"`
	Node int     `json:"node"`
	Lo   float64 `json:"lo"`
	Hi   float64 `json:"hi"`
}

// Interval returns the statement's bound as an interval
func (s Statement) Interval() Interval { return Interval{Lo: s.Lo, Hi: s.Hi} }

// String renders the statement for logs and the command-line tester
func (s Statement) String() string {
	return fmt.Sprintf("node(%d,%d) in [%.4f, %.4f]", s.Alt, s.Node, s.Lo, s.Hi)
}

// checkBounds validates the bare interval of a statement
func (s Statement) checkBounds() error {
	if !s.Interval().InUnit() {
		return core.NewInputError("statement bounds", fmt.Sprintf("[%g, %g] not within 0 <= lo <= hi <= 1", s.Lo, s.Hi))
	}
	return nil
}
