package decision

import (
	"fmt"

	"godecide/domain/core"
)

// base is one constraint store: the ordered statement list, the optional
// full box override, and the midpoint-hint array. The probability base has
// one slot per node (global sequential order), the value base one slot per
// real node (global real order). Slot 0 is unused so slots line up with the
// 1-based index maps.
type base struct {
	layer Layer
	size  int

	stmts  []Statement
	boxSet bool
	box    []Interval
	mids   []float64 // midpointUnset marks empty slots
}

// midpointUnset is the sentinel for an absent midpoint hint
const midpointUnset = -1.0

func newBase(layer Layer, size int) *base {
	b := &base{
		layer: layer,
		size:  size,
		box:   make([]Interval, size+1),
		mids:  make([]float64, size+1),
	}
	for i := range b.box {
		b.box[i] = UnitInterval()
	}
	for i := range b.mids {
		b.mids[i] = midpointUnset
	}
	return b
}

// snapshot copies the full base for rollback
func (b *base) snapshot() *base {
	cp := &base{
		layer:  b.layer,
		size:   b.size,
		stmts:  make([]Statement, len(b.stmts)),
		boxSet: b.boxSet,
		box:    make([]Interval, len(b.box)),
		mids:   make([]float64, len(b.mids)),
	}
	copy(cp.stmts, b.stmts)
	copy(cp.box, b.box)
	copy(cp.mids, b.mids)
	return cp
}

// restore puts a snapshot back in place
func (b *base) restore(snap *base) {
	b.stmts = snap.stmts
	b.boxSet = snap.boxSet
	b.box = snap.box
	b.mids = snap.mids
}

// checkNumber validates a 1-based statement number
func (b *base) checkNumber(n int) error {
	if n < 1 || n > len(b.stmts) {
		return core.NewStatementRangeError(n)
	}
	return nil
}

// boxAt returns the effective raw bound of a slot: the override when the box
// is set, [0, 1] otherwise.
func (b *base) boxAt(slot int) Interval {
	if b.boxSet {
		return b.box[slot]
	}
	return UnitInterval()
}

// midpointAt returns the hint for a slot and whether one is set
func (b *base) midpointAt(slot int) (float64, bool) {
	m := b.mids[slot]
	return m, m != midpointUnset
}

// setBox installs a full box override; vals is 0-based in slot order
func (b *base) setBox(vals []Interval) error {
	if len(vals) != b.size {
		return core.NewInputError("box", fmt.Sprintf("%s base needs %d intervals, got %d", b.layer, b.size, len(vals)))
	}
	for i, iv := range vals {
		if !iv.InUnit() {
			return core.NewInputError("box", fmt.Sprintf("interval %d = [%g, %g] not within the unit range", i+1, iv.Lo, iv.Hi))
		}
	}
	copy(b.box[1:], vals)
	b.boxSet = true
	return nil
}

// unsetBox reverts every slot to the default [0, 1]
func (b *base) unsetBox() {
	for i := range b.box {
		b.box[i] = UnitInterval()
	}
	b.boxSet = false
}

// setMidpointBox installs a full hint array; midpointUnset entries clear
func (b *base) setMidpointBox(vals []float64) error {
	if len(vals) != b.size {
		return core.NewInputError("midpoint box", fmt.Sprintf("%s base needs %d values, got %d", b.layer, b.size, len(vals)))
	}
	for i, v := range vals {
		if v != midpointUnset && (v < 0 || v > 1) {
			return core.NewInputError("midpoint box", fmt.Sprintf("value %d = %g outside [0, 1]", i+1, v))
		}
	}
	copy(b.mids[1:], vals)
	return nil
}

// statementsCopy returns the statement list in insertion order
func (b *base) statementsCopy() []Statement {
	out := make([]Statement, len(b.stmts))
	copy(out, b.stmts)
	return out
}

// boxCopy returns the effective box, 0-based in slot order
func (b *base) boxCopy() []Interval {
	out := make([]Interval, b.size)
	for i := 1; i <= b.size; i++ {
		out[i-1] = b.boxAt(i)
	}
	return out
}

// midpointBoxCopy returns the hint array, 0-based in slot order
func (b *base) midpointBoxCopy() []float64 {
	out := make([]float64, b.size)
	copy(out, b.mids[1:])
	return out
}
