package decision

import (
	"fmt"

	"godecide/domain/core"
	"godecide/domain/tree"
)

// State names a frame's lifecycle position
type State string

const (
	// Detached frames hold statements but no derived state
	Detached State = "detached"
	// Attached frames carry hulls and mass points consistent with their bases
	Attached State = "attached"
	// Damaged frames failed a rollback rederivation; only Dispose is left
	Damaged State = "damaged"
	// Disposed frames reject every operation
	Disposed State = "disposed"
)

// Frame is one decision problem: 2..MaxAlternatives alternatives, each a
// tree of outcome nodes, with a probability base and a value base attached.
//
// A frame is not internally synchronized. Concurrent mutation of the same
// frame must be serialized by the caller; read-only queries against an
// attached, unmutated frame are safe to run concurrently because all
// derivation scratch is call-local.
type Frame struct {
	id     core.FrameID
	limits Limits
	cfg    Config

	ix    *tree.Index
	flat  bool
	state State

	pbase *base
	vbase *base
	der   *derived
}

// NewFlatFrame creates a frame whose alternatives are one-level trees:
// leafCounts[i] leaves directly under alternative i+1.
func NewFlatFrame(limits Limits, cfg Config, leafCounts []int) (*Frame, error) {
	if err := checkShapeCommon(limits, cfg, len(leafCounts)); err != nil {
		return nil, err
	}
	topos := make([]*tree.Topology, len(leafCounts))
	total := 0
	for i, n := range leafCounts {
		if n > limits.MaxLeaves {
			return nil, fmt.Errorf("%w: alternative %d has %d leaves, limit %d", core.ErrTooManyCons, i+1, n, limits.MaxLeaves)
		}
		topo, err := tree.NewFlat(n)
		if err != nil {
			return nil, err
		}
		topos[i] = topo
		total += n
	}
	if total > limits.MaxTotalNodes {
		return nil, fmt.Errorf("%w: %d nodes across alternatives, limit %d", core.ErrTooManyCons, total, limits.MaxTotalNodes)
	}
	f, err := newFrame(limits, cfg, topos)
	if err != nil {
		return nil, err
	}
	f.flat = true
	return f, nil
}

// NewTreeFrame creates a frame from per-alternative successor links. For
// alternative i+1, next[i] and down[i] describe totals[i] nodes as in
// tree.NewTree.
func NewTreeFrame(limits Limits, cfg Config, totals []int, next, down [][]int) (*Frame, error) {
	if err := checkShapeCommon(limits, cfg, len(totals)); err != nil {
		return nil, err
	}
	if len(next) != len(totals) || len(down) != len(totals) {
		return nil, core.NewInputError("link arrays", fmt.Sprintf("need %d alternatives, got next=%d down=%d", len(totals), len(next), len(down)))
	}
	topos := make([]*tree.Topology, len(totals))
	total := 0
	for i, n := range totals {
		if n > limits.MaxNodes {
			return nil, fmt.Errorf("%w: alternative %d has %d nodes, limit %d", core.ErrTooManyCons, i+1, n, limits.MaxNodes)
		}
		topo, err := tree.NewTree(n, next[i], down[i])
		if err != nil {
			return nil, err
		}
		topos[i] = topo
		total += n
	}
	if total > limits.MaxTotalNodes {
		return nil, fmt.Errorf("%w: %d nodes across alternatives, limit %d", core.ErrTooManyCons, total, limits.MaxTotalNodes)
	}
	return newFrame(limits, cfg, topos)
}

func checkShapeCommon(limits Limits, cfg Config, alts int) error {
	if err := limits.Validate(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if alts < 2 {
		return fmt.Errorf("%w: got %d, need at least 2", core.ErrTooFewAlts, alts)
	}
	if alts > limits.MaxAlternatives {
		return fmt.Errorf("%w: got %d, limit %d", core.ErrTooManyAlts, alts, limits.MaxAlternatives)
	}
	return nil
}

func newFrame(limits Limits, cfg Config, topos []*tree.Topology) (*Frame, error) {
	ix, err := tree.NewIndex(topos)
	if err != nil {
		return nil, err
	}
	return &Frame{
		id:     core.FrameID(core.NewID()),
		limits: limits,
		cfg:    cfg,
		ix:     ix,
		state:  Detached,
		pbase:  newBase(P, ix.TotalNodes()),
		vbase:  newBase(V, ix.TotalReal()),
	}, nil
}

// ===== Lifecycle =====

// ID returns the frame's identifier
func (f *Frame) ID() core.FrameID { return f.id }

// State returns the current lifecycle state
func (f *Frame) State() State { return f.state }

// Limits returns the frame's capacity configuration
func (f *Frame) Limits() Limits { return f.limits }

// EngineConfig returns the frame's engine switches
func (f *Frame) EngineConfig() Config { return f.cfg }

// Index returns the frame's coordinate tables; valid in every live state
func (f *Frame) Index() *tree.Index { return f.ix }

// NumAlts returns the number of alternatives
func (f *Frame) NumAlts() int { return f.ix.NumAlts() }

// Attach derives hulls and mass points from the bases. On failure the frame
// stays detached and keeps its statements.
func (f *Frame) Attach() error {
	if err := f.guardLive(); err != nil {
		return err
	}
	if f.state == Attached {
		return fmt.Errorf("%w: frame %s", core.ErrAttached, f.id)
	}
	der, err := derive(f)
	if err != nil {
		return err
	}
	f.der = der
	f.state = Attached
	return nil
}

// Detach drops the derived state; statements survive for the next attach
func (f *Frame) Detach() error {
	if err := f.guardLive(); err != nil {
		return err
	}
	if f.state != Attached {
		return fmt.Errorf("%w: frame %s", core.ErrDetached, f.id)
	}
	f.der = nil
	f.state = Detached
	return nil
}

// Dispose releases the frame. Every later operation, including a second
// Dispose, fails with a corruption error.
func (f *Frame) Dispose() error {
	if f.state == Disposed {
		return fmt.Errorf("%w: frame %s disposed twice", core.ErrCorrupted, f.id)
	}
	f.der = nil
	f.pbase = nil
	f.vbase = nil
	f.state = Disposed
	return nil
}

// guardLive rejects disposed and damaged frames
func (f *Frame) guardLive() error {
	switch f.state {
	case Disposed:
		return fmt.Errorf("%w: frame %s is disposed", core.ErrCorrupted, f.id)
	case Damaged:
		return fmt.Errorf("%w: frame %s is damaged, dispose and recreate", core.ErrCorrupted, f.id)
	}
	return nil
}

// guardAttached rejects everything but the attached state
func (f *Frame) guardAttached() error {
	if err := f.guardLive(); err != nil {
		return err
	}
	if f.state != Attached {
		return fmt.Errorf("%w: frame %s", core.ErrDetached, f.id)
	}
	return nil
}

// ===== Base mutation =====
// Every mutation validates its inputs up front, snapshots the base, applies,
// and, when attached, rederives the full derived state. A failed rederivation
// restores the snapshot and rederives again; if even that fails the frame is
// damaged and must be disposed.

func (f *Frame) baseFor(layer Layer) (*base, error) {
	switch layer {
	case P:
		return f.pbase, nil
	case V:
		return f.vbase, nil
	}
	return nil, core.NewInputError("layer", fmt.Sprintf("unknown layer %q", layer))
}

func (f *Frame) mutate(b *base, apply func(*base) error) error {
	snap := b.snapshot()
	if err := apply(b); err != nil {
		b.restore(snap)
		return err
	}
	if f.state != Attached {
		return nil
	}
	der, err := derive(f)
	if err == nil {
		f.der = der
		return nil
	}
	b.restore(snap)
	der2, err2 := derive(f)
	if err2 != nil {
		f.der = nil
		f.state = Damaged
		return fmt.Errorf("%w (rollback rederivation also failed: %v; frame requires dispose)", err, err2)
	}
	f.der = der2
	return err
}

// checkStatement validates bounds, width, node reference, and node kind
func (f *Frame) checkStatement(layer Layer, s Statement) error {
	if err := s.checkBounds(); err != nil {
		return err
	}
	if w := f.limits.MinStatementWidth; w > 0 && s.Hi-s.Lo < w {
		return fmt.Errorf("%w: width %g below minimum %g", core.ErrTooNarrowStmt, s.Hi-s.Lo, w)
	}
	if err := f.ix.CheckNode(s.Alt, s.Node); err != nil {
		return err
	}
	if layer == V {
		topo, err := f.ix.Alt(s.Alt)
		if err != nil {
			return err
		}
		if !topo.IsReal(s.Node) {
			return fmt.Errorf("%w: value statement on intermediate node (%d,%d)", core.ErrIllegalNode, s.Alt, s.Node)
		}
	}
	return nil
}

// slotFor maps a node reference into the layer's array slot
func (f *Frame) slotFor(layer Layer, alt, pos int) (int, error) {
	if layer == P {
		return f.ix.Seq(alt, pos)
	}
	return f.ix.GlobalReal(alt, pos)
}

// AddStatement appends a statement to a base
func (f *Frame) AddStatement(layer Layer, s Statement) error {
	if err := f.guardLive(); err != nil {
		return err
	}
	b, err := f.baseFor(layer)
	if err != nil {
		return err
	}
	if len(b.stmts) >= f.limits.MaxStatements {
		return fmt.Errorf("%w: %s base at capacity %d", core.ErrTooManyStmts, layer, f.limits.MaxStatements)
	}
	if err := f.checkStatement(layer, s); err != nil {
		return err
	}
	return f.mutate(b, func(b *base) error {
		b.stmts = append(b.stmts, s)
		return nil
	})
}

// ReplaceStatement swaps statement n for a new one, keeping its number
func (f *Frame) ReplaceStatement(layer Layer, n int, s Statement) error {
	if err := f.guardLive(); err != nil {
		return err
	}
	b, err := f.baseFor(layer)
	if err != nil {
		return err
	}
	if err := b.checkNumber(n); err != nil {
		return err
	}
	if err := f.checkStatement(layer, s); err != nil {
		return err
	}
	return f.mutate(b, func(b *base) error {
		b.stmts[n-1] = s
		return nil
	})
}

// ChangeStatement rewrites only the bounds of statement n
func (f *Frame) ChangeStatement(layer Layer, n int, lo, hi float64) error {
	if err := f.guardLive(); err != nil {
		return err
	}
	b, err := f.baseFor(layer)
	if err != nil {
		return err
	}
	if err := b.checkNumber(n); err != nil {
		return err
	}
	s := b.stmts[n-1]
	s.Lo, s.Hi = lo, hi
	if err := f.checkStatement(layer, s); err != nil {
		return err
	}
	return f.mutate(b, func(b *base) error {
		b.stmts[n-1] = s
		return nil
	})
}

// DeleteStatement removes statement n and renumbers those after it
func (f *Frame) DeleteStatement(layer Layer, n int) error {
	if err := f.guardLive(); err != nil {
		return err
	}
	b, err := f.baseFor(layer)
	if err != nil {
		return err
	}
	if err := b.checkNumber(n); err != nil {
		return err
	}
	return f.mutate(b, func(b *base) error {
		b.stmts = append(b.stmts[:n-1], b.stmts[n:]...)
		return nil
	})
}

// SetMidpoint pins a node's mass point hint
func (f *Frame) SetMidpoint(layer Layer, alt, pos int, v float64) error {
	if err := f.guardLive(); err != nil {
		return err
	}
	b, err := f.baseFor(layer)
	if err != nil {
		return err
	}
	if v < 0 || v > 1 {
		return core.NewInputError("midpoint", fmt.Sprintf("%g outside [0, 1]", v))
	}
	slot, err := f.slotFor(layer, alt, pos)
	if err != nil {
		return err
	}
	return f.mutate(b, func(b *base) error {
		b.mids[slot] = v
		return nil
	})
}

// ClearMidpoint removes a node's mass point hint
func (f *Frame) ClearMidpoint(layer Layer, alt, pos int) error {
	if err := f.guardLive(); err != nil {
		return err
	}
	b, err := f.baseFor(layer)
	if err != nil {
		return err
	}
	slot, err := f.slotFor(layer, alt, pos)
	if err != nil {
		return err
	}
	return f.mutate(b, func(b *base) error {
		b.mids[slot] = midpointUnset
		return nil
	})
}

// SetBox installs a full box override, one interval per slot in the layer's
// index order.
func (f *Frame) SetBox(layer Layer, vals []Interval) error {
	if err := f.guardLive(); err != nil {
		return err
	}
	b, err := f.baseFor(layer)
	if err != nil {
		return err
	}
	return f.mutate(b, func(b *base) error {
		return b.setBox(vals)
	})
}

// UnsetBox reverts the box override to the default [0, 1] everywhere
func (f *Frame) UnsetBox(layer Layer) error {
	if err := f.guardLive(); err != nil {
		return err
	}
	b, err := f.baseFor(layer)
	if err != nil {
		return err
	}
	return f.mutate(b, func(b *base) error {
		b.unsetBox()
		return nil
	})
}

// SetMidpointBox installs a full hint array in the layer's index order;
// entries of -1 clear the slot.
func (f *Frame) SetMidpointBox(layer Layer, vals []float64) error {
	if err := f.guardLive(); err != nil {
		return err
	}
	b, err := f.baseFor(layer)
	if err != nil {
		return err
	}
	return f.mutate(b, func(b *base) error {
		return b.setMidpointBox(vals)
	})
}

// ===== Base queries =====
// Statement and box accessors work detached or attached; the serializer
// needs nothing else.

// Statements returns a copy of a base's statement list
func (f *Frame) Statements(layer Layer) ([]Statement, error) {
	if err := f.guardLive(); err != nil {
		return nil, err
	}
	b, err := f.baseFor(layer)
	if err != nil {
		return nil, err
	}
	return b.statementsCopy(), nil
}

// NumStatements returns a base's statement count
func (f *Frame) NumStatements(layer Layer) (int, error) {
	if err := f.guardLive(); err != nil {
		return 0, err
	}
	b, err := f.baseFor(layer)
	if err != nil {
		return 0, err
	}
	return len(b.stmts), nil
}

// Box returns the effective raw box, one interval per slot in index order
func (f *Frame) Box(layer Layer) ([]Interval, error) {
	if err := f.guardLive(); err != nil {
		return nil, err
	}
	b, err := f.baseFor(layer)
	if err != nil {
		return nil, err
	}
	return b.boxCopy(), nil
}

// MidpointBox returns the hint array, -1 marking unset slots
func (f *Frame) MidpointBox(layer Layer) ([]float64, error) {
	if err := f.guardLive(); err != nil {
		return nil, err
	}
	b, err := f.baseFor(layer)
	if err != nil {
		return nil, err
	}
	return b.midpointBoxCopy(), nil
}

// ===== Derived queries (attached only) =====

// Hull returns a node's local and global probability hull
func (f *Frame) Hull(alt, pos int) (Interval, Interval, error) {
	if err := f.guardAttached(); err != nil {
		return Interval{}, Interval{}, err
	}
	seq, err := f.ix.Seq(alt, pos)
	if err != nil {
		return Interval{}, Interval{}, err
	}
	return f.der.hullL[seq], f.der.hullG[seq], nil
}

// MassPoint returns a node's local and global probability mass point
func (f *Frame) MassPoint(alt, pos int) (float64, float64, error) {
	if err := f.guardAttached(); err != nil {
		return 0, 0, err
	}
	seq, err := f.ix.Seq(alt, pos)
	if err != nil {
		return 0, 0, err
	}
	return f.der.massL[seq], f.der.massG[seq], nil
}

// ValueBounds returns a real node's tightened value interval
func (f *Frame) ValueBounds(alt, pos int) (Interval, error) {
	if err := f.guardAttached(); err != nil {
		return Interval{}, err
	}
	slot, err := f.ix.GlobalReal(alt, pos)
	if err != nil {
		return Interval{}, err
	}
	return f.der.vbox[slot], nil
}

// ValueMassPoint returns a real node's focal value
func (f *Frame) ValueMassPoint(alt, pos int) (float64, error) {
	if err := f.guardAttached(); err != nil {
		return 0, err
	}
	slot, err := f.ix.GlobalReal(alt, pos)
	if err != nil {
		return 0, err
	}
	return f.der.vfocal[slot], nil
}

// ===== Bulk derived queries =====
// The engines fetch whole arrays once per call and keep their scratch local,
// which is what makes concurrent read-only evaluation safe.

// HullLocalAll returns local hulls for every node, element i holding
// sequential index i+1.
func (f *Frame) HullLocalAll() ([]Interval, error) {
	if err := f.guardAttached(); err != nil {
		return nil, err
	}
	return copyIntervals(f.der.hullL), nil
}

// HullGlobalAll returns global hulls in sequential order
func (f *Frame) HullGlobalAll() ([]Interval, error) {
	if err := f.guardAttached(); err != nil {
		return nil, err
	}
	return copyIntervals(f.der.hullG), nil
}

// MassLocalAll returns local mass points in sequential order
func (f *Frame) MassLocalAll() ([]float64, error) {
	if err := f.guardAttached(); err != nil {
		return nil, err
	}
	return copyFloats(f.der.massL), nil
}

// MassGlobalAll returns global mass points in sequential order
func (f *Frame) MassGlobalAll() ([]float64, error) {
	if err := f.guardAttached(); err != nil {
		return nil, err
	}
	return copyFloats(f.der.massG), nil
}

// ValueBoundsAll returns tightened value intervals, element i holding global
// real index i+1.
func (f *Frame) ValueBoundsAll() ([]Interval, error) {
	if err := f.guardAttached(); err != nil {
		return nil, err
	}
	return copyIntervals(f.der.vbox), nil
}

// ValueMassAll returns focal values in global real order
func (f *Frame) ValueMassAll() ([]float64, error) {
	if err := f.guardAttached(); err != nil {
		return nil, err
	}
	return copyFloats(f.der.vfocal), nil
}

// AltMassGlobal returns one alternative's global mass points over its real
// nodes in local real order, the probability vector omega dots with.
func (f *Frame) AltMassGlobal(alt int) ([]float64, error) {
	if err := f.guardAttached(); err != nil {
		return nil, err
	}
	topo, err := f.ix.Alt(alt)
	if err != nil {
		return nil, err
	}
	off, _ := f.ix.SeqOffset(alt)
	out := make([]float64, topo.RealCount())
	for k := 1; k <= topo.RealCount(); k++ {
		pos, err := topo.RealPosition(k)
		if err != nil {
			return nil, err
		}
		out[k-1] = f.der.massG[off+pos]
	}
	return out, nil
}

// AltValueMass returns one alternative's focal values in local real order
func (f *Frame) AltValueMass(alt int) ([]float64, error) {
	if err := f.guardAttached(); err != nil {
		return nil, err
	}
	topo, err := f.ix.Alt(alt)
	if err != nil {
		return nil, err
	}
	off, _ := f.ix.RealOffset(alt)
	out := make([]float64, topo.RealCount())
	for k := 1; k <= topo.RealCount(); k++ {
		out[k-1] = f.der.vfocal[off+k]
	}
	return out, nil
}

// AltValueBounds returns one alternative's tightened value intervals in local
// real order.
func (f *Frame) AltValueBounds(alt int) ([]Interval, error) {
	if err := f.guardAttached(); err != nil {
		return nil, err
	}
	topo, err := f.ix.Alt(alt)
	if err != nil {
		return nil, err
	}
	off, _ := f.ix.RealOffset(alt)
	out := make([]Interval, topo.RealCount())
	for k := 1; k <= topo.RealCount(); k++ {
		out[k-1] = f.der.vbox[off+k]
	}
	return out, nil
}

func copyIntervals(src []Interval) []Interval {
	out := make([]Interval, len(src)-1)
	copy(out, src[1:])
	return out
}

func copyFloats(src []float64) []float64 {
	out := make([]float64, len(src)-1)
	copy(out, src[1:])
	return out
}
