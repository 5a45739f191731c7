package decision

import (
	"fmt"

	"godecide/domain/core"
)

// ShapeKind names the two frame constructions
type ShapeKind string

const (
	// FlatShape frames put every leaf directly under the implicit root
	FlatShape ShapeKind = "flat"
	// TreeShape frames carry explicit successor links per alternative
	TreeShape ShapeKind = "tree"
)

// ProblemShape reproduces a frame's topology
type ProblemShape struct {
	Kind   ShapeKind `json:"kind"`
	Leaves []int     `json:"leaves,omitempty"`
	Totals []int     `json:"totals,omitempty"`
	Next   [][]int   `json:"next,omitempty"`
	Down   [][]int   `json:"down,omitempty"`
}

// BaseRecord is the serialized form of one constraint base. The statement
// list, the box, and the midpoint box are everything a base needs to be
// rebuilt; derived state is never persisted.
type BaseRecord struct {
	Statements  []Statement `json:"statements"`
	BoxSet      bool        `json:"box_set"`
	Box         []Interval  `json:"box,omitempty"`
	MidpointBox []float64   `json:"midpoint_box"`
}

// ProblemRecord is a saved decision problem
type ProblemRecord struct {
	ID          core.ProblemID   `json:"id"`
	Name        string           `json:"name"`
	Shape       ProblemShape     `json:"shape"`
	Limits      Limits           `json:"limits"`
	Config      Config           `json:"config"`
	P           BaseRecord       `json:"p"`
	V           BaseRecord       `json:"v"`
	Fingerprint core.Fingerprint `json:"fingerprint"`
	CreatedAt   core.Timestamp   `json:"created_at"`
	UpdatedAt   core.Timestamp   `json:"updated_at"`
}

// Snapshot captures the frame's full persistent state. Works detached or
// attached; identity and timestamps are the store's concern.
func (f *Frame) Snapshot() (*ProblemRecord, error) {
	if err := f.guardLive(); err != nil {
		return nil, err
	}
	rec := &ProblemRecord{
		Shape:  f.shape(),
		Limits: f.limits,
		Config: f.cfg,
		P:      f.pbase.record(),
		V:      f.vbase.record(),
	}
	rec.Fingerprint = core.ComputeFingerprint(rec.Shape, rec.P, rec.V)
	return rec, nil
}

func (f *Frame) shape() ProblemShape {
	n := f.ix.NumAlts()
	if f.flat {
		shape := ProblemShape{Kind: FlatShape, Leaves: make([]int, n)}
		for alt := 1; alt <= n; alt++ {
			topo, _ := f.ix.Alt(alt)
			shape.Leaves[alt-1] = topo.Total()
		}
		return shape
	}
	shape := ProblemShape{
		Kind:   TreeShape,
		Totals: make([]int, n),
		Next:   make([][]int, n),
		Down:   make([][]int, n),
	}
	for alt := 1; alt <= n; alt++ {
		topo, _ := f.ix.Alt(alt)
		shape.Totals[alt-1] = topo.Total()
		shape.Next[alt-1], shape.Down[alt-1] = topo.Links()
	}
	return shape
}

func (b *base) record() BaseRecord {
	rec := BaseRecord{
		Statements:  b.statementsCopy(),
		BoxSet:      b.boxSet,
		MidpointBox: b.midpointBoxCopy(),
	}
	if b.boxSet {
		rec.Box = b.boxCopy()
	}
	return rec
}

// FromSnapshot rebuilds a detached frame from a saved problem, replaying the
// record through the normal validation paths.
func FromSnapshot(rec *ProblemRecord) (*Frame, error) {
	if rec == nil {
		return nil, core.NewInputError("problem record", "nil record")
	}
	var f *Frame
	var err error
	switch rec.Shape.Kind {
	case FlatShape:
		f, err = NewFlatFrame(rec.Limits, rec.Config, rec.Shape.Leaves)
	case TreeShape:
		f, err = NewTreeFrame(rec.Limits, rec.Config, rec.Shape.Totals, rec.Shape.Next, rec.Shape.Down)
	default:
		return nil, core.NewInputError("problem record", fmt.Sprintf("unknown shape kind %q", rec.Shape.Kind))
	}
	if err != nil {
		return nil, err
	}
	if err := loadBase(f, P, rec.P); err != nil {
		return nil, err
	}
	if err := loadBase(f, V, rec.V); err != nil {
		return nil, err
	}
	return f, nil
}

func loadBase(f *Frame, layer Layer, rec BaseRecord) error {
	if rec.BoxSet {
		if err := f.SetBox(layer, rec.Box); err != nil {
			return err
		}
	}
	if len(rec.MidpointBox) > 0 {
		if err := f.SetMidpointBox(layer, rec.MidpointBox); err != nil {
			return err
		}
	}
	for _, s := range rec.Statements {
		if err := f.AddStatement(layer, s); err != nil {
			return err
		}
	}
	return nil
}
