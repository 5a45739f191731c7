package decision

import (
	"fmt"

	"godecide/domain/core"
)

// derived is the state recomputed from scratch on every attach and reload.
// Probability arrays are keyed by global sequential index, value arrays by
// global real index; slot 0 is unused.
type derived struct {
	tbox  []Interval // tightened probability box
	hullL []Interval
	hullG []Interval
	massL []float64
	massG []float64

	vbox   []Interval // tightened value box
	vfocal []float64
}

// derive rebuilds the full derived state for a frame. Nothing on the frame
// is touched; the caller installs the result only on success.
func derive(f *Frame) (*derived, error) {
	eps := f.cfg.Epsilon
	ix := f.ix
	d := &derived{
		tbox:   make([]Interval, ix.TotalNodes()+1),
		hullL:  make([]Interval, ix.TotalNodes()+1),
		hullG:  make([]Interval, ix.TotalNodes()+1),
		massL:  make([]float64, ix.TotalNodes()+1),
		massG:  make([]float64, ix.TotalNodes()+1),
		vbox:   make([]Interval, ix.TotalReal()+1),
		vfocal: make([]float64, ix.TotalReal()+1),
	}

	if err := tightenP(f, d.tbox); err != nil {
		return nil, err
	}
	if err := tightenV(f, d.vbox); err != nil {
		return nil, err
	}

	// first propagation: raw tightened box to hull
	for alt := 1; alt <= ix.NumAlts(); alt++ {
		topo, _ := ix.Alt(alt)
		off, _ := ix.SeqOffset(alt)
		if err := propagateLevel(alt, topo, off, d.tbox, d.hullL, d.hullG, 0, Point(1), eps); err != nil {
			return nil, err
		}
	}

	// second propagation: midpoint-adjusted box to mhull, feeding the mass
	// point engine
	mbox := make([]Interval, len(d.tbox))
	copy(mbox, d.tbox)
	for slot := 1; slot < len(mbox); slot++ {
		if m, ok := f.pbase.midpointAt(slot); ok {
			mbox[slot] = Point(d.tbox[slot].Clamp(m))
		}
	}
	mhullL := make([]Interval, len(mbox))
	mhullG := make([]Interval, len(mbox))
	for alt := 1; alt <= ix.NumAlts(); alt++ {
		topo, _ := ix.Alt(alt)
		off, _ := ix.SeqOffset(alt)
		if err := propagateLevel(alt, topo, off, mbox, mhullL, mhullG, 0, Point(1), eps); err != nil {
			return nil, err
		}
	}

	for alt := 1; alt <= ix.NumAlts(); alt++ {
		topo, _ := ix.Alt(alt)
		off, _ := ix.SeqOffset(alt)
		assignLevel(topo, off, 0, 1, mhullL, d.hullL, f.pbase, f.cfg, d.massL, d.massG)
	}

	// value layer: no propagation, the tightened box is the hull and the
	// focal value is the hint or the midpoint
	for slot := 1; slot < len(d.vbox); slot++ {
		if m, ok := f.vbase.midpointAt(slot); ok {
			d.vfocal[slot] = d.vbox[slot].Clamp(m)
		} else {
			d.vfocal[slot] = d.vbox[slot].Midpoint()
		}
	}

	return d, nil
}

// tightenP intersects the probability box with every probability statement
func tightenP(f *Frame, out []Interval) error {
	for slot := 1; slot <= f.pbase.size; slot++ {
		out[slot] = f.pbase.boxAt(slot)
	}
	for _, s := range f.pbase.stmts {
		slot, err := f.ix.Seq(s.Alt, s.Node)
		if err != nil {
			return err
		}
		out[slot] = out[slot].Intersect(s.Interval())
	}
	for slot := 1; slot <= f.pbase.size; slot++ {
		iv, err := settleInterval(out[slot], f.cfg.Epsilon)
		if err != nil {
			alt, pos, _ := f.ix.Pos(slot)
			return fmt.Errorf("%w on probability of node (%d,%d)", err, alt, pos)
		}
		out[slot] = iv
	}
	return nil
}

// tightenV intersects the value box with every value statement
func tightenV(f *Frame, out []Interval) error {
	for slot := 1; slot <= f.vbase.size; slot++ {
		out[slot] = f.vbase.boxAt(slot)
	}
	for _, s := range f.vbase.stmts {
		slot, err := f.ix.GlobalReal(s.Alt, s.Node)
		if err != nil {
			return err
		}
		out[slot] = out[slot].Intersect(s.Interval())
	}
	for slot := 1; slot <= f.vbase.size; slot++ {
		iv, err := settleInterval(out[slot], f.cfg.Epsilon)
		if err != nil {
			alt, pos, _ := f.ix.PosOfGlobalReal(slot)
			return fmt.Errorf("%w on value of node (%d,%d)", err, alt, pos)
		}
		out[slot] = iv
	}
	return nil
}

// settleInterval resolves an intersected interval: an inverted interval
// within epsilon collapses to its center, beyond epsilon the statements
// contradict each other.
func settleInterval(iv Interval, eps float64) (Interval, error) {
	if iv.Lo <= iv.Hi {
		return iv, nil
	}
	if iv.Lo-iv.Hi > eps {
		return Interval{}, fmt.Errorf("%w: contradictory bounds [%g, %g]", core.ErrInconsistent, iv.Lo, iv.Hi)
	}
	return Point((iv.Lo + iv.Hi) / 2), nil
}
