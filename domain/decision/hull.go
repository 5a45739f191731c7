package decision

import (
	"fmt"
	"math"

	"godecide/domain/core"
	"godecide/domain/tree"
)

// propagateLevel tightens one sibling group against the normalization
// constraint and recurses into intermediate children.
//
// Given the parent's scaled range prange (the implicit root carries [1,1]),
// the level's box bounds sum to (pmin, pmax). A level that cannot reach a
// total of 1 is inconsistent. Otherwise each child is squeezed between what
// remains after its siblings take their minimum and what is forced once they
// take their maximum:
//
//	local lo = max(box lo, box hi + 1 - pmax)
//	local hi = min(box hi, box lo + 1 - pmin)
//
// The global hull is the local hull scaled by prange, and becomes the next
// prange for an intermediate child's own level.
func propagateLevel(alt int, topo *tree.Topology, off int, box []Interval, hullL, hullG []Interval, parent int, prange Interval, eps float64) error {
	pmin, pmax := 0.0, 0.0
	for c := topo.FirstChild(parent); c != 0; c = topo.NextSibling(c) {
		pmin += box[off+c].Lo
		pmax += box[off+c].Hi
	}
	if pmin > 1+eps || pmax < 1-eps {
		return fmt.Errorf("%w: alternative %d, level under node %d sums to [%.6f, %.6f]", core.ErrInconsistent, alt, parent, pmin, pmax)
	}
	if pmin > 1 {
		pmin = 1
	}
	if pmax < 1 {
		pmax = 1
	}
	for c := topo.FirstChild(parent); c != 0; c = topo.NextSibling(c) {
		iv := box[off+c]
		local := Interval{
			Lo: math.Max(iv.Lo, iv.Hi+1-pmax),
			Hi: math.Min(iv.Hi, iv.Lo+1-pmin),
		}
		// rounding can invert a degenerate range by an ulp
		if local.Lo > local.Hi {
			local.Lo = local.Hi
		}
		hullL[off+c] = local
		global := Interval{Lo: local.Lo * prange.Lo, Hi: local.Hi * prange.Hi}
		hullG[off+c] = global
		if !topo.IsReal(c) {
			if err := propagateLevel(alt, topo, off, box, hullL, hullG, c, global, eps); err != nil {
				return err
			}
		}
	}
	return nil
}
