package decision

import (
	"math"

	"godecide/domain/tree"
)

// assignLevel computes local mass points for one sibling group over the
// midpoint-adjusted hull, then scales by the parent's global mass point and
// recurses. Local points are a single convex blend of each child's bounds
// (one shared interpolation parameter per level), corrected by the warp
// estimate and, at hinted levels, renormalized against the real hull.
func assignLevel(topo *tree.Topology, off, parent int, parentMass float64, mhullL, hullL []Interval, pb *base, cfg Config, massL, massG []float64) {
	slots := make([]int, 0, 8)
	pmin, pmax := 0.0, 0.0
	hinted := false
	for c := topo.FirstChild(parent); c != 0; c = topo.NextSibling(c) {
		slot := off + c
		slots = append(slots, slot)
		pmin += mhullL[slot].Lo
		pmax += mhullL[slot].Hi
		if _, ok := pb.midpointAt(slot); ok {
			hinted = true
		}
	}
	if len(slots) == 0 {
		return
	}

	lofrac := blendFraction(pmin, pmax, cfg.Epsilon)
	for _, slot := range slots {
		iv := mhullL[slot]
		massL[slot] = lofrac*iv.Lo + (1-lofrac)*iv.Hi
	}

	if cfg.WarpEnabled {
		warpLevel(slots, mhullL, massL, cfg)
	}
	if hinted {
		renormLevel(slots, massL, hullL, 1)
	}
	for _, slot := range slots {
		massL[slot] = hullL[slot].Clamp(massL[slot])
	}

	for c := topo.FirstChild(parent); c != 0; c = topo.NextSibling(c) {
		slot := off + c
		massG[slot] = massL[slot] * parentMass
		if !topo.IsReal(c) {
			assignLevel(topo, off, c, massG[slot], mhullL, hullL, pb, cfg, massL, massG)
		}
	}
}

// blendFraction picks the shared interpolation parameter for a level: the
// fraction of every child's lower bound that makes the level sum to one.
func blendFraction(pmin, pmax, eps float64) float64 {
	switch {
	case pmax-pmin <= eps:
		return 0.5
	case pmin >= 1:
		return 1
	case pmax <= 1:
		return 0
	default:
		return (pmax - 1) / (pmax - pmin)
	}
}

// renormLevel spreads the residual between the level sum and its target
// across the children, proportionally to each child's slack toward the hull
// bound on the residual's side. One pass restores the exact sum because the
// hull guarantees the total slack covers the residual.
func renormLevel(slots []int, massL []float64, hullL []Interval, target float64) {
	const tol = 1e-12
	sum := 0.0
	for _, slot := range slots {
		sum += massL[slot]
	}
	residual := target - sum
	if math.Abs(residual) <= tol {
		return
	}
	slack := 0.0
	for _, slot := range slots {
		if residual > 0 {
			slack += hullL[slot].Hi - massL[slot]
		} else {
			slack += massL[slot] - hullL[slot].Lo
		}
	}
	if slack <= tol {
		return
	}
	for _, slot := range slots {
		var s float64
		if residual > 0 {
			s = hullL[slot].Hi - massL[slot]
		} else {
			s = massL[slot] - hullL[slot].Lo
		}
		massL[slot] += residual * s / slack
	}
}
