package decision

import "math"

// warpLevel blends a higher-order correction into a level's mass points.
//
// The blend in assignLevel treats every child as sharing one degree of
// freedom. The correction instead takes the level's non-degenerate children
// as a dim-dimensional box cut by the plane where the coordinates sum to the
// remaining target mass, and uses the centroid of that cut per child. The
// centroid falls out of a signed enumeration of the box corners below the
// plane, so the work is exponential in dim: full strength up to WarpSoftDim,
// fading to nothing at WarpHardDim.
func warpLevel(slots []int, mhullL []Interval, massL []float64, cfg Config) {
	live := make([]int, 0, len(slots))
	target := 1.0
	for _, slot := range slots {
		if mhullL[slot].Width() > cfg.Epsilon {
			live = append(live, slot)
		} else {
			target -= massL[slot]
		}
	}
	dim := len(live)
	if dim < 2 || dim >= cfg.WarpHardDim {
		return
	}
	blend := warpBlend(dim, cfg)
	if blend <= 0 {
		return
	}

	lo := make([]float64, dim)
	hi := make([]float64, dim)
	for k, slot := range live {
		lo[k] = mhullL[slot].Lo
		hi[k] = mhullL[slot].Hi
	}
	est, ok := faceCentroid(lo, hi, target)
	if !ok {
		return
	}
	for k, slot := range live {
		massL[slot] = (1-blend)*massL[slot] + blend*est[k]
	}
}

// warpBlend is 1 up to the soft cutoff and fades linearly to 0 at the hard
// cutoff.
func warpBlend(dim int, cfg Config) float64 {
	if dim <= cfg.WarpSoftDim {
		return 1
	}
	if dim >= cfg.WarpHardDim {
		return 0
	}
	return float64(cfg.WarpHardDim-dim) / float64(cfg.WarpHardDim-cfg.WarpSoftDim)
}

// faceCentroid computes, per axis, the centroid coordinate of the part of
// the box [lo, hi] lying on the plane sum(x) = total.
//
// Corners are enumerated depth first, pinning each axis to its lower or
// upper bound; a branch is cut as soon as its partial sum reaches the total,
// which also drops the zero-measure corners. Each surviving corner carries
// the signed weight (total - sum)^(dim-1), negative for an odd number of
// upper-bound pins, and:
//
//	centroid_k = (acc_k + sumT/dim) / sum2
//
// with sum2 the weight total, acc_k the weighted sum of axis k's pinned
// bound, and sumT the weighted sum of (total - sum). The coordinates sum to
// the target exactly in exact arithmetic. A vanishing normalizer reports
// not-ok and the caller keeps the uncorrected points.
func faceCentroid(lo, hi []float64, total float64) ([]float64, bool) {
	dim := len(lo)
	acc := make([]float64, dim)
	corner := make([]bool, dim)
	var sum2, sumT, wabs float64

	var dfs func(axis int, partial float64, upper int)
	dfs = func(axis int, partial float64, upper int) {
		if partial >= total {
			return
		}
		if axis == dim {
			w := math.Pow(total-partial, float64(dim-1))
			if upper%2 == 1 {
				w = -w
			}
			sum2 += w
			sumT += w * (total - partial)
			wabs += math.Abs(w)
			for k := 0; k < dim; k++ {
				b := lo[k]
				if corner[k] {
					b = hi[k]
				}
				acc[k] += w * b
			}
			return
		}
		corner[axis] = false
		dfs(axis+1, partial+lo[axis], upper)
		corner[axis] = true
		dfs(axis+1, partial+hi[axis], upper+1)
		corner[axis] = false
	}
	dfs(0, 0, 0)

	if wabs == 0 || math.Abs(sum2) < 1e-9*wabs {
		return nil, false
	}
	out := make([]float64, dim)
	for k := range out {
		out[k] = (acc[k] + sumT/float64(dim)) / sum2
	}
	return out, true
}
