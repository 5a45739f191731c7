// Package evaluate ranks a frame's alternatives by expected utility: a point
// estimate from the mass points, interval bounds from a greedy extremal
// allocation over the probability hull, and pairwise, against-all, and
// against-subset comparisons built from those.
package evaluate

import (
	"fmt"
	"math"
	"sort"

	"godecide/domain/core"
	"godecide/domain/decision"
	"godecide/domain/tree"
)

// levelItem is one sibling's standing in the greedy walk
type levelItem struct {
	priority float64
	lo       float64
	width    float64
}

// extremal computes the extremal conditional expectation of one alternative
// by greedy slack allocation over the local hull. leafVal holds one value per
// real node in local real order; maximize picks the direction.
//
// Each level pre-allocates every sibling its hull lower bound and hands the
// remaining free mass out in priority order, capped by each sibling's hull
// width. Intermediate siblings take their own subtree's extremal expectation
// as priority, computed postorder in the same direction. The ordering is
// optimal by rearrangement: with the total fixed at one, moving feasible mass
// from a lower-priority sibling to a higher-priority one never decreases the
// level sum.
func extremal(topo *tree.Topology, off int, hull []decision.Interval, leafVal []float64, maximize bool) float64 {
	return levelExtremal(topo, off, hull, leafVal, maximize, 0)
}

func levelExtremal(topo *tree.Topology, off int, hull []decision.Interval, leafVal []float64, maximize bool, parent int) float64 {
	children := topo.Children(parent)
	items := make([]levelItem, 0, len(children))
	free := 1.0
	for _, c := range children {
		var prio float64
		if topo.IsReal(c) {
			prio = leafVal[topo.RealOrdinal(c)-1]
		} else {
			prio = levelExtremal(topo, off, hull, leafVal, maximize, c)
		}
		iv := hull[off+c-1]
		items = append(items, levelItem{priority: prio, lo: iv.Lo, width: iv.Width()})
		free -= iv.Lo
	}
	sort.Slice(items, func(i, j int) bool {
		if maximize {
			return items[i].priority > items[j].priority
		}
		return items[i].priority < items[j].priority
	})
	total := 0.0
	for i := range items {
		p := items[i].lo
		if free > 0 {
			grant := math.Min(free, items[i].width)
			p += grant
			free -= grant
		}
		total += p * items[i].priority
	}
	return total
}

// MassExtremes returns the least and greatest total probability mass one
// alternative can concentrate on a set of its real nodes, membership given in
// local real order. The security engine drives this with threshold sets; the
// allocation itself is the greedy walk with a 0/1 objective.
func MassExtremes(f *decision.Frame, alt int, member []bool) (float64, float64, error) {
	topo, err := f.Index().Alt(alt)
	if err != nil {
		return 0, 0, err
	}
	if len(member) != topo.RealCount() {
		return 0, 0, core.NewInputError("membership", fmt.Sprintf("need %d entries, got %d", topo.RealCount(), len(member)))
	}
	hull, err := f.HullLocalAll()
	if err != nil {
		return 0, 0, err
	}
	off, err := f.Index().SeqOffset(alt)
	if err != nil {
		return 0, 0, err
	}
	weights := make([]float64, len(member))
	for i, in := range member {
		if in {
			weights[i] = 1
		}
	}
	lo := levelExtremal(topo, off, hull, weights, false, 0)
	hi := levelExtremal(topo, off, hull, weights, true, 0)
	return lo, hi, nil
}
