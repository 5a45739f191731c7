package tree

import (
	"fmt"

	"godecide/domain/core"
)

// NodeKind distinguishes terminal consequences from branching aggregators
type NodeKind string

const (
	// Real nodes are terminal consequences; they accept probability and value statements
	Real NodeKind = "real"
	// Intermediate nodes aggregate their children; they accept only probability statements
	Intermediate NodeKind = "intermediate"
)

// Topology is one alternative's node layout. Nodes are numbered 1..Total in
// tree order; position 0 is the implicit root representing the alternative
// itself. Link slots hold node numbers, 0 meaning none.
type Topology struct {
	total int
	down  []int
	next  []int
	up    []int
	prev  []int

	// split ordinals, derived at construction
	realOrd  []int // realOrd[pos] = k when pos is the k-th real node, else 0
	interOrd []int
	realPos  []int // realPos[k] = position of the k-th real node (1-based)
	interPos []int
}

// NewFlat creates a one-level topology: leaves siblings directly under the
// implicit root.
func NewFlat(leaves int) (*Topology, error) {
	if leaves < 1 {
		return nil, core.NewInputError("leaf count", fmt.Sprintf("must be at least 1, got %d", leaves))
	}
	t := newTopology(leaves)
	t.down[0] = 1
	for pos := 1; pos < leaves; pos++ {
		t.next[pos] = pos + 1
	}
	if err := t.build(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewTree creates a general topology from successor links. Entry k of next
// and down (0-based) describes node k+1; link values are node numbers with 0
// meaning none. Node 1 is the root and must be the sole child of the
// implicit root.
func NewTree(total int, next, down []int) (*Topology, error) {
	if total < 1 {
		return nil, core.NewInputError("node count", fmt.Sprintf("must be at least 1, got %d", total))
	}
	if len(next) != total || len(down) != total {
		return nil, core.NewInputError("link arrays", fmt.Sprintf("need %d entries, got next=%d down=%d", total, len(next), len(down)))
	}
	t := newTopology(total)
	t.down[0] = 1
	copy(t.next[1:], next)
	copy(t.down[1:], down)
	if t.next[1] != 0 {
		return nil, fmt.Errorf("%w: root node may not have a sibling", core.ErrTree)
	}
	if err := t.build(); err != nil {
		return nil, err
	}
	return t, nil
}

func newTopology(total int) *Topology {
	return &Topology{
		total:    total,
		down:     make([]int, total+1),
		next:     make([]int, total+1),
		up:       make([]int, total+1),
		prev:     make([]int, total+1),
		realOrd:  make([]int, total+1),
		interOrd: make([]int, total+1),
	}
}

// build derives up/prev links and split ordinals, validating reachability,
// acyclicity, and the no-lonely-intermediate rule along the way.
func (t *Topology) build() error {
	seen := make([]bool, t.total+1)
	count, err := t.walk(0, t.down[0], seen)
	if err != nil {
		return err
	}
	if count != t.total {
		return fmt.Errorf("%w: %d of %d nodes unreachable from root", core.ErrTree, t.total-count, t.total)
	}
	for pos := 1; pos <= t.total; pos++ {
		if t.down[pos] != 0 && t.NumChildren(pos) < 2 {
			return fmt.Errorf("%w: intermediate node %d has a single child", core.ErrTree, pos)
		}
	}
	t.realPos = append(t.realPos, 0) // ordinal 0 unused
	t.interPos = append(t.interPos, 0)
	for pos := 1; pos <= t.total; pos++ {
		if t.down[pos] == 0 {
			t.realPos = append(t.realPos, pos)
			t.realOrd[pos] = len(t.realPos) - 1
		} else {
			t.interPos = append(t.interPos, pos)
			t.interOrd[pos] = len(t.interPos) - 1
		}
	}
	return nil
}

func (t *Topology) walk(parent, first int, seen []bool) (int, error) {
	count := 0
	prev := 0
	for pos := first; pos != 0; {
		if pos < 1 || pos > t.total {
			return 0, fmt.Errorf("%w: link to node %d outside 1..%d", core.ErrTree, pos, t.total)
		}
		if seen[pos] {
			return 0, fmt.Errorf("%w: node %d reachable twice", core.ErrTree, pos)
		}
		seen[pos] = true
		t.up[pos] = parent
		t.prev[pos] = prev
		count++
		if child := t.down[pos]; child != 0 {
			n, err := t.walk(pos, child, seen)
			if err != nil {
				return 0, err
			}
			count += n
		}
		prev = pos
		pos = t.next[pos]
	}
	return count, nil
}

// ===== Accessors =====
// Positions must be in [0, Total]; position 0 is the implicit root.

// Total returns the number of explicit nodes
func (t *Topology) Total() int { return t.total }

// RealCount returns the number of real (terminal) nodes
func (t *Topology) RealCount() int { return len(t.realPos) - 1 }

// InterCount returns the number of explicit intermediate nodes
func (t *Topology) InterCount() int { return len(t.interPos) - 1 }

// ValidPos reports whether pos names an explicit node
func (t *Topology) ValidPos(pos int) bool { return pos >= 1 && pos <= t.total }

// Kind returns the node kind; the implicit root is intermediate
func (t *Topology) Kind(pos int) NodeKind {
	if t.down[pos] == 0 {
		return Real
	}
	return Intermediate
}

// IsReal reports whether pos is a terminal node
func (t *Topology) IsReal(pos int) bool { return pos != 0 && t.down[pos] == 0 }

// Parent returns the parent position, 0 for children of the implicit root
func (t *Topology) Parent(pos int) int { return t.up[pos] }

// FirstChild returns the first child position, 0 for real nodes
func (t *Topology) FirstChild(pos int) int { return t.down[pos] }

// NextSibling returns the next sibling position, 0 at the end of a level
func (t *Topology) NextSibling(pos int) int { return t.next[pos] }

// PrevSibling returns the previous sibling position, 0 at the start of a level
func (t *Topology) PrevSibling(pos int) int { return t.prev[pos] }

// NumChildren counts the children of pos
func (t *Topology) NumChildren(pos int) int {
	n := 0
	for c := t.down[pos]; c != 0; c = t.next[c] {
		n++
	}
	return n
}

// Children returns the child positions of pos in sibling order
func (t *Topology) Children(pos int) []int {
	out := make([]int, 0, 4)
	for c := t.down[pos]; c != 0; c = t.next[c] {
		out = append(out, c)
	}
	return out
}

// Links returns copies of the successor arrays in NewTree's layout: entry k
// describes node k+1.
func (t *Topology) Links() (next []int, down []int) {
	next = make([]int, t.total)
	down = make([]int, t.total)
	copy(next, t.next[1:])
	copy(down, t.down[1:])
	return next, down
}

// RealOrdinal returns the 1-based ordinal of pos among the alternative's real
// nodes in tree order, 0 if pos is not real.
func (t *Topology) RealOrdinal(pos int) int { return t.realOrd[pos] }

// InterOrdinal returns the 1-based ordinal of pos among the alternative's
// intermediate nodes, 0 if pos is not intermediate.
func (t *Topology) InterOrdinal(pos int) int { return t.interOrd[pos] }

// RealPosition returns the position of the k-th real node (1-based)
func (t *Topology) RealPosition(k int) (int, error) {
	if k < 1 || k >= len(t.realPos) {
		return 0, core.NewInputError("real ordinal", fmt.Sprintf("%d outside 1..%d", k, len(t.realPos)-1))
	}
	return t.realPos[k], nil
}

// InterPosition returns the position of the k-th intermediate node (1-based)
func (t *Topology) InterPosition(k int) (int, error) {
	if k < 1 || k >= len(t.interPos) {
		return 0, core.NewInputError("intermediate ordinal", fmt.Sprintf("%d outside 1..%d", k, len(t.interPos)-1))
	}
	return t.interPos[k], nil
}
