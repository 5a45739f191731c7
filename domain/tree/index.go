package tree

import (
	"fmt"

	"godecide/domain/core"
)

// Index holds the coordinate tables for a frame's alternatives. The same
// node is addressed four ways by different subsystems:
//
//  1. tree position (alt, pos), both 1-based;
//  2. local split index: +k for the alternative's k-th real node, -k for its
//     k-th intermediate node, in tree order;
//  3. global sequential index: 1..TotalNodes across alternatives in order;
//  4. global split index: like the local split index but with real and
//     intermediate ordinals offset across alternatives.
//
// Probability arrays are keyed by the global sequential index, value arrays
// by the positive half of the global split index.
type Index struct {
	alts []*Topology

	// cumulative offsets, len(alts)+1 entries, entry a = count before alt a+1
	seqOff   []int
	realOff  []int
	interOff []int
}

// NewIndex builds the coordinate tables over the given alternatives
func NewIndex(alts []*Topology) (*Index, error) {
	if len(alts) == 0 {
		return nil, core.NewInputError("alternatives", "need at least one topology")
	}
	ix := &Index{
		alts:     alts,
		seqOff:   make([]int, len(alts)+1),
		realOff:  make([]int, len(alts)+1),
		interOff: make([]int, len(alts)+1),
	}
	for a, t := range alts {
		if t == nil {
			return nil, core.NewInputError("alternatives", fmt.Sprintf("alternative %d is nil", a+1))
		}
		ix.seqOff[a+1] = ix.seqOff[a] + t.Total()
		ix.realOff[a+1] = ix.realOff[a] + t.RealCount()
		ix.interOff[a+1] = ix.interOff[a] + t.InterCount()
	}
	return ix, nil
}

// NumAlts returns the number of alternatives
func (ix *Index) NumAlts() int { return len(ix.alts) }

// TotalNodes returns the node count summed over alternatives
func (ix *Index) TotalNodes() int { return ix.seqOff[len(ix.alts)] }

// TotalReal returns the real-node count summed over alternatives
func (ix *Index) TotalReal() int { return ix.realOff[len(ix.alts)] }

// TotalInter returns the intermediate-node count summed over alternatives
func (ix *Index) TotalInter() int { return ix.interOff[len(ix.alts)] }

// Alt returns the topology of a 1-based alternative
func (ix *Index) Alt(alt int) (*Topology, error) {
	if alt < 1 || alt > len(ix.alts) {
		return nil, core.NewInputError("alternative", fmt.Sprintf("%d outside 1..%d", alt, len(ix.alts)))
	}
	return ix.alts[alt-1], nil
}

// CheckNode validates an (alt, pos) node reference
func (ix *Index) CheckNode(alt, pos int) error {
	t, err := ix.Alt(alt)
	if err != nil {
		return err
	}
	if !t.ValidPos(pos) {
		return core.NewNodeRangeError(alt, pos)
	}
	return nil
}

// RealCount returns the real-node count of one alternative
func (ix *Index) RealCount(alt int) (int, error) {
	t, err := ix.Alt(alt)
	if err != nil {
		return 0, err
	}
	return t.RealCount(), nil
}

// ===== Sequential index =====

// Seq converts (alt, pos) to the global sequential index
func (ix *Index) Seq(alt, pos int) (int, error) {
	if err := ix.CheckNode(alt, pos); err != nil {
		return 0, err
	}
	return ix.seqOff[alt-1] + pos, nil
}

// Pos converts a global sequential index back to (alt, pos)
func (ix *Index) Pos(seq int) (int, int, error) {
	if seq < 1 || seq > ix.TotalNodes() {
		return 0, 0, core.NewInputError("sequential index", fmt.Sprintf("%d outside 1..%d", seq, ix.TotalNodes()))
	}
	alt := 1
	for seq > ix.seqOff[alt] {
		alt++
	}
	return alt, seq - ix.seqOff[alt-1], nil
}

// ===== Local split index =====

// LocalSplit converts (alt, pos) to the signed per-alternative split index
func (ix *Index) LocalSplit(alt, pos int) (int, error) {
	if err := ix.CheckNode(alt, pos); err != nil {
		return 0, err
	}
	t := ix.alts[alt-1]
	if t.IsReal(pos) {
		return t.RealOrdinal(pos), nil
	}
	return -t.InterOrdinal(pos), nil
}

// PosOfLocalSplit converts a signed per-alternative split index to a position
func (ix *Index) PosOfLocalSplit(alt, split int) (int, error) {
	t, err := ix.Alt(alt)
	if err != nil {
		return 0, err
	}
	if split == 0 {
		return 0, core.NewInputError("split index", "0 names no node")
	}
	if split > 0 {
		return t.RealPosition(split)
	}
	return t.InterPosition(-split)
}

// ===== Global split index =====

// GlobalReal converts (alt, pos) of a real node to its global real index
func (ix *Index) GlobalReal(alt, pos int) (int, error) {
	if err := ix.CheckNode(alt, pos); err != nil {
		return 0, err
	}
	t := ix.alts[alt-1]
	if !t.IsReal(pos) {
		return 0, fmt.Errorf("%w: node %d of alternative %d is intermediate", core.ErrIllegalNode, pos, alt)
	}
	return ix.realOff[alt-1] + t.RealOrdinal(pos), nil
}

// PosOfGlobalReal converts a global real index back to (alt, pos)
func (ix *Index) PosOfGlobalReal(k int) (int, int, error) {
	if k < 1 || k > ix.TotalReal() {
		return 0, 0, core.NewInputError("global real index", fmt.Sprintf("%d outside 1..%d", k, ix.TotalReal()))
	}
	alt := 1
	for k > ix.realOff[alt] {
		alt++
	}
	pos, err := ix.alts[alt-1].RealPosition(k - ix.realOff[alt-1])
	return alt, pos, err
}

// GlobalSplit converts (alt, pos) to the signed global split index
func (ix *Index) GlobalSplit(alt, pos int) (int, error) {
	if err := ix.CheckNode(alt, pos); err != nil {
		return 0, err
	}
	t := ix.alts[alt-1]
	if t.IsReal(pos) {
		return ix.realOff[alt-1] + t.RealOrdinal(pos), nil
	}
	return -(ix.interOff[alt-1] + t.InterOrdinal(pos)), nil
}

// PosOfGlobalSplit converts a signed global split index back to (alt, pos)
func (ix *Index) PosOfGlobalSplit(split int) (int, int, error) {
	if split == 0 {
		return 0, 0, core.NewInputError("global split index", "0 names no node")
	}
	if split > 0 {
		return ix.PosOfGlobalReal(split)
	}
	k := -split
	if k < 1 || k > ix.TotalInter() {
		return 0, 0, core.NewInputError("global split index", fmt.Sprintf("%d outside -1..-%d", split, ix.TotalInter()))
	}
	alt := 1
	for k > ix.interOff[alt] {
		alt++
	}
	pos, err := ix.alts[alt-1].InterPosition(k - ix.interOff[alt-1])
	return alt, pos, err
}

// RealOffset returns the global real index preceding a 1-based alternative
func (ix *Index) RealOffset(alt int) (int, error) {
	if alt < 1 || alt > len(ix.alts) {
		return 0, core.NewInputError("alternative", fmt.Sprintf("%d outside 1..%d", alt, len(ix.alts)))
	}
	return ix.realOff[alt-1], nil
}

// SeqOffset returns the global sequential index preceding a 1-based alternative
func (ix *Index) SeqOffset(alt int) (int, error) {
	if alt < 1 || alt > len(ix.alts) {
		return 0, core.NewInputError("alternative", fmt.Sprintf("%d outside 1..%d", alt, len(ix.alts)))
	}
	return ix.seqOff[alt-1], nil
}
