package evaluate

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"godecide/domain/core"
	"godecide/domain/decision"
)

// Span bounds an evaluation: pessimistic, balanced, and optimistic expected
// utility.
type Span struct {
	Min float64 `json:"min"`
	Mid float64 `json:"mid"`
	Max float64 `json:"max"`
}

// Omega returns the point expected utility of one alternative: its global
// mass points dotted with its focal values, both flattened to the real nodes.
func Omega(f *decision.Frame, alt int) (float64, error) {
	mass, err := f.AltMassGlobal(alt)
	if err != nil {
		return 0, err
	}
	vals, err := f.AltValueMass(alt)
	if err != nil {
		return 0, err
	}
	return floats.Dot(mass, vals), nil
}

// Psi returns the expected-utility interval of one alternative: greedy
// extremal bounds around the omega point.
func Psi(f *decision.Frame, alt int) (Span, error) {
	mid, err := Omega(f, alt)
	if err != nil {
		return Span{}, err
	}
	lo, hi, err := evBounds(f, alt)
	if err != nil {
		return Span{}, err
	}
	return Span{Min: lo, Mid: mid, Max: hi}, nil
}

// evBounds runs the greedy allocation once against the value lower bounds
// minimizing and once against the upper bounds maximizing.
func evBounds(f *decision.Frame, alt int) (float64, float64, error) {
	topo, err := f.Index().Alt(alt)
	if err != nil {
		return 0, 0, err
	}
	hull, err := f.HullLocalAll()
	if err != nil {
		return 0, 0, err
	}
	bounds, err := f.AltValueBounds(alt)
	if err != nil {
		return 0, 0, err
	}
	off, err := f.Index().SeqOffset(alt)
	if err != nil {
		return 0, 0, err
	}
	lovals := make([]float64, len(bounds))
	hivals := make([]float64, len(bounds))
	for i, iv := range bounds {
		lovals[i] = iv.Lo
		hivals[i] = iv.Hi
	}
	return extremal(topo, off, hull, lovals, false), extremal(topo, off, hull, hivals, true), nil
}

// Delta compares two alternatives: the span of psi(i) minus psi(j) over every
// admissible allocation.
func Delta(f *decision.Frame, i, j int) (Span, error) {
	pi, err := Psi(f, i)
	if err != nil {
		return Span{}, err
	}
	pj, err := Psi(f, j)
	if err != nil {
		return Span{}, err
	}
	return Span{Min: pi.Min - pj.Max, Mid: pi.Mid - pj.Mid, Max: pi.Max - pj.Min}, nil
}

// Gamma compares one alternative against the average of all others
func Gamma(f *decision.Frame, alt int) (Span, error) {
	if _, err := f.Index().Alt(alt); err != nil {
		return Span{}, err
	}
	others := make([]int, 0, f.NumAlts()-1)
	for j := 1; j <= f.NumAlts(); j++ {
		if j != alt {
			others = append(others, j)
		}
	}
	return compareAgainst(f, alt, others)
}

// Digamma compares one alternative against the average of a selected subset.
// Selection is a bitmask with bit k-1 naming alternative k. The selection may
// not include the evaluated alternative; an empty selection follows the
// frame's EmptySelection policy, degrading to Psi or rejecting.
func Digamma(f *decision.Frame, alt int, selection uint64) (Span, error) {
	if _, err := f.Index().Alt(alt); err != nil {
		return Span{}, err
	}
	n := f.NumAlts()
	if selection>>uint(n) != 0 {
		return Span{}, core.NewInputError("selection", fmt.Sprintf("mask %#x names alternatives beyond %d", selection, n))
	}
	if selection&(1<<uint(alt-1)) != 0 {
		return Span{}, core.NewInputError("selection", fmt.Sprintf("mask %#x includes the evaluated alternative %d", selection, alt))
	}
	others := make([]int, 0, n-1)
	for j := 1; j <= n; j++ {
		if selection&(1<<uint(j-1)) != 0 {
			others = append(others, j)
		}
	}
	if len(others) == 0 {
		if f.EngineConfig().EmptySelection == decision.RejectEmpty {
			return Span{}, core.NewInputError("selection", "empty selection rejected by configuration")
		}
		return Psi(f, alt)
	}
	return compareAgainst(f, alt, others)
}

// compareAgainst subtracts the averaged psi bounds of a non-empty group from
// one alternative's psi, pairing pessimistic with optimistic.
func compareAgainst(f *decision.Frame, alt int, others []int) (Span, error) {
	pa, err := Psi(f, alt)
	if err != nil {
		return Span{}, err
	}
	var sumMin, sumMid, sumMax float64
	for _, j := range others {
		pj, err := Psi(f, j)
		if err != nil {
			return Span{}, err
		}
		sumMin += pj.Min
		sumMid += pj.Mid
		sumMax += pj.Max
	}
	k := float64(len(others))
	return Span{
		Min: pa.Min - sumMax/k,
		Mid: pa.Mid - sumMid/k,
		Max: pa.Max - sumMin/k,
	}, nil
}
