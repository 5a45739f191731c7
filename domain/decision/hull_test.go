package decision

import (
	"errors"
	"strings"
	"testing"

	"godecide/domain/core"
)

// nestedFrame builds alternative 1 as a two-level tree and alternative 2 as
// a single consequence:
//
//	1 ── 2
//	 `── 3 ── 4
//	      `── 5
func nestedFrame(t *testing.T) *Frame {
	t.Helper()
	f, err := NewTreeFrame(DefaultLimits(), DefaultConfig(), []int{5, 1},
		[][]int{{0, 3, 0, 5, 0}, {0}},
		[][]int{{2, 0, 4, 0, 0}, {0}})
	if err != nil {
		t.Fatalf("NewTreeFrame failed: %v", err)
	}
	return f
}

func checkHull(t *testing.T, f *Frame, alt, pos int, localLo, localHi, globalLo, globalHi float64) {
	t.Helper()
	local, global, err := f.Hull(alt, pos)
	if err != nil {
		t.Fatalf("Hull(%d,%d) failed: %v", alt, pos, err)
	}
	if !approx(local.Lo, localLo, tol) || !approx(local.Hi, localHi, tol) {
		t.Errorf("Hull(%d,%d) local: expected [%g, %g], got [%g, %g]", alt, pos, localLo, localHi, local.Lo, local.Hi)
	}
	if !approx(global.Lo, globalLo, tol) || !approx(global.Hi, globalHi, tol) {
		t.Errorf("Hull(%d,%d) global: expected [%g, %g], got [%g, %g]", alt, pos, globalLo, globalHi, global.Lo, global.Hi)
	}
}

func checkMass(t *testing.T, f *Frame, alt, pos int, local, global float64) {
	t.Helper()
	l, g, err := f.MassPoint(alt, pos)
	if err != nil {
		t.Fatalf("MassPoint(%d,%d) failed: %v", alt, pos, err)
	}
	if !approx(l, local, tol) || !approx(g, global, tol) {
		t.Errorf("MassPoint(%d,%d): expected %g/%g, got %g/%g", alt, pos, local, global, l, g)
	}
}

// TestNestedPropagation tests level tightening and global scaling through an
// intermediate node.
func TestNestedPropagation(t *testing.T) {
	f := nestedFrame(t)
	if err := f.AddStatement(P, Statement{Alt: 1, Node: 2, Lo: 0.6, Hi: 0.6}); err != nil {
		t.Fatalf("AddStatement failed: %v", err)
	}
	if err := f.AddStatement(P, Statement{Alt: 1, Node: 4, Lo: 0.2, Hi: 0.5}); err != nil {
		t.Fatalf("AddStatement failed: %v", err)
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	// the sole child of an implicit root is certain
	checkHull(t, f, 1, 1, 1, 1, 1, 1)
	checkHull(t, f, 2, 1, 1, 1, 1, 1)

	// pinning node 2 determines its sibling
	checkHull(t, f, 1, 2, 0.6, 0.6, 0.6, 0.6)
	checkHull(t, f, 1, 3, 0.4, 0.4, 0.4, 0.4)

	// the leaf level under node 3 tightens against itself and scales by the
	// parent's range
	checkHull(t, f, 1, 4, 0.2, 0.5, 0.08, 0.2)
	checkHull(t, f, 1, 5, 0.5, 0.8, 0.2, 0.32)

	checkMass(t, f, 1, 1, 1, 1)
	checkMass(t, f, 1, 2, 0.6, 0.6)
	checkMass(t, f, 1, 3, 0.4, 0.4)
	checkMass(t, f, 1, 4, 0.35, 0.14)
	checkMass(t, f, 1, 5, 0.65, 0.26)
	checkMass(t, f, 2, 1, 1, 1)
}

// TestMassTreeConsistency tests that children's global mass points sum to
// their parent's at every level.
func TestMassTreeConsistency(t *testing.T) {
	f := nestedFrame(t)
	if err := f.AddStatement(P, Statement{Alt: 1, Node: 4, Lo: 0.1, Hi: 0.4}); err != nil {
		t.Fatalf("AddStatement failed: %v", err)
	}
	if err := f.SetMidpoint(P, 1, 2, 0.55); err != nil {
		t.Fatalf("SetMidpoint failed: %v", err)
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	topo, _ := f.Index().Alt(1)
	check := func(parent int, parentMass float64) {
		sum := 0.0
		for _, c := range topo.Children(parent) {
			_, g, err := f.MassPoint(1, c)
			if err != nil {
				t.Fatalf("MassPoint(1,%d) failed: %v", c, err)
			}
			sum += g
		}
		if !approx(sum, parentMass, 1e-9) {
			t.Errorf("Children of node %d sum to %g, expected %g", parent, sum, parentMass)
		}
	}
	_, root, _ := f.MassPoint(1, 1)
	check(0, 1)
	check(1, root)
	_, inner, _ := f.MassPoint(1, 3)
	check(3, inner)
}

// TestMassStaysInsideHull tests the clamp invariant across a spread of
// constraint shapes.
func TestMassStaysInsideHull(t *testing.T) {
	f := nestedFrame(t)
	stmts := []Statement{
		{Alt: 1, Node: 2, Lo: 0.5, Hi: 0.9},
		{Alt: 1, Node: 4, Lo: 0.3, Hi: 0.6},
		{Alt: 1, Node: 5, Lo: 0.1, Hi: 0.7},
	}
	for _, s := range stmts {
		if err := f.AddStatement(P, s); err != nil {
			t.Fatalf("AddStatement(%v) failed: %v", s, err)
		}
	}
	if err := f.SetMidpoint(P, 1, 4, 0.55); err != nil {
		t.Fatalf("SetMidpoint failed: %v", err)
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	hulls, _ := f.HullLocalAll()
	masses, _ := f.MassLocalAll()
	for i := range hulls {
		if masses[i] < hulls[i].Lo-tol || masses[i] > hulls[i].Hi+tol {
			t.Errorf("Mass %g at slot %d escapes hull [%g, %g]", masses[i], i+1, hulls[i].Lo, hulls[i].Hi)
		}
	}
	globals, _ := f.HullGlobalAll()
	gmasses, _ := f.MassGlobalAll()
	for i := range globals {
		if gmasses[i] < globals[i].Lo-tol || gmasses[i] > globals[i].Hi+tol {
			t.Errorf("Global mass %g at slot %d escapes hull [%g, %g]", gmasses[i], i+1, globals[i].Lo, globals[i].Hi)
		}
	}
}

// TestRootLevelRejectsUncertainty tests that a root child whose bounds
// exclude one cannot attach.
func TestRootLevelRejectsUncertainty(t *testing.T) {
	f := nestedFrame(t)
	if err := f.AddStatement(P, Statement{Alt: 1, Node: 1, Lo: 0.2, Hi: 0.6}); err != nil {
		t.Fatalf("AddStatement failed: %v", err)
	}
	if err := f.Attach(); !errors.Is(err, core.ErrInconsistent) {
		t.Errorf("Expected inconsistent error, got %v", err)
	}
	if f.State() != Detached {
		t.Errorf("Expected frame detached, got %s", f.State())
	}
}

// TestNestedLevelOverflow tests inconsistency detection below the top level
func TestNestedLevelOverflow(t *testing.T) {
	f := nestedFrame(t)
	if err := f.AddStatement(P, Statement{Alt: 1, Node: 4, Lo: 0.6, Hi: 1}); err != nil {
		t.Fatalf("AddStatement failed: %v", err)
	}
	if err := f.AddStatement(P, Statement{Alt: 1, Node: 5, Lo: 0.6, Hi: 1}); err != nil {
		t.Fatalf("AddStatement failed: %v", err)
	}
	if err := f.Attach(); !errors.Is(err, core.ErrInconsistent) {
		t.Errorf("Expected inconsistent error, got %v", err)
	}
}

// TestContradictoryStatementsOnOneNode tests the pointwise intersection path
func TestContradictoryStatementsOnOneNode(t *testing.T) {
	f, err := NewFlatFrame(DefaultLimits(), DefaultConfig(), []int{2, 2})
	if err != nil {
		t.Fatalf("NewFlatFrame failed: %v", err)
	}
	if err := f.AddStatement(P, Statement{Alt: 1, Node: 1, Lo: 0.1, Hi: 0.3}); err != nil {
		t.Fatalf("AddStatement failed: %v", err)
	}
	if err := f.AddStatement(P, Statement{Alt: 1, Node: 1, Lo: 0.6, Hi: 0.8}); err != nil {
		t.Fatalf("AddStatement failed: %v", err)
	}
	err = f.Attach()
	if !errors.Is(err, core.ErrInconsistent) {
		t.Fatalf("Expected inconsistent error, got %v", err)
	}
	if !strings.Contains(err.Error(), "(1,1)") {
		t.Errorf("Expected the conflicting node in the message, got %q", err.Error())
	}
}

// TestNearMissIntersectionCollapses tests that an overlap gap within epsilon
// settles on the center instead of failing.
func TestNearMissIntersectionCollapses(t *testing.T) {
	f, err := NewFlatFrame(DefaultLimits(), DefaultConfig(), []int{2, 2})
	if err != nil {
		t.Fatalf("NewFlatFrame failed: %v", err)
	}
	if err := f.AddStatement(P, Statement{Alt: 1, Node: 1, Lo: 0.1, Hi: 0.3}); err != nil {
		t.Fatalf("AddStatement failed: %v", err)
	}
	if err := f.AddStatement(P, Statement{Alt: 1, Node: 1, Lo: 0.3 + 5e-7, Hi: 0.5}); err != nil {
		t.Fatalf("AddStatement failed: %v", err)
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	local, _, err := f.Hull(1, 1)
	if err != nil {
		t.Fatalf("Hull failed: %v", err)
	}
	if !approx(local.Lo, 0.3, 1e-5) || !approx(local.Hi, 0.3, 1e-5) {
		t.Errorf("Expected collapse near 0.3, got [%g, %g]", local.Lo, local.Hi)
	}
}
