package moments

import (
	"errors"
	"math"
	"testing"

	"godecide/domain/core"
	"godecide/domain/decision"
	"godecide/internal/evaluate"
)

const tol = 1e-9

func approx(a, b, tolerance float64) bool { return math.Abs(a-b) <= tolerance }

// pinnedPair builds two alternatives with fully pinned probabilities and
// values.
//
//	alt 1: p = (0.3, 0.7), v = (0.25, 0.5)
//	alt 2: p = (0.5, 0.5), v = (1.0, 0.8)
func pinnedPair(t *testing.T) *decision.Frame {
	t.Helper()
	f, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), []int{2, 2})
	if err != nil {
		t.Fatalf("NewFlatFrame failed: %v", err)
	}
	pins := []struct {
		layer decision.Layer
		alt   int
		node  int
		v     float64
	}{
		{decision.P, 1, 1, 0.3}, {decision.P, 1, 2, 0.7},
		{decision.V, 1, 1, 0.25}, {decision.V, 1, 2, 0.5},
		{decision.P, 2, 1, 0.5}, {decision.P, 2, 2, 0.5},
		{decision.V, 2, 1, 1.0}, {decision.V, 2, 2, 0.8},
	}
	for _, p := range pins {
		s := decision.Statement{Alt: p.alt, Node: p.node, Lo: p.v, Hi: p.v}
		if err := f.AddStatement(p.layer, s); err != nil {
			t.Fatalf("AddStatement(%v) failed: %v", s, err)
		}
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	return f
}

// TestPinnedUtilityHasNoSpread tests that point constraints produce a point
// distribution
func TestPinnedUtilityHasNoSpread(t *testing.T) {
	f := pinnedPair(t)
	p := []float64{0.3, 0.7}
	v := []float64{0.25, 0.5}
	want := p[0]*v[0] + p[1]*v[1]

	res, err := Compute(f, 1)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if res.Mean != want {
		t.Errorf("Expected exact mean %v, got %v", want, res.Mean)
	}
	if res.Variance != 0 {
		t.Errorf("Expected zero variance, got %g", res.Variance)
	}
	if math.Abs(res.ThirdMoment) > 1e-15 {
		t.Errorf("Expected vanishing third moment, got %g", res.ThirdMoment)
	}
	if res.StdDev() != 0 {
		t.Errorf("Expected zero stddev, got %g", res.StdDev())
	}

	res2, err := Compute(f, 2)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if !approx(res2.Mean, 0.9, tol) {
		t.Errorf("Expected mean 0.9, got %g", res2.Mean)
	}
	if res2.Variance != 0 {
		t.Errorf("Expected zero variance, got %g", res2.Variance)
	}
}

// TestComputeAllOrder tests that results come back in alternative order
func TestComputeAllOrder(t *testing.T) {
	f := pinnedPair(t)
	all, err := ComputeAll(f)
	if err != nil {
		t.Fatalf("ComputeAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(all))
	}
	if !approx(all[0].Mean, 0.425, tol) {
		t.Errorf("Expected alt 1 mean 0.425, got %g", all[0].Mean)
	}
	if !approx(all[1].Mean, 0.9, tol) {
		t.Errorf("Expected alt 2 mean 0.9, got %g", all[1].Mean)
	}
}

// TestTriangularValueMoments tests the value distribution against the closed
// forms for a triangular on [0, 1] with mode 0.2.
func TestTriangularValueMoments(t *testing.T) {
	f, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), []int{2, 2})
	if err != nil {
		t.Fatalf("NewFlatFrame failed: %v", err)
	}
	// alt 1 collapses onto its first consequence, whose value stays free
	// with focal 0.4
	box := []decision.Interval{{Lo: 1, Hi: 1}, {Lo: 0, Hi: 0}, {Lo: 0, Hi: 1}, {Lo: 0, Hi: 1}}
	if err := f.SetBox(decision.P, box); err != nil {
		t.Fatalf("SetBox failed: %v", err)
	}
	if err := f.SetMidpoint(decision.V, 1, 1, 0.4); err != nil {
		t.Fatalf("SetMidpoint failed: %v", err)
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	res, err := Compute(f, 1)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	// a=0 b=1, focal 0.4 inside the middle third, so mode c = 3*0.4-1 = 0.2;
	// var = (a^2+b^2+c^2-ab-ac-bc)/18, m3 = (a+b-2c)(2a-b-c)(a-2b+c)/270,
	// the level sum halves m3 across the two siblings
	wantVar := 0.84 / 18
	wantThird := 0.6 * -1.2 * -1.8 / 270 / 2
	if !approx(res.Mean, 0.4, tol) {
		t.Errorf("Expected mean 0.4, got %g", res.Mean)
	}
	if !approx(res.Variance, wantVar, tol) {
		t.Errorf("Expected variance %g, got %g", wantVar, res.Variance)
	}
	if !approx(res.ThirdMoment, wantThird, tol) {
		t.Errorf("Expected third moment %g, got %g", wantThird, res.ThirdMoment)
	}
}

// TestFocalSnapsIntoMiddleThird tests that an extreme focal moves to the
// nearest admissible mean instead of pushing the mode out of bounds
func TestFocalSnapsIntoMiddleThird(t *testing.T) {
	f, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), []int{2, 2})
	if err != nil {
		t.Fatalf("NewFlatFrame failed: %v", err)
	}
	box := []decision.Interval{{Lo: 1, Hi: 1}, {Lo: 0, Hi: 0}, {Lo: 0, Hi: 1}, {Lo: 0, Hi: 1}}
	if err := f.SetBox(decision.P, box); err != nil {
		t.Fatalf("SetBox failed: %v", err)
	}
	vbox := []decision.Interval{{Lo: 0.2, Hi: 0.8}, {Lo: 0, Hi: 1}, {Lo: 0, Hi: 1}, {Lo: 0, Hi: 1}}
	if err := f.SetBox(decision.V, vbox); err != nil {
		t.Fatalf("SetBox failed: %v", err)
	}
	if err := f.SetMidpoint(decision.V, 1, 1, 0.75); err != nil {
		t.Fatalf("SetMidpoint failed: %v", err)
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	res, err := Compute(f, 1)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	// on [0.2, 0.8] the admissible means are [0.4, 0.6]; focal 0.75 snaps
	// to 0.6 and the mode lands on the upper bound
	if !approx(res.Mean, 0.6, tol) {
		t.Errorf("Expected snapped mean 0.6, got %g", res.Mean)
	}
	if !approx(res.Variance, 0.36/18, tol) {
		t.Errorf("Expected variance %g, got %g", 0.36/18, res.Variance)
	}
	if res.ThirdMoment >= 0 {
		t.Errorf("Expected left skew with the mode at the upper bound, got %g", res.ThirdMoment)
	}
}

// TestFreeProbabilityIndicator tests the probability marginal: an indicator
// utility over an unconstrained pair behaves like a uniform draw.
func TestFreeProbabilityIndicator(t *testing.T) {
	f, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), []int{2, 2})
	if err != nil {
		t.Fatalf("NewFlatFrame failed: %v", err)
	}
	vbox := []decision.Interval{{Lo: 1, Hi: 1}, {Lo: 0, Hi: 0}, {Lo: 0, Hi: 1}, {Lo: 0, Hi: 1}}
	if err := f.SetBox(decision.V, vbox); err != nil {
		t.Fatalf("SetBox failed: %v", err)
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	res, err := Compute(f, 1)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if !approx(res.Mean, 0.5, 1e-12) {
		t.Errorf("Expected mean 0.5, got %g", res.Mean)
	}
	// lambda = 2 on a free pair, so the marginal variance is 1/12, the
	// uniform variance
	if !approx(res.Variance, 1.0/12, 1e-12) {
		t.Errorf("Expected variance 1/12, got %g", res.Variance)
	}
	if math.Abs(res.ThirdMoment) > 1e-12 {
		t.Errorf("Expected symmetric third moment, got %g", res.ThirdMoment)
	}
}

// TestConstantUtilityCancelsSpread tests the sibling cross term: with both
// values pinned to one the utility is constant, and the negative correlation
// must cancel the marginal variances.
func TestConstantUtilityCancelsSpread(t *testing.T) {
	f, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), []int{2, 2})
	if err != nil {
		t.Fatalf("NewFlatFrame failed: %v", err)
	}
	vbox := []decision.Interval{{Lo: 1, Hi: 1}, {Lo: 1, Hi: 1}, {Lo: 0, Hi: 1}, {Lo: 0, Hi: 1}}
	if err := f.SetBox(decision.V, vbox); err != nil {
		t.Fatalf("SetBox failed: %v", err)
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	res, err := Compute(f, 1)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if !approx(res.Mean, 1.0, 1e-12) {
		t.Errorf("Expected mean 1, got %g", res.Mean)
	}
	if math.Abs(res.Variance) > 1e-12 {
		t.Errorf("Expected cancelled variance, got %g", res.Variance)
	}
}

// TestMeanMatchesPointEstimate tests that without focal snapping the moment
// mean agrees with the mass-point expectation
func TestMeanMatchesPointEstimate(t *testing.T) {
	f, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), []int{3, 2})
	if err != nil {
		t.Fatalf("NewFlatFrame failed: %v", err)
	}
	stmts := []decision.Statement{
		{Alt: 1, Node: 1, Lo: 0.2, Hi: 0.5},
		{Alt: 1, Node: 2, Lo: 0.1, Hi: 0.6},
		{Alt: 1, Node: 3, Lo: 0.1, Hi: 0.3},
	}
	for _, s := range stmts {
		if err := f.AddStatement(decision.P, s); err != nil {
			t.Fatalf("AddStatement(%v) failed: %v", s, err)
		}
	}
	vbox := []decision.Interval{
		{Lo: 0.9, Hi: 0.9}, {Lo: 0.5, Hi: 0.5}, {Lo: 0.1, Hi: 0.1},
		{Lo: 0, Hi: 1}, {Lo: 0, Hi: 1},
	}
	if err := f.SetBox(decision.V, vbox); err != nil {
		t.Fatalf("SetBox failed: %v", err)
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	for alt := 1; alt <= 2; alt++ {
		res, err := Compute(f, alt)
		if err != nil {
			t.Fatalf("Compute(%d) failed: %v", alt, err)
		}
		omega, err := evaluate.Omega(f, alt)
		if err != nil {
			t.Fatalf("Omega(%d) failed: %v", alt, err)
		}
		if !approx(res.Mean, omega, 1e-12) {
			t.Errorf("Alt %d: expected mean %g to match point estimate %g", alt, res.Mean, omega)
		}
	}
}

// TestIntermediatePassThrough tests moments through an intermediate node
//
//	         1
//	       /   \
//	      2     3
//	          /   \
//	         4     5
func TestIntermediatePassThrough(t *testing.T) {
	f, err := decision.NewTreeFrame(decision.DefaultLimits(), decision.DefaultConfig(),
		[]int{5, 1},
		[][]int{{0, 3, 0, 5, 0}, {0}},
		[][]int{{2, 0, 4, 0, 0}, {0}},
	)
	if err != nil {
		t.Fatalf("NewTreeFrame failed: %v", err)
	}
	pins := []struct {
		layer decision.Layer
		node  int
		v     float64
	}{
		{decision.P, 2, 0.6}, {decision.P, 4, 0.5},
		{decision.V, 2, 0.2}, {decision.V, 4, 1.0}, {decision.V, 5, 0.0},
	}
	for _, p := range pins {
		s := decision.Statement{Alt: 1, Node: p.node, Lo: p.v, Hi: p.v}
		if err := f.AddStatement(p.layer, s); err != nil {
			t.Fatalf("AddStatement(%v) failed: %v", s, err)
		}
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	res, err := Compute(f, 1)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	// 0.6*0.2 + 0.4*(0.5*1 + 0.5*0)
	if !approx(res.Mean, 0.32, tol) {
		t.Errorf("Expected mean 0.32, got %g", res.Mean)
	}
	if res.Variance != 0 {
		t.Errorf("Expected zero variance on pinned tree, got %g", res.Variance)
	}
	if math.Abs(res.ThirdMoment) > 1e-15 {
		t.Errorf("Expected vanishing third moment, got %g", res.ThirdMoment)
	}

	// the single-node alternative carries one free value on a sure outcome
	res2, err := Compute(f, 2)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if !approx(res2.Mean, 0.5, tol) {
		t.Errorf("Expected mean 0.5, got %g", res2.Mean)
	}
	if !approx(res2.Variance, 1.0/24, tol) {
		t.Errorf("Expected triangular variance 1/24, got %g", res2.Variance)
	}
}

// TestStdDevGuard tests the negative-variance clamp
func TestStdDevGuard(t *testing.T) {
	if got := (Result{Variance: -1e-18}).StdDev(); got != 0 {
		t.Errorf("Expected 0 for negative variance, got %g", got)
	}
	if got := (Result{Variance: 0.25}).StdDev(); got != 0.5 {
		t.Errorf("Expected 0.5, got %g", got)
	}
}

// TestComputeValidation tests lifecycle and range guards
func TestComputeValidation(t *testing.T) {
	detached, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), []int{2, 2})
	if err != nil {
		t.Fatalf("NewFlatFrame failed: %v", err)
	}
	if _, err := Compute(detached, 1); !errors.Is(err, core.ErrDetached) {
		t.Errorf("Expected detached error, got %v", err)
	}
	if _, err := ComputeAll(detached); !errors.Is(err, core.ErrDetached) {
		t.Errorf("Expected detached error, got %v", err)
	}

	f := pinnedPair(t)
	if _, err := Compute(f, 3); !errors.Is(err, core.ErrInput) {
		t.Errorf("Expected input error for alt 3, got %v", err)
	}
	if _, err := Compute(f, 0); !errors.Is(err, core.ErrInput) {
		t.Errorf("Expected input error for alt 0, got %v", err)
	}
}

// riskFixture builds one alternative with a low, a middle, and a high value
// range over partially constrained probabilities.
//
//	hulls: [0.2,0.5] [0.2,0.6] [0.1,0.3]
//	vbox:  [0.0,0.2] [0.3,0.7] [0.8,1.0], focals at the midpoints
func riskFixture(t *testing.T) *decision.Frame {
	t.Helper()
	f, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), []int{3, 2})
	if err != nil {
		t.Fatalf("NewFlatFrame failed: %v", err)
	}
	stmts := []decision.Statement{
		{Alt: 1, Node: 1, Lo: 0.2, Hi: 0.5},
		{Alt: 1, Node: 2, Lo: 0.1, Hi: 0.6},
		{Alt: 1, Node: 3, Lo: 0.1, Hi: 0.3},
	}
	for _, s := range stmts {
		if err := f.AddStatement(decision.P, s); err != nil {
			t.Fatalf("AddStatement(%v) failed: %v", s, err)
		}
	}
	vbox := []decision.Interval{
		{Lo: 0.0, Hi: 0.2}, {Lo: 0.3, Hi: 0.7}, {Lo: 0.8, Hi: 1.0},
		{Lo: 0, Hi: 1}, {Lo: 0, Hi: 1},
	}
	if err := f.SetBox(decision.V, vbox); err != nil {
		t.Fatalf("SetBox failed: %v", err)
	}
	if err := f.Attach(); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	return f
}

// TestSecurityLevelSets tests the three threshold sets at tau = 0.5
func TestSecurityLevelSets(t *testing.T) {
	f := riskFixture(t)
	sec, err := SecurityLevels(f, 1, 0.5)
	if err != nil {
		t.Fatalf("SecurityLevels failed: %v", err)
	}
	// strong holds only the low range; marked and weak add the middle one,
	// whose focal 0.5 and lower bound 0.3 both clear the threshold
	if !approx(sec.Strong.Min, 0.2, tol) || !approx(sec.Strong.Max, 0.5, tol) {
		t.Errorf("Expected strong mass [0.2, 0.5], got [%g, %g]", sec.Strong.Min, sec.Strong.Max)
	}
	if !approx(sec.Marked.Min, 0.7, tol) || !approx(sec.Marked.Max, 0.9, tol) {
		t.Errorf("Expected marked mass [0.7, 0.9], got [%g, %g]", sec.Marked.Min, sec.Marked.Max)
	}
	if !approx(sec.Weak.Min, 0.7, tol) || !approx(sec.Weak.Max, 0.9, tol) {
		t.Errorf("Expected weak mass [0.7, 0.9], got [%g, %g]", sec.Weak.Min, sec.Weak.Max)
	}
}

// TestSecuritySweepNested tests that the set inclusion shows up as ordered
// masses across thresholds
func TestSecuritySweepNested(t *testing.T) {
	f := riskFixture(t)
	for _, tau := range []float64{-0.5, 0.05, 0.25, 0.5, 0.85, 1.0} {
		sec, err := SecurityLevels(f, 1, tau)
		if err != nil {
			t.Fatalf("SecurityLevels(%g) failed: %v", tau, err)
		}
		if sec.Marked.Min < sec.Strong.Min-tol || sec.Marked.Max < sec.Strong.Max-tol {
			t.Errorf("tau %g: marked %+v below strong %+v", tau, sec.Marked, sec.Strong)
		}
		if sec.Weak.Min < sec.Marked.Min-tol || sec.Weak.Max < sec.Marked.Max-tol {
			t.Errorf("tau %g: weak %+v below marked %+v", tau, sec.Weak, sec.Marked)
		}
	}

	sec, err := SecurityLevels(f, 1, -0.5)
	if err != nil {
		t.Fatalf("SecurityLevels failed: %v", err)
	}
	if sec.Weak.Max != 0 {
		t.Errorf("Expected empty sets below every value, got weak max %g", sec.Weak.Max)
	}
	sec, err = SecurityLevels(f, 1, 1.0)
	if err != nil {
		t.Fatalf("SecurityLevels failed: %v", err)
	}
	if !approx(sec.Strong.Min, 1, tol) || !approx(sec.Weak.Max, 1, tol) {
		t.Errorf("Expected full mass at threshold 1, got %+v", sec)
	}
}

// TestSecurityClassify tests the tier selection
func TestSecurityClassify(t *testing.T) {
	nested := Security{
		Strong: MassRange{Min: 0.2, Max: 0.5},
		Marked: MassRange{Min: 0.7, Max: 0.9},
		Weak:   MassRange{Min: 0.7, Max: 0.9},
	}
	weakOnly := Security{
		Strong: MassRange{Min: 0, Max: 0.1},
		Marked: MassRange{Min: 0.1, Max: 0.3},
		Weak:   MassRange{Min: 0.4, Max: 0.8},
	}
	tests := []struct {
		name string
		sec  Security
		risk float64
		want SecurityLevel
	}{
		{"guaranteed strong", nested, 0.15, SecurityStrong},
		{"strong boundary", nested, 0.2, SecurityStrong},
		{"marked between", nested, 0.65, SecurityMarked},
		{"weak reachable", nested, 0.85, SecurityWeak},
		{"beyond weak", nested, 0.95, SecurityNone},
		{"weak only", weakOnly, 0.35, SecurityWeak},
		{"marked floor", weakOnly, 0.05, SecurityMarked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sec.Classify(tt.risk); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

// TestSecurityValidation tests lifecycle and range guards
func TestSecurityValidation(t *testing.T) {
	detached, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), []int{2, 2})
	if err != nil {
		t.Fatalf("NewFlatFrame failed: %v", err)
	}
	if _, err := SecurityLevels(detached, 1, 0.5); !errors.Is(err, core.ErrDetached) {
		t.Errorf("Expected detached error, got %v", err)
	}
	f := riskFixture(t)
	if _, err := SecurityLevels(f, 9, 0.5); !errors.Is(err, core.ErrInput) {
		t.Errorf("Expected input error, got %v", err)
	}
}
