// Package moments summarizes a frame's alternatives beyond point estimates:
// mean, variance, and third central moment of each alternative's utility, and
// threshold-based security levels over the probability hull.
//
// Probability intervals enter as scaled Dirichlet marginals around the mass
// point, value intervals as triangular distributions with the focal value as
// mode source. Products and level sums follow the usual independence algebra,
// with a separable covariance term reconstructing the negative sibling
// correlation that normalization induces.
package moments

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"godecide/domain/decision"
	"godecide/domain/tree"
)

// Result aggregates one alternative's utility distribution.
type Result struct {
	Mean        float64 `json:"mean"`
	Variance    float64 `json:"variance"`
	ThirdMoment float64 `json:"third_moment"`
}

// StdDev returns the standard deviation. Cross-term cancellation can leave
// the variance a few ulps below zero; that is treated as zero.
func (r Result) StdDev() float64 {
	return math.Sqrt(math.Max(0, r.Variance))
}

// nodeMoment carries one node's combined moments through level aggregation.
// pcov and vmean feed the sibling cross terms one level up.
type nodeMoment struct {
	mean  float64
	vari  float64
	third float64
	pcov  float64
	vmean float64
}

// pMarginal is the probability distribution assigned to one node: mean at the
// mass point, spread from the local hull width.
type pMarginal struct {
	mean float64
	vari float64
	cov  float64
}

// Compute walks one alternative bottom-up and aggregates the mean, variance,
// and third central moment of its utility.
func Compute(f *decision.Frame, alt int) (Result, error) {
	hull, err := f.HullLocalAll()
	if err != nil {
		return Result{}, err
	}
	mass, err := f.MassLocalAll()
	if err != nil {
		return Result{}, err
	}
	vbox, err := f.AltValueBounds(alt)
	if err != nil {
		return Result{}, err
	}
	focal, err := f.AltValueMass(alt)
	if err != nil {
		return Result{}, err
	}
	topo, err := f.Index().Alt(alt)
	if err != nil {
		return Result{}, err
	}
	off, err := f.Index().SeqOffset(alt)
	if err != nil {
		return Result{}, err
	}
	agg := levelMoment(topo, off, 0, hull, mass, vbox, focal, f.EngineConfig().Epsilon)
	return Result{Mean: agg.mean, Variance: agg.vari, ThirdMoment: agg.third}, nil
}

// ComputeAll runs Compute for every alternative, indexed from zero.
func ComputeAll(f *decision.Frame) ([]Result, error) {
	out := make([]Result, f.NumAlts())
	for alt := 1; alt <= f.NumAlts(); alt++ {
		r, err := Compute(f, alt)
		if err != nil {
			return nil, err
		}
		out[alt-1] = r
	}
	return out, nil
}

// levelMoment aggregates the sibling level under parent and returns it as the
// parent's value distribution. Real children contribute a triangular value
// moment, intermediate children their own subtree aggregate; each is scaled
// by the child's probability marginal before summing.
func levelMoment(topo *tree.Topology, off, parent int, hull []decision.Interval, mass []float64, vbox []decision.Interval, focal []float64, eps float64) nodeMoment {
	children := topo.Children(parent)
	lam := levelScale(children, off, hull, eps)

	parts := make([]nodeMoment, 0, len(children))
	for _, c := range children {
		var val nodeMoment
		if topo.IsReal(c) {
			k := topo.RealOrdinal(c)
			val = valueMoment(vbox[k-1], focal[k-1], eps)
		} else {
			val = levelMoment(topo, off, c, hull, mass, vbox, focal, eps)
		}
		p := probabilityMarginal(hull[off+c-1], mass[off+c-1], lam)
		parts = append(parts, combine(p, val))
	}

	var out nodeMoment
	for i := range parts {
		out.mean += parts[i].mean
		out.vari += parts[i].vari
		out.third += parts[i].third
	}
	// siblings share one unit of mass, so their probabilities are negatively
	// correlated; the separable covariances reconstruct the off-diagonal
	for i := 0; i < len(parts); i++ {
		for j := i + 1; j < len(parts); j++ {
			out.vari -= 2 * parts[i].vmean * parts[j].vmean * math.Sqrt(parts[i].pcov*parts[j].pcov)
		}
	}
	out.third /= float64(len(parts))
	out.vmean = out.mean
	return out
}

// levelScale is the level's contraction ratio lambda: total hull width over
// the mass left above the lower bounds. Both vanish together on a pinned
// level, where the ratio tends to one.
func levelScale(children []int, off int, hull []decision.Interval, eps float64) float64 {
	var width, lower float64
	for _, c := range children {
		width += hull[off+c-1].Width()
		lower += hull[off+c-1].Lo
	}
	if 1-lower <= eps {
		return 1
	}
	return width / (1 - lower)
}

// probabilityMarginal models one node's probability as a Dirichlet marginal
// over the local hull, centered on the mass point.
func probabilityMarginal(h decision.Interval, mid, lam float64) pMarginal {
	t := h.Width()
	scale := t * t / (lam + 1)
	return pMarginal{
		mean: mid,
		vari: scale * mid * (1 - mid),
		cov:  scale * mid * mid,
	}
}

// valueMoment models one real node's value as a triangular distribution over
// its bounds. The focal value is snapped into the middle third so the implied
// mode stays inside the bounds; the distribution's mean is then the snapped
// focal exactly.
func valueMoment(bounds decision.Interval, focal, eps float64) nodeMoment {
	if bounds.Width() <= eps {
		m := bounds.Midpoint()
		return nodeMoment{mean: m, vmean: m}
	}
	lo, hi := bounds.Lo, bounds.Hi
	mean := math.Max((2*lo+hi)/3, math.Min((lo+2*hi)/3, focal))
	mode := math.Max(lo, math.Min(hi, 3*mean-lo-hi))
	tri := distuv.NewTriangle(lo, hi, mode, nil)
	sigma := tri.StdDev()
	return nodeMoment{
		mean:  mean,
		vari:  tri.Variance(),
		third: tri.Skewness() * sigma * sigma * sigma,
		vmean: mean,
	}
}

// combine multiplies an independent probability marginal into a value
// distribution. The probability marginal is treated as symmetric, so its own
// third moment is zero; the value part keeps its skew.
func combine(p pMarginal, val nodeMoment) nodeMoment {
	mx, vx := p.mean, p.vari
	my, vy := val.mean, val.vari
	mean := mx * my
	ex3 := 3*mx*vx + mx*mx*mx
	ey3 := val.third + 3*my*vy + my*my*my
	ex2 := vx + mx*mx
	ey2 := vy + my*my
	return nodeMoment{
		mean:  mean,
		vari:  vx*vy + vx*my*my + vy*mx*mx,
		third: ex3*ey3 - 3*ex2*ey2*mx*my + 2*mean*mean*mean,
		pcov:  p.cov,
		vmean: my,
	}
}
