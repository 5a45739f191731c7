package decision

// Interval is a closed [Lo, Hi] bound on a probability or value
type Interval struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// UnitInterval returns the default unconstrained bound [0, 1]
func UnitInterval() Interval { return Interval{Lo: 0, Hi: 1} }

// Point returns the degenerate interval [x, x]
func Point(x float64) Interval { return Interval{Lo: x, Hi: x} }

// Width returns Hi - Lo
func (iv Interval) Width() float64 { return iv.Hi - iv.Lo }

// Midpoint returns the center of the interval
func (iv Interval) Midpoint() float64 { return (iv.Lo + iv.Hi) / 2 }

// Contains reports whether x lies inside the interval
func (iv Interval) Contains(x float64) bool { return x >= iv.Lo && x <= iv.Hi }

// Clamp pins x into the interval
func (iv Interval) Clamp(x float64) float64 {
	if x < iv.Lo {
		return iv.Lo
	}
	if x > iv.Hi {
		return iv.Hi
	}
	return x
}

// InUnit reports whether the interval is well-formed within [0, 1]
func (iv Interval) InUnit() bool {
	return iv.Lo >= 0 && iv.Lo <= iv.Hi && iv.Hi <= 1
}

// Intersect returns the overlap of two intervals; the result may be empty
// (Lo > Hi), which callers must check.
func (iv Interval) Intersect(other Interval) Interval {
	out := iv
	if other.Lo > out.Lo {
		out.Lo = other.Lo
	}
	if other.Hi < out.Hi {
		out.Hi = other.Hi
	}
	return out
}
