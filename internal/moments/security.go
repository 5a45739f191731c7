package moments

import (
	"godecide/domain/decision"
	"godecide/internal/evaluate"
)

// SecurityLevel classifies how firmly an alternative's outcomes sit at or
// below a value threshold.
type SecurityLevel string

const (
	// SecurityStrong means the guaranteed mass on outcomes that cannot
	// exceed the threshold reaches the risk level.
	SecurityStrong SecurityLevel = "strong"
	// SecurityMarked means the guaranteed mass on outcomes whose focal
	// value is at or below the threshold reaches the risk level.
	SecurityMarked SecurityLevel = "marked"
	// SecurityWeak means some admissible assignment puts that much mass on
	// outcomes that can fall to the threshold.
	SecurityWeak SecurityLevel = "weak"
	// SecurityNone means not even the weak reading reaches the risk level.
	SecurityNone SecurityLevel = "none"
)

// MassRange bounds the probability mass an alternative can place on a set of
// its outcomes, over all probability assignments inside the hull.
type MassRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Security holds the threshold-set mass ranges for one alternative. The sets
// are nested, strong inside marked inside weak, so the ranges widen downward.
type Security struct {
	Strong MassRange `json:"strong"`
	Marked MassRange `json:"marked"`
	Weak   MassRange `json:"weak"`
}

// SecurityLevels measures how much probability mass alt can place on
// outcomes at or below threshold, under three readings of "at or below":
// the whole value interval (strong), the focal value (marked), and the
// interval's lower end (weak).
func SecurityLevels(f *decision.Frame, alt int, threshold float64) (Security, error) {
	bounds, err := f.AltValueBounds(alt)
	if err != nil {
		return Security{}, err
	}
	focal, err := f.AltValueMass(alt)
	if err != nil {
		return Security{}, err
	}

	strong := make([]bool, len(bounds))
	marked := make([]bool, len(bounds))
	weak := make([]bool, len(bounds))
	for k := range bounds {
		strong[k] = bounds[k].Hi <= threshold
		marked[k] = focal[k] <= threshold
		weak[k] = bounds[k].Lo <= threshold
	}

	var out Security
	if out.Strong.Min, out.Strong.Max, err = evaluate.MassExtremes(f, alt, strong); err != nil {
		return Security{}, err
	}
	if out.Marked.Min, out.Marked.Max, err = evaluate.MassExtremes(f, alt, marked); err != nil {
		return Security{}, err
	}
	if out.Weak.Min, out.Weak.Max, err = evaluate.MassExtremes(f, alt, weak); err != nil {
		return Security{}, err
	}
	return out, nil
}

// Classify reduces the mass ranges to the strongest tier that reaches the
// risk level: guaranteed strong mass first, then guaranteed marked mass,
// then attainable weak mass.
func (s Security) Classify(risk float64) SecurityLevel {
	switch {
	case s.Strong.Min >= risk:
		return SecurityStrong
	case s.Marked.Min >= risk:
		return SecurityMarked
	case s.Weak.Max >= risk:
		return SecurityWeak
	default:
		return SecurityNone
	}
}
