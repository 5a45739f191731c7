package report

import (
	"errors"
	"strings"
	"testing"

	"godecide/domain/core"
	"godecide/domain/decision"
)

// pinnedPair builds two alternatives with fully pinned probabilities and
// values, so every table cell is deterministic.
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

// TestBuildSections tests that every section lands in the Markdown with the
// expected numbers
func TestBuildSections(t *testing.T) {
	f := pinnedPair(t)
	md, err := Build(f, DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	wants := []string{
		"# Decision analysis",
		"Alternative 2 leads by point estimate.",
		"## Evaluation",
		"| 1 | 0.4250 | 0.4250 | 0.4250 | 0.4250 | -0.4750 |",
		"| 2 | 0.9000 | 0.9000 | 0.9000 | 0.9000 | 0.4750 |",
		"## Moments",
		"| 1 | 0.4250 | 0.0000 |",
		"## Security at threshold 0.25, risk 0.50",
		"| 1 | [0.300, 0.300] | [0.300, 0.300] | [0.300, 0.300] | none |",
		"| 2 | [0.000, 0.000] | [0.000, 0.000] | [0.000, 0.000] | none |",
		"## Mass profile",
		"| 1 | 2 | 0.5000 | 0.5000 | 0.2000 | 0.3000 | 0.7000 |",
	}
	for _, want := range wants {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown missing %q\n%s", want, md)
		}
	}
}

// TestBuildCustomOptions tests threshold and title plumbing
func TestBuildCustomOptions(t *testing.T) {
	f := pinnedPair(t)
	md, err := Build(f, Options{Title: "Launch review", Threshold: 0.5, Risk: 0.25})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !strings.Contains(md, "# Launch review") {
		t.Errorf("Expected custom title, got\n%s", md)
	}
	if !strings.Contains(md, "## Security at threshold 0.50, risk 0.25") {
		t.Errorf("Expected custom security heading, got\n%s", md)
	}
	// at tau 0.5 alt 1's whole outcome set qualifies, and its guaranteed
	// mass 1 clears risk 0.25
	if !strings.Contains(md, "| 1 | [1.000, 1.000] | [1.000, 1.000] | [1.000, 1.000] | strong |") {
		t.Errorf("Expected strong classification for alt 1, got\n%s", md)
	}
}

// TestBuildDetachedFrame tests the lifecycle guard
func TestBuildDetachedFrame(t *testing.T) {
	f, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), []int{2, 2})
	if err != nil {
		t.Fatalf("NewFlatFrame failed: %v", err)
	}
	if _, err := Build(f, DefaultOptions()); !errors.Is(err, core.ErrDetached) {
		t.Errorf("Expected detached error, got %v", err)
	}
}

// TestHTMLRendering tests the Markdown to HTML conversion
func TestHTMLRendering(t *testing.T) {
	f := pinnedPair(t)
	md, err := Build(f, DefaultOptions())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	out := string(HTML(md))
	for _, want := range []string{"<h1", "<h2", "<table>", "</table>"} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if strings.Contains(out, "| 1 |") {
		t.Errorf("Expected table syntax to be consumed, got\n%s", out)
	}
}
