// Package report renders an attached frame's analysis into Markdown and HTML:
// evaluation spans, distribution moments, security classification, and
// descriptive summaries of the probability mass profile.
package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/montanaflynn/stats"

	"godecide/domain/decision"
	"godecide/internal/evaluate"
	"godecide/internal/moments"
)

// Options selects the report title and the security question it answers.
type Options struct {
	Title string `json:"title"`
	// Threshold is the value level outcomes are measured against
	Threshold float64 `json:"threshold"`
	// Risk is the probability level a classification must reach
	Risk float64 `json:"risk"`
}

// DefaultOptions reports against the lower value quartile at an even chance.
func DefaultOptions() Options {
	return Options{Title: "Decision analysis", Threshold: 0.25, Risk: 0.5}
}

// Build assembles the Markdown report for an attached frame.
func Build(f *decision.Frame, opts Options) (string, error) {
	if opts.Title == "" {
		opts.Title = DefaultOptions().Title
	}
	n := f.NumAlts()

	type altRow struct {
		omega    float64
		psi      evaluate.Span
		gamma    evaluate.Span
		moment   moments.Result
		security moments.Security
	}
	rows := make([]altRow, n)
	for alt := 1; alt <= n; alt++ {
		var (
			row altRow
			err error
		)
		if row.omega, err = evaluate.Omega(f, alt); err != nil {
			return "", err
		}
		if row.psi, err = evaluate.Psi(f, alt); err != nil {
			return "", err
		}
		if row.gamma, err = evaluate.Gamma(f, alt); err != nil {
			return "", err
		}
		if row.moment, err = moments.Compute(f, alt); err != nil {
			return "", err
		}
		if row.security, err = moments.SecurityLevels(f, alt, opts.Threshold); err != nil {
			return "", err
		}
		rows[alt-1] = row
	}

	best := 1
	for alt := 2; alt <= n; alt++ {
		if rows[alt-1].omega > rows[best-1].omega {
			best = alt
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", opts.Title)
	fmt.Fprintf(&b, "Frame `%s` with %d alternatives. Alternative %d leads by point estimate.\n\n",
		f.ID(), n, best)

	b.WriteString("## Evaluation\n\n")
	b.WriteString("| Alt | Omega | Psi min | Psi mid | Psi max | Gamma mid |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")
	for alt := 1; alt <= n; alt++ {
		r := rows[alt-1]
		fmt.Fprintf(&b, "| %d | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
			alt, r.omega, r.psi.Min, r.psi.Mid, r.psi.Max, r.gamma.Mid)
	}
	b.WriteString("\n")

	b.WriteString("## Moments\n\n")
	b.WriteString("| Alt | Mean | Std dev | Third moment |\n")
	b.WriteString("| --- | --- | --- | --- |\n")
	for alt := 1; alt <= n; alt++ {
		m := rows[alt-1].moment
		fmt.Fprintf(&b, "| %d | %.4f | %.4f | %.5f |\n", alt, m.Mean, m.StdDev(), m.ThirdMoment)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Security at threshold %.2f, risk %.2f\n\n", opts.Threshold, opts.Risk)
	b.WriteString("| Alt | Strong mass | Marked mass | Weak mass | Level |\n")
	b.WriteString("| --- | --- | --- | --- | --- |\n")
	for alt := 1; alt <= n; alt++ {
		s := rows[alt-1].security
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			alt, massRange(s.Strong), massRange(s.Marked), massRange(s.Weak), s.Classify(opts.Risk))
	}
	b.WriteString("\n")

	b.WriteString("## Mass profile\n\n")
	b.WriteString("| Alt | Outcomes | Mean | Median | Std dev | Min | Max |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- | --- |\n")
	for alt := 1; alt <= n; alt++ {
		mass, err := f.AltMassGlobal(alt)
		if err != nil {
			return "", err
		}
		mean, _ := stats.Mean(mass)
		median, _ := stats.Median(mass)
		sd, _ := stats.StandardDeviation(mass)
		lo, _ := stats.Min(mass)
		hi, _ := stats.Max(mass)
		fmt.Fprintf(&b, "| %d | %d | %.4f | %.4f | %.4f | %.4f | %.4f |\n",
			alt, len(mass), mean, median, sd, lo, hi)
	}

	return b.String(), nil
}

// HTML renders a Markdown report to an HTML fragment.
func HTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := p.Parse([]byte(md))
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, r)
}

func massRange(r moments.MassRange) string {
	return fmt.Sprintf("[%.3f, %.3f]", r.Min, r.Max)
}
