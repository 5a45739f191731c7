package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"godecide/adapters/excel"
	"godecide/adapters/filestore"
	"godecide/domain/core"
	"godecide/domain/decision"
	"godecide/internal/evaluate"
	"godecide/internal/moments"
	"godecide/internal/report"
	"godecide/internal/testkit"
	"godecide/ports"
)

var dataDir string

func main() {
	rootCmd := &cobra.Command{
		Use:   "godecide-cli",
		Short: "Command-line tester for the decision analysis engine",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Problem storage directory")

	rootCmd.AddCommand(
		newCreateCmd(),
		newRandomCmd(),
		newListCmd(),
		newShowCmd(),
		newAddCmd(),
		newDelCmd(),
		newMidpointCmd(),
		newHullCmd(),
		newEvalCmd(),
		newMomentsCmd(),
		newSecurityCmd(),
		newReportCmd(),
		newExportCmd(),
		newDeleteCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore() (ports.ProblemStore, error) {
	return filestore.New(dataDir)
}

// loadFrame rebuilds a stored problem as a detached frame
func loadFrame(ctx context.Context, store ports.ProblemStore, id string) (*decision.Frame, *decision.ProblemRecord, error) {
	rec, err := store.Load(ctx, core.ProblemID(id))
	if err != nil {
		return nil, nil, err
	}
	f, err := decision.FromSnapshot(rec)
	if err != nil {
		return nil, nil, err
	}
	return f, rec, nil
}

// saveFrame snapshots a mutated frame back under its problem ID
func saveFrame(ctx context.Context, store ports.ProblemStore, f *decision.Frame, rec *decision.ProblemRecord) error {
	snap, err := f.Snapshot()
	if err != nil {
		return err
	}
	snap.ID = rec.ID
	snap.Name = rec.Name
	snap.CreatedAt = rec.CreatedAt
	return store.Save(ctx, snap)
}

func parseLeaves(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid leaf count %q: %w", p, err)
		}
		out[i] = n
	}
	return out, nil
}

func newCreateCmd() *cobra.Command {
	var leaves string

	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "Create and save a flat decision problem",
		Long: `Create a flat frame with the given per-alternative leaf counts and save it.

Example: godecide-cli create "plant siting" --leaves 3,4,2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := parseLeaves(leaves)
			if err != nil {
				return err
			}
			f, err := decision.NewFlatFrame(decision.DefaultLimits(), decision.DefaultConfig(), counts)
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := f.Snapshot()
			if err != nil {
				return err
			}
			rec.ID = core.ProblemID(core.NewID())
			rec.Name = args[0]
			if err := store.Save(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Printf("Created problem %s (%q)\n", rec.ID, rec.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&leaves, "leaves", "2,2", "Comma-separated leaf counts, one per alternative")
	return cmd
}

func newRandomCmd() *cobra.Command {
	var seed int64
	var alts, depth int

	cmd := &cobra.Command{
		Use:   "random [name]",
		Short: "Generate and save a random consistent problem",
		Long: `Generate a deterministic random problem from a seed and save it.

Example: godecide-cli random "demo" --seed 42 --alts 3 --depth 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := testkit.DefaultGeneratorConfig()
			cfg.Alternatives = alts
			cfg.Depth = depth
			gen := testkit.NewGenerator(testkit.NewKit(seed), decision.DefaultLimits(), decision.DefaultConfig())
			f, err := gen.Problem(cfg)
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := f.Snapshot()
			if err != nil {
				return err
			}
			rec.ID = core.ProblemID(core.NewID())
			rec.Name = args[0]
			if err := store.Save(cmd.Context(), rec); err != nil {
				return err
			}
			fmt.Printf("Generated problem %s (%q, seed %d)\n", rec.ID, rec.Name, seed)
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().IntVar(&alts, "alts", 3, "Number of alternatives")
	cmd.Flags().IntVar(&depth, "depth", 2, "Tree depth, 1 for flat")
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved problems",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			problems, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(problems) == 0 {
				fmt.Println("No saved problems.")
				return nil
			}
			for _, p := range problems {
				fmt.Printf("%s  %-24s  %d alternatives  updated %s\n",
					p.ID, p.Name, p.Alternatives, p.UpdatedAt)
			}
			return nil
		},
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [problem-id]",
		Short: "Print a problem's statements and midpoint hints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, rec, err := loadFrame(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Problem %s (%q), %d alternatives, fingerprint %s\n",
				rec.ID, rec.Name, f.NumAlts(), rec.Fingerprint)
			for _, layer := range []decision.Layer{decision.P, decision.V} {
				stmts, err := f.Statements(layer)
				if err != nil {
					return err
				}
				fmt.Printf("%s base: %d statements\n", layer, len(stmts))
				for n, s := range stmts {
					fmt.Printf("  %3d. %s\n", n+1, s)
				}
				mids, err := f.MidpointBox(layer)
				if err != nil {
					return err
				}
				for i, m := range mids {
					if m >= 0 {
						fmt.Printf("  midpoint slot %d = %.4f\n", i+1, m)
					}
				}
			}
			return nil
		},
	}
}

func newAddCmd() *cobra.Command {
	var layer string
	var alt, node int
	var lo, hi float64

	cmd := &cobra.Command{
		Use:   "add [problem-id]",
		Short: "Add an interval statement to a problem",
		Long: `Add a probability or value statement and verify consistency.

Example: godecide-cli add 0190… --layer P --alt 1 --node 2 --lo 0.3 --hi 0.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, rec, err := loadFrame(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			// attach first so the add verifies consistency before saving
			if err := f.Attach(); err != nil {
				return err
			}
			s := decision.Statement{Alt: alt, Node: node, Lo: lo, Hi: hi}
			if err := f.AddStatement(decision.Layer(layer), s); err != nil {
				return err
			}
			if err := saveFrame(cmd.Context(), store, f, rec); err != nil {
				return err
			}
			fmt.Printf("Added %s statement %s\n", layer, s)
			return nil
		},
	}

	cmd.Flags().StringVar(&layer, "layer", "P", "Constraint layer, P or V")
	cmd.Flags().IntVar(&alt, "alt", 1, "Alternative number")
	cmd.Flags().IntVar(&node, "node", 1, "Node position within the alternative")
	cmd.Flags().Float64Var(&lo, "lo", 0, "Lower bound")
	cmd.Flags().Float64Var(&hi, "hi", 1, "Upper bound")
	return cmd
}

func newDelCmd() *cobra.Command {
	var layer string
	var number int

	cmd := &cobra.Command{
		Use:   "del [problem-id]",
		Short: "Delete a statement by number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, rec, err := loadFrame(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if err := f.DeleteStatement(decision.Layer(layer), number); err != nil {
				return err
			}
			if err := saveFrame(cmd.Context(), store, f, rec); err != nil {
				return err
			}
			fmt.Printf("Deleted %s statement %d\n", layer, number)
			return nil
		},
	}

	cmd.Flags().StringVar(&layer, "layer", "P", "Constraint layer, P or V")
	cmd.Flags().IntVar(&number, "number", 1, "Statement number")
	return cmd
}

func newMidpointCmd() *cobra.Command {
	var layer string
	var alt, node int
	var value float64
	var clear bool

	cmd := &cobra.Command{
		Use:   "midpoint [problem-id]",
		Short: "Set or clear a node's midpoint hint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, rec, err := loadFrame(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if err := f.Attach(); err != nil {
				return err
			}
			l := decision.Layer(layer)
			if clear {
				err = f.ClearMidpoint(l, alt, node)
			} else {
				err = f.SetMidpoint(l, alt, node, value)
			}
			if err != nil {
				return err
			}
			if err := saveFrame(cmd.Context(), store, f, rec); err != nil {
				return err
			}
			if clear {
				fmt.Printf("Cleared %s midpoint of node (%d,%d)\n", layer, alt, node)
			} else {
				fmt.Printf("Set %s midpoint of node (%d,%d) to %.4f\n", layer, alt, node, value)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&layer, "layer", "P", "Constraint layer, P or V")
	cmd.Flags().IntVar(&alt, "alt", 1, "Alternative number")
	cmd.Flags().IntVar(&node, "node", 1, "Node position within the alternative")
	cmd.Flags().Float64Var(&value, "value", 0.5, "Midpoint value")
	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the hint instead of setting it")
	return cmd
}

func newHullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hull [problem-id]",
		Short: "Print per-node hulls and mass points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, _, err := loadFrame(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if err := f.Attach(); err != nil {
				return err
			}
			fmt.Println("alt node kind          hull (local)        mass (local/global)")
			for alt := 1; alt <= f.NumAlts(); alt++ {
				topo, err := f.Index().Alt(alt)
				if err != nil {
					return err
				}
				for pos := 1; pos <= topo.Total(); pos++ {
					hullL, _, err := f.Hull(alt, pos)
					if err != nil {
						return err
					}
					massL, massG, err := f.MassPoint(alt, pos)
					if err != nil {
						return err
					}
					fmt.Printf("%3d %4d %-12s [%.4f, %.4f]     %.4f / %.4f\n",
						alt, pos, topo.Kind(pos), hullL.Lo, hullL.Hi, massL, massG)
				}
			}
			return nil
		},
	}
}

func newEvalCmd() *cobra.Command {
	var method string
	var alt, other int
	var selection uint64

	cmd := &cobra.Command{
		Use:   "eval [problem-id]",
		Short: "Run one of the five evaluation methods",
		Long: `Evaluate an alternative: omega, psi, delta, gamma, or digamma.

Example: godecide-cli eval 0190… --method delta --alt 1 --other 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, _, err := loadFrame(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if err := f.Attach(); err != nil {
				return err
			}
			var span evaluate.Span
			switch method {
			case "omega":
				mid, err := evaluate.Omega(f, alt)
				if err != nil {
					return err
				}
				span = evaluate.Span{Min: mid, Mid: mid, Max: mid}
			case "psi":
				span, err = evaluate.Psi(f, alt)
			case "delta":
				span, err = evaluate.Delta(f, alt, other)
			case "gamma":
				span, err = evaluate.Gamma(f, alt)
			case "digamma":
				span, err = evaluate.Digamma(f, alt, selection)
			default:
				return fmt.Errorf("unknown method %q (omega|psi|delta|gamma|digamma)", method)
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s(alt %d): min %.6f  mid %.6f  max %.6f\n", method, alt, span.Min, span.Mid, span.Max)
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", "psi", "Evaluation method")
	cmd.Flags().IntVar(&alt, "alt", 1, "Alternative to evaluate")
	cmd.Flags().IntVar(&other, "other", 2, "Second alternative for delta")
	cmd.Flags().Uint64Var(&selection, "selection", 0, "Digamma subset bitmask, bit k-1 selects alternative k")
	return cmd
}

func newMomentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "moments [problem-id]",
		Short: "Print each alternative's distribution moments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, _, err := loadFrame(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if err := f.Attach(); err != nil {
				return err
			}
			results, err := moments.ComputeAll(f)
			if err != nil {
				return err
			}
			for i, r := range results {
				fmt.Printf("alt %d: mean %.6f  stddev %.6f  third %.6f\n",
					i+1, r.Mean, r.StdDev(), r.ThirdMoment)
			}
			return nil
		},
	}
}

func newSecurityCmd() *cobra.Command {
	var threshold, risk float64

	cmd := &cobra.Command{
		Use:   "security [problem-id]",
		Short: "Classify alternatives against a value threshold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, _, err := loadFrame(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if err := f.Attach(); err != nil {
				return err
			}
			for alt := 1; alt <= f.NumAlts(); alt++ {
				sec, err := moments.SecurityLevels(f, alt, threshold)
				if err != nil {
					return err
				}
				fmt.Printf("alt %d: strong [%.3f, %.3f]  marked [%.3f, %.3f]  weak [%.3f, %.3f]  -> %s\n",
					alt, sec.Strong.Min, sec.Strong.Max, sec.Marked.Min, sec.Marked.Max,
					sec.Weak.Min, sec.Weak.Max, sec.Classify(risk))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0.25, "Value threshold")
	cmd.Flags().Float64Var(&risk, "risk", 0.5, "Risk level a classification must reach")
	return cmd
}

func newReportCmd() *cobra.Command {
	var out, title string

	cmd := &cobra.Command{
		Use:   "report [problem-id]",
		Short: "Write the Markdown analysis report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, rec, err := loadFrame(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if err := f.Attach(); err != nil {
				return err
			}
			opts := report.DefaultOptions()
			if title != "" {
				opts.Title = title
			} else {
				opts.Title = rec.Name
			}
			md, err := report.Build(f, opts)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Print(md)
				return nil
			}
			if err := os.WriteFile(out, []byte(md), 0644); err != nil {
				return err
			}
			fmt.Printf("Wrote report to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file, stdout when empty")
	cmd.Flags().StringVar(&title, "title", "", "Report title, problem name when empty")
	return cmd
}

func newExportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export [problem-id]",
		Short: "Export the analysis workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			f, _, err := loadFrame(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			if err := f.Attach(); err != nil {
				return err
			}
			if err := excel.NewExporter().WriteFile(f, out); err != nil {
				return err
			}
			fmt.Printf("Wrote workbook to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "analysis.xlsx", "Output workbook path")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [problem-id]",
		Short: "Delete a saved problem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(cmd.Context(), core.ProblemID(args[0])); err != nil {
				return err
			}
			fmt.Printf("Deleted problem %s\n", args[0])
			return nil
		},
	}
}
