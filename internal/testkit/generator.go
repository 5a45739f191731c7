package testkit

import (
	"fmt"
	"math/rand"

	"godecide/domain/decision"
	"godecide/domain/tree"
	"godecide/ports"
)

// GeneratorConfig shapes a generated problem
type GeneratorConfig struct {
	// Alternatives is the number of alternatives in the frame
	Alternatives int `json:"alternatives"`
	// MinLeaves and MaxLeaves bound the outcome count per alternative
	MinLeaves int `json:"min_leaves"`
	MaxLeaves int `json:"max_leaves"`
	// Depth is the deepest tree level; 1 builds flat frames
	Depth int `json:"depth"`
	// Branch caps the children of a generated intermediate node
	Branch int `json:"branch"`
	// PStatements and VStatements count generated statements per alternative
	PStatements int `json:"p_statements"`
	VStatements int `json:"v_statements"`
	// Slack is the largest half-width a generated interval puts around the
	// sampled truth
	Slack float64 `json:"slack"`
	// MidpointShare is the fraction of nodes given a midpoint hint
	MidpointShare float64 `json:"midpoint_share"`
}

// DefaultGeneratorConfig returns a small mixed-depth problem shape
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Alternatives:  3,
		MinLeaves:     3,
		MaxLeaves:     8,
		Depth:         2,
		Branch:        4,
		PStatements:   4,
		VStatements:   4,
		Slack:         0.2,
		MidpointShare: 0.25,
	}
}

// Generator samples decision problems whose constraint sets are consistent
// by construction: every generated statement brackets a point drawn from a
// true distribution, so the truth witnesses every attach.
type Generator struct {
	rng    ports.RNG
	limits decision.Limits
	engine decision.Config
}

// NewGenerator creates a generator producing frames under the given limits
func NewGenerator(rng ports.RNG, limits decision.Limits, engine decision.Config) *Generator {
	return &Generator{rng: rng, limits: limits, engine: engine}
}

// Problem generates one detached frame with consistent bases. The same kit
// seed and config always yield the same problem.
func (g *Generator) Problem(cfg GeneratorConfig) (*decision.Frame, error) {
	if cfg.Alternatives < 2 {
		cfg.Alternatives = 2
	}
	if cfg.MinLeaves < 1 {
		cfg.MinLeaves = 1
	}
	if cfg.MaxLeaves < cfg.MinLeaves {
		cfg.MaxLeaves = cfg.MinLeaves
	}
	if cfg.Branch < 2 {
		cfg.Branch = 2
	}

	f, err := g.frame(cfg)
	if err != nil {
		return nil, err
	}
	if err := g.populate(f, cfg); err != nil {
		return nil, err
	}
	return f, nil
}

// frame builds the empty frame, flat or tree-shaped by depth
func (g *Generator) frame(cfg GeneratorConfig) (*decision.Frame, error) {
	shape := g.rng.Stream("shape", 0)
	if cfg.Depth <= 1 {
		leaves := make([]int, cfg.Alternatives)
		for i := range leaves {
			leaves[i] = cfg.MinLeaves + shape.Intn(cfg.MaxLeaves-cfg.MinLeaves+1)
		}
		return decision.NewFlatFrame(g.limits, g.engine, leaves)
	}
	totals := make([]int, cfg.Alternatives)
	next := make([][]int, cfg.Alternatives)
	down := make([][]int, cfg.Alternatives)
	for i := range totals {
		leaves := cfg.MinLeaves + shape.Intn(cfg.MaxLeaves-cfg.MinLeaves+1)
		totals[i], next[i], down[i] = growTree(shape, leaves, cfg.Depth, cfg.Branch)
	}
	return decision.NewTreeFrame(g.limits, g.engine, totals, next, down)
}

// genNode is a scratch tree used only while serializing successor links
type genNode struct {
	children []*genNode
}

// growTree samples a tree with the given leaf budget and serializes it to
// successor links in preorder. A budget of one yields a single real root.
func growTree(r *rand.Rand, leaves, depth, branch int) (total int, next, down []int) {
	root := grow(r, leaves, depth, branch)
	var nodes []*genNode
	number := make(map[*genNode]int)
	var walk func(n *genNode)
	walk = func(n *genNode) {
		nodes = append(nodes, n)
		number[n] = len(nodes)
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(root)

	total = len(nodes)
	next = make([]int, total)
	down = make([]int, total)
	for _, n := range nodes {
		for i, c := range n.children {
			if i == 0 {
				down[number[n]-1] = number[c]
			}
			if i+1 < len(n.children) {
				next[number[c]-1] = number[n.children[i+1]]
			}
		}
	}
	return total, next, down
}

// grow recursively splits the leaf budget. Intermediate nodes always get at
// least two children, matching the no-lonely-node construction rule.
func grow(r *rand.Rand, leaves, depth, branch int) *genNode {
	n := &genNode{}
	if leaves == 1 {
		return n
	}
	if depth < 2 {
		for i := 0; i < leaves; i++ {
			n.children = append(n.children, &genNode{})
		}
		return n
	}
	kids := 2 + r.Intn(min(branch, leaves)-1)
	budgets := splitBudget(r, leaves, kids)
	for _, b := range budgets {
		if b > 1 && r.Float64() < 0.5 {
			n.children = append(n.children, grow(r, b, depth-1, branch))
		} else {
			// a flat run of b leaves in place of a deeper subtree
			flat := grow(r, b, 1, branch)
			n.children = append(n.children, flat)
		}
	}
	return n
}

// splitBudget deals leaves onto kids piles, each pile at least one
func splitBudget(r *rand.Rand, leaves, kids int) []int {
	out := make([]int, kids)
	for i := range out {
		out[i] = 1
	}
	for rest := leaves - kids; rest > 0; rest-- {
		out[r.Intn(kids)]++
	}
	return out
}

// populate fills both bases with statements bracketing a sampled truth
func (g *Generator) populate(f *decision.Frame, cfg GeneratorConfig) error {
	probs := g.rng.Stream("probabilities", 0)
	vals := g.rng.Stream("values", 0)
	hints := g.rng.Stream("midpoints", 0)

	for alt := 1; alt <= f.NumAlts(); alt++ {
		topo, err := f.Index().Alt(alt)
		if err != nil {
			return err
		}
		// conditional truth per node, each sibling level summing to one
		truth := make([]float64, topo.Total()+1)
		sampleLevels(probs, topo, 0, truth)
		value := make([]float64, topo.Total()+1)
		for pos := 1; pos <= topo.Total(); pos++ {
			if topo.IsReal(pos) {
				value[pos] = vals.Float64()
			}
		}

		for i := 0; i < cfg.PStatements; i++ {
			pos := 1 + probs.Intn(topo.Total())
			lo, hi := bracket(probs, truth[pos], cfg.Slack)
			if err := f.AddStatement(decision.P, decision.Statement{Alt: alt, Node: pos, Lo: lo, Hi: hi}); err != nil {
				return fmt.Errorf("generated P statement rejected: %w", err)
			}
		}
		for i := 0; i < cfg.VStatements; i++ {
			k := 1 + vals.Intn(topo.RealCount())
			pos, err := topo.RealPosition(k)
			if err != nil {
				return err
			}
			lo, hi := bracket(vals, value[pos], cfg.Slack)
			if err := f.AddStatement(decision.V, decision.Statement{Alt: alt, Node: pos, Lo: lo, Hi: hi}); err != nil {
				return fmt.Errorf("generated V statement rejected: %w", err)
			}
		}

		// hints pin the truth itself, so they stay inside every derived hull
		for pos := 1; pos <= topo.Total(); pos++ {
			if hints.Float64() >= cfg.MidpointShare {
				continue
			}
			if err := f.SetMidpoint(decision.P, alt, pos, truth[pos]); err != nil {
				return err
			}
			if topo.IsReal(pos) {
				if err := f.SetMidpoint(decision.V, alt, pos, value[pos]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// sampleLevels draws one point on each sibling level's simplex
func sampleLevels(r *rand.Rand, topo *tree.Topology, parent int, truth []float64) {
	children := topo.Children(parent)
	if len(children) == 0 {
		return
	}
	sum := 0.0
	for _, c := range children {
		truth[c] = 0.05 + r.Float64()
		sum += truth[c]
	}
	for _, c := range children {
		truth[c] /= sum
	}
	for _, c := range children {
		if !topo.IsReal(c) {
			sampleLevels(r, topo, c, truth)
		}
	}
}

// bracket returns an interval around t with independent random half-widths,
// clamped into the unit interval.
func bracket(r *rand.Rand, t, slack float64) (float64, float64) {
	lo := t - slack*r.Float64()
	hi := t + slack*r.Float64()
	if lo < 0 {
		lo = 0
	}
	if hi > 1 {
		hi = 1
	}
	return lo, hi
}
