package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"godecide/app"
	"godecide/domain/core"
	"godecide/domain/decision"
	"godecide/internal/moments"
	"godecide/internal/report"
	"godecide/internal/testkit"
)

// ===== Frame lifecycle =====

type createFrameRequest struct {
	Name   string             `json:"name"`
	Kind   decision.ShapeKind `json:"kind"`
	Leaves []int              `json:"leaves,omitempty"`
	Totals []int              `json:"totals,omitempty"`
	Next   [][]int            `json:"next,omitempty"`
	Down   [][]int            `json:"down,omitempty"`
	Attach bool               `json:"attach"`
}

func (s *Server) createFrame(c *gin.Context) {
	var req createFrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var (
		id  core.FrameID
		err error
	)
	switch req.Kind {
	case decision.FlatShape, "":
		id, err = s.svc.CreateFlat(s.limits, s.engine, req.Leaves, req.Name)
	case decision.TreeShape:
		id, err = s.svc.CreateTree(s.limits, s.engine, req.Totals, req.Next, req.Down, req.Name)
	default:
		err = core.NewInputError("kind", fmt.Sprintf("unknown shape kind %q", req.Kind))
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if req.Attach {
		if err := s.svc.Attach(id); err != nil {
			respondError(c, err)
			return
		}
	}
	info, err := s.svc.Info(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

type randomFrameRequest struct {
	Name   string                   `json:"name"`
	Seed   int64                    `json:"seed"`
	Config *testkit.GeneratorConfig `json:"config,omitempty"`
	Attach bool                     `json:"attach"`
}

func (s *Server) randomFrame(c *gin.Context) {
	var req randomFrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cfg := testkit.DefaultGeneratorConfig()
	if req.Config != nil {
		cfg = *req.Config
	}
	f, err := s.generator(req.Seed).Problem(cfg)
	if err != nil {
		respondError(c, err)
		return
	}
	name := req.Name
	if name == "" {
		name = fmt.Sprintf("random problem (seed %d)", req.Seed)
	}
	id := s.svc.Register(f, name)
	if req.Attach {
		if err := s.svc.Attach(id); err != nil {
			respondError(c, err)
			return
		}
	}
	info, err := s.svc.Info(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) listFrames(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"frames": s.svc.List()})
}

func (s *Server) getFrame(c *gin.Context) {
	info, err := s.svc.Info(frameID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) disposeFrame(c *gin.Context) {
	if err := s.svc.Dispose(frameID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) attachFrame(c *gin.Context) {
	if err := s.svc.Attach(frameID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": decision.Attached})
}

func (s *Server) detachFrame(c *gin.Context) {
	if err := s.svc.Detach(frameID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": decision.Detached})
}

// ===== Base mutation =====

type statementRequest struct {
	Layer decision.Layer `json:"layer"`
	Alt   int            `json:"alt"`
	Node  int            `json:"node"`
	Lo    float64        `json:"lo"`
	Hi    float64        `json:"hi"`
}

func (r statementRequest) statement() decision.Statement {
	return decision.Statement{Alt: r.Alt, Node: r.Node, Lo: r.Lo, Hi: r.Hi}
}

func (s *Server) addStatement(c *gin.Context) {
	var req statementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.svc.Mutate(frameID(c), func(f *decision.Frame) error {
		return f.AddStatement(req.Layer, req.statement())
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func (s *Server) replaceStatement(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "statement number must be an integer"})
		return
	}
	var req statementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err = s.svc.Mutate(frameID(c), func(f *decision.Frame) error {
		return f.ReplaceStatement(req.Layer, n, req.statement())
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteStatement(c *gin.Context) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "statement number must be an integer"})
		return
	}
	layer := queryLayer(c)
	err = s.svc.Mutate(frameID(c), func(f *decision.Frame) error {
		return f.DeleteStatement(layer, n)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listStatements(c *gin.Context) {
	layer := queryLayer(c)
	var stmts []decision.Statement
	err := s.svc.Inspect(frameID(c), func(f *decision.Frame) error {
		var err error
		stmts, err = f.Statements(layer)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"layer": layer, "statements": stmts})
}

type midpointRequest struct {
	Layer decision.Layer `json:"layer"`
	Alt   int            `json:"alt"`
	Node  int            `json:"node"`
	Value float64        `json:"value"`
}

func (s *Server) setMidpoint(c *gin.Context) {
	var req midpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.svc.Mutate(frameID(c), func(f *decision.Frame) error {
		return f.SetMidpoint(req.Layer, req.Alt, req.Node, req.Value)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) clearMidpoint(c *gin.Context) {
	var req midpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.svc.Mutate(frameID(c), func(f *decision.Frame) error {
		return f.ClearMidpoint(req.Layer, req.Alt, req.Node)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type boxRequest struct {
	Layer     decision.Layer      `json:"layer"`
	Intervals []decision.Interval `json:"intervals"`
}

func (s *Server) setBox(c *gin.Context) {
	var req boxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.svc.Mutate(frameID(c), func(f *decision.Frame) error {
		return f.SetBox(req.Layer, req.Intervals)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) unsetBox(c *gin.Context) {
	layer := queryLayer(c)
	err := s.svc.Mutate(frameID(c), func(f *decision.Frame) error {
		return f.UnsetBox(layer)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type midpointBoxRequest struct {
	Layer  decision.Layer `json:"layer"`
	Values []float64      `json:"values"`
}

func (s *Server) setMidpointBox(c *gin.Context) {
	var req midpointBoxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := s.svc.Mutate(frameID(c), func(f *decision.Frame) error {
		return f.SetMidpointBox(req.Layer, req.Values)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ===== Derived-state queries =====

// nodeRow is the API view of one node's derived state
type nodeRow struct {
	Alt        int                `json:"alt"`
	Node       int                `json:"node"`
	Kind       string             `json:"kind"`
	Box        decision.Interval  `json:"box"`
	HullLocal  decision.Interval  `json:"hull_local"`
	HullGlobal decision.Interval  `json:"hull_global"`
	MassLocal  float64            `json:"mass_local"`
	MassGlobal float64            `json:"mass_global"`
	Value      *decision.Interval `json:"value,omitempty"`
	Focal      *float64           `json:"focal,omitempty"`
}

func (s *Server) listNodes(c *gin.Context) {
	var rows []nodeRow
	err := s.svc.Inspect(frameID(c), func(f *decision.Frame) error {
		box, err := f.Box(decision.P)
		if err != nil {
			return err
		}
		for alt := 1; alt <= f.NumAlts(); alt++ {
			topo, err := f.Index().Alt(alt)
			if err != nil {
				return err
			}
			for pos := 1; pos <= topo.Total(); pos++ {
				hullL, hullG, err := f.Hull(alt, pos)
				if err != nil {
					return err
				}
				massL, massG, err := f.MassPoint(alt, pos)
				if err != nil {
					return err
				}
				seq, err := f.Index().Seq(alt, pos)
				if err != nil {
					return err
				}
				row := nodeRow{
					Alt: alt, Node: pos, Kind: string(topo.Kind(pos)),
					Box: box[seq-1], HullLocal: hullL, HullGlobal: hullG,
					MassLocal: massL, MassGlobal: massG,
				}
				if topo.IsReal(pos) {
					vb, err := f.ValueBounds(alt, pos)
					if err != nil {
						return err
					}
					focal, err := f.ValueMassPoint(alt, pos)
					if err != nil {
						return err
					}
					row.Value, row.Focal = &vb, &focal
				}
				rows = append(rows, row)
			}
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nodes": rows})
}

// ===== Evaluation and moments =====

func (s *Server) evaluateFrame(c *gin.Context) {
	var req app.EvalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span, err := s.svc.Evaluate(frameID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"method": req.Method, "alt": req.Alt, "span": span})
}

func (s *Server) evaluateAll(c *gin.Context) {
	sums, err := s.svc.EvaluateAll(c.Request.Context(), frameID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alternatives": sums})
}

func (s *Server) getMoments(c *gin.Context) {
	var out []moments.Result
	err := s.svc.Inspect(frameID(c), func(f *decision.Frame) error {
		var err error
		out, err = moments.ComputeAll(f)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"moments": out})
}

func (s *Server) getSecurity(c *gin.Context) {
	threshold, err := queryFloat(c, "threshold", 0.25)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	risk, err := queryFloat(c, "risk", 0.5)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	type altSecurity struct {
		Alt      int                   `json:"alt"`
		Security moments.Security      `json:"security"`
		Level    moments.SecurityLevel `json:"level"`
	}
	var out []altSecurity
	err = s.svc.Inspect(frameID(c), func(f *decision.Frame) error {
		for alt := 1; alt <= f.NumAlts(); alt++ {
			sec, err := moments.SecurityLevels(f, alt, threshold)
			if err != nil {
				return err
			}
			out = append(out, altSecurity{Alt: alt, Security: sec, Level: sec.Classify(risk)})
		}
		return nil
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threshold": threshold, "risk": risk, "alternatives": out})
}

func (s *Server) getReport(c *gin.Context) {
	opts := report.DefaultOptions()
	opts.Title = c.DefaultQuery("title", opts.Title)
	var err error
	if opts.Threshold, err = queryFloat(c, "threshold", opts.Threshold); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if opts.Risk, err = queryFloat(c, "risk", opts.Risk); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var md string
	err = s.svc.Inspect(frameID(c), func(f *decision.Frame) error {
		var err error
		md, err = report.Build(f, opts)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.HTML(md))
}

func (s *Server) exportFrame(c *gin.Context) {
	id := frameID(c)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.xlsx", id))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	err := s.svc.Inspect(id, func(f *decision.Frame) error {
		return s.exporter.Write(f, c.Writer)
	})
	if err != nil {
		respondError(c, err)
	}
}

// ===== Persistence =====

type saveRequest struct {
	Name      string `json:"name"`
	ProblemID string `json:"problem_id"`
}

func (s *Server) saveFrame(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := s.svc.Save(c.Request.Context(), frameID(c), core.ProblemID(req.ProblemID), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"problem_id": rec.ID, "fingerprint": rec.Fingerprint})
}

func (s *Server) listProblems(c *gin.Context) {
	problems, err := s.svc.Problems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"problems": problems})
}

func (s *Server) loadProblem(c *gin.Context) {
	id, err := s.svc.Load(c.Request.Context(), core.ProblemID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	info, err := s.svc.Info(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, info)
}

func (s *Server) deleteProblem(c *gin.Context) {
	if err := s.svc.DeleteProblem(c.Request.Context(), core.ProblemID(c.Param("id"))); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ===== Helpers =====

func frameID(c *gin.Context) core.FrameID {
	return core.FrameID(c.Param("id"))
}

// queryLayer reads the layer query parameter, defaulting to P
func queryLayer(c *gin.Context) decision.Layer {
	return decision.Layer(c.DefaultQuery("layer", string(decision.P)))
}

func queryFloat(c *gin.Context, key string, def float64) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("query parameter %s must be a number: %w", key, err)
	}
	return v, nil
}
