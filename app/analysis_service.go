// Package app wires the decision engine to its collaborators: a registry of
// live frames, the problem store, and the evaluation fan-out.
package app

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/semaphore"

	"godecide/domain/core"
	"godecide/domain/decision"
	"godecide/internal/evaluate"
	"godecide/internal/moments"
	"godecide/ports"
)

// Method names one of the five evaluation methods
type Method string

const (
	MethodOmega   Method = "omega"
	MethodPsi     Method = "psi"
	MethodDelta   Method = "delta"
	MethodGamma   Method = "gamma"
	MethodDigamma Method = "digamma"
)

// EvalRequest selects an evaluation. Other names the second alternative for
// delta; Selection is the digamma subset mask.
type EvalRequest struct {
	Method    Method `json:"method"`
	Alt       int    `json:"alt"`
	Other     int    `json:"other,omitempty"`
	Selection uint64 `json:"selection,omitempty"`
}

// FrameInfo summarizes a live frame for listings
type FrameInfo struct {
	ID           core.FrameID   `json:"id"`
	Name         string         `json:"name"`
	State        decision.State `json:"state"`
	Alternatives int            `json:"alternatives"`
	TotalNodes   int            `json:"total_nodes"`
}

// AltSummary is one alternative's standing in a full evaluation
type AltSummary struct {
	Alt    int            `json:"alt"`
	Psi    evaluate.Span  `json:"psi"`
	Gamma  evaluate.Span  `json:"gamma"`
	Moment moments.Result `json:"moments"`
}

// entry pairs a frame with its own lock. Mutations take the write side;
// queries share the read side, which is safe because derivation scratch is
// call-local.
type entry struct {
	mu    sync.RWMutex
	frame *decision.Frame
	name  string
}

// AnalysisService owns the live frames. The engine leaves same-frame
// serialization to its caller; this registry is that caller, so every frame
// operation goes through the entry lock.
type AnalysisService struct {
	store ports.ProblemStore
	sem   *semaphore.Weighted

	mu     sync.RWMutex
	frames map[core.FrameID]*entry
}

// NewAnalysisService creates a service over a problem store. Concurrency
// bounds the parallel per-alternative evaluation fan-out.
func NewAnalysisService(store ports.ProblemStore, concurrency int64) *AnalysisService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &AnalysisService{
		store:  store,
		sem:    semaphore.NewWeighted(concurrency),
		frames: make(map[core.FrameID]*entry),
	}
}

// ===== Registry =====

// CreateFlat registers a new flat frame and returns its ID
func (s *AnalysisService) CreateFlat(limits decision.Limits, cfg decision.Config, leaves []int, name string) (core.FrameID, error) {
	f, err := decision.NewFlatFrame(limits, cfg, leaves)
	if err != nil {
		return "", err
	}
	return s.register(f, name), nil
}

// CreateTree registers a new tree-shaped frame and returns its ID
func (s *AnalysisService) CreateTree(limits decision.Limits, cfg decision.Config, totals []int, next, down [][]int, name string) (core.FrameID, error) {
	f, err := decision.NewTreeFrame(limits, cfg, totals, next, down)
	if err != nil {
		return "", err
	}
	return s.register(f, name), nil
}

// Register adopts an externally constructed frame, such as a generated
// problem, and returns its ID.
func (s *AnalysisService) Register(f *decision.Frame, name string) core.FrameID {
	return s.register(f, name)
}

func (s *AnalysisService) register(f *decision.Frame, name string) core.FrameID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[f.ID()] = &entry{frame: f, name: name}
	log.Printf("[AnalysisService] registered frame %s (%q, %d alternatives)", f.ID(), name, f.NumAlts())
	return f.ID()
}

func (s *AnalysisService) entryFor(id core.FrameID) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.frames[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrFrameNotFound, id)
	}
	return e, nil
}

// List summarizes every live frame
func (s *AnalysisService) List() []FrameInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]FrameInfo, 0, len(s.frames))
	for _, e := range s.frames {
		e.mu.RLock()
		out = append(out, FrameInfo{
			ID:           e.frame.ID(),
			Name:         e.name,
			State:        e.frame.State(),
			Alternatives: e.frame.NumAlts(),
			TotalNodes:   e.frame.Index().TotalNodes(),
		})
		e.mu.RUnlock()
	}
	return out
}

// Info summarizes one frame
func (s *AnalysisService) Info(id core.FrameID) (FrameInfo, error) {
	e, err := s.entryFor(id)
	if err != nil {
		return FrameInfo{}, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return FrameInfo{
		ID:           e.frame.ID(),
		Name:         e.name,
		State:        e.frame.State(),
		Alternatives: e.frame.NumAlts(),
		TotalNodes:   e.frame.Index().TotalNodes(),
	}, nil
}

// Dispose releases a frame and drops it from the registry
func (s *AnalysisService) Dispose(id core.FrameID) error {
	e, err := s.entryFor(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	err = e.frame.Dispose()
	e.mu.Unlock()
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.frames, id)
	s.mu.Unlock()
	log.Printf("[AnalysisService] disposed frame %s", id)
	return nil
}

// ===== Lifecycle and mutation =====
// Mutate wraps every write under the frame's own lock.

// Mutate runs one mutation against a frame, serialized with every other
// operation on the same frame.
func (s *AnalysisService) Mutate(id core.FrameID, fn func(*decision.Frame) error) error {
	e, err := s.entryFor(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.frame)
}

// Inspect runs a read-only query against a frame, sharing the read lock with
// other queries.
func (s *AnalysisService) Inspect(id core.FrameID, fn func(*decision.Frame) error) error {
	e, err := s.entryFor(id)
	if err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(e.frame)
}

// Attach derives a frame's hulls and mass points
func (s *AnalysisService) Attach(id core.FrameID) error {
	return s.Mutate(id, func(f *decision.Frame) error { return f.Attach() })
}

// Detach drops a frame's derived state
func (s *AnalysisService) Detach(id core.FrameID) error {
	return s.Mutate(id, func(f *decision.Frame) error { return f.Detach() })
}

// ===== Evaluation =====

// Evaluate runs one evaluation method against an attached frame
func (s *AnalysisService) Evaluate(id core.FrameID, req EvalRequest) (evaluate.Span, error) {
	var span evaluate.Span
	err := s.Inspect(id, func(f *decision.Frame) error {
		var err error
		switch req.Method {
		case MethodOmega:
			var mid float64
			mid, err = evaluate.Omega(f, req.Alt)
			span = evaluate.Span{Min: mid, Mid: mid, Max: mid}
		case MethodPsi:
			span, err = evaluate.Psi(f, req.Alt)
		case MethodDelta:
			span, err = evaluate.Delta(f, req.Alt, req.Other)
		case MethodGamma:
			span, err = evaluate.Gamma(f, req.Alt)
		case MethodDigamma:
			span, err = evaluate.Digamma(f, req.Alt, req.Selection)
		default:
			err = core.NewInputError("method", fmt.Sprintf("unknown evaluation method %q", req.Method))
		}
		return err
	})
	return span, err
}

// EvaluateAll runs the interval, against-all, and moment summaries for every
// alternative, fanning out under the service's concurrency budget. Read-only
// evaluation with call-local scratch is safe to run in parallel.
func (s *AnalysisService) EvaluateAll(ctx context.Context, id core.FrameID) ([]AltSummary, error) {
	e, err := s.entryFor(id)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	f := e.frame
	n := f.NumAlts()
	out := make([]AltSummary, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for alt := 1; alt <= n; alt++ {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		wg.Add(1)
		go func(alt int) {
			defer wg.Done()
			defer s.sem.Release(1)
			sum := AltSummary{Alt: alt}
			var err error
			if sum.Psi, err = evaluate.Psi(f, alt); err == nil {
				if sum.Gamma, err = evaluate.Gamma(f, alt); err == nil {
					sum.Moment, err = moments.Compute(f, alt)
				}
			}
			out[alt-1], errs[alt-1] = sum, err
		}(alt)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ===== Persistence =====

// Save snapshots a frame into the problem store. A frame saved twice keeps
// its problem ID, so Save is an update after the first call.
func (s *AnalysisService) Save(ctx context.Context, id core.FrameID, problemID core.ProblemID, name string) (*decision.ProblemRecord, error) {
	e, err := s.entryFor(id)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	rec, err := e.frame.Snapshot()
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if problemID == "" {
		problemID = core.ProblemID(core.NewID())
	}
	rec.ID = problemID
	rec.Name = name
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	log.Printf("[AnalysisService] saved frame %s as problem %s (%q)", id, rec.ID, name)
	return rec, nil
}

// Load rebuilds a stored problem as a new detached frame
func (s *AnalysisService) Load(ctx context.Context, problemID core.ProblemID) (core.FrameID, error) {
	rec, err := s.store.Load(ctx, problemID)
	if err != nil {
		return "", err
	}
	f, err := decision.FromSnapshot(rec)
	if err != nil {
		return "", err
	}
	id := s.register(f, rec.Name)
	log.Printf("[AnalysisService] loaded problem %s into frame %s", problemID, id)
	return id, nil
}

// Problems lists the stored problems
func (s *AnalysisService) Problems(ctx context.Context) ([]ports.ProblemInfo, error) {
	return s.store.List(ctx)
}

// DeleteProblem removes a stored problem
func (s *AnalysisService) DeleteProblem(ctx context.Context, problemID core.ProblemID) error {
	return s.store.Delete(ctx, problemID)
}
