// Package filestore persists problem records as one JSON file per problem,
// for single-machine deployments without a database.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"godecide/domain/core"
	"godecide/domain/decision"
	"godecide/ports"
)

// Store implements ports.ProblemStore on a directory of JSON files
type Store struct {
	dir string
	mu  sync.Mutex
}

var _ ports.ProblemStore = (*Store)(nil)

// New creates the storage directory if needed and returns a store over it
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id core.ProblemID) string {
	return filepath.Join(s.dir, id.String()+".json")
}

// Save writes the record to a temp file and renames it into place, so a
// crash mid-write never leaves a truncated problem behind.
func (s *Store) Save(ctx context.Context, rec *decision.ProblemRecord) error {
	if rec == nil || rec.ID == "" {
		return core.NewInputError("problem record", "missing ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := core.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode problem %s: %w", rec.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".problem-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write problem %s: %w", rec.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(rec.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store problem %s: %w", rec.ID, err)
	}
	return nil
}

// Load reads one problem record by ID
func (s *Store) Load(ctx context.Context, id core.ProblemID) (*decision.ProblemRecord, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrNoFile, id)
		}
		return nil, fmt.Errorf("failed to read problem %s: %w", id, err)
	}
	var rec decision.ProblemRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode problem %s: %w", id, err)
	}
	return &rec, nil
}

// List summarizes every stored problem, most recently updated first.
// Unreadable files are skipped rather than failing the whole listing.
func (s *Store) List(ctx context.Context) ([]ports.ProblemInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage directory: %w", err)
	}
	infos := make([]ports.ProblemInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var rec decision.ProblemRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		infos = append(infos, ports.ProblemInfo{
			ID:           rec.ID,
			Name:         rec.Name,
			Alternatives: altCount(rec.Shape),
			Fingerprint:  rec.Fingerprint,
			UpdatedAt:    rec.UpdatedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[j].UpdatedAt.Before(infos[i].UpdatedAt) })
	return infos, nil
}

// Delete removes one stored problem
func (s *Store) Delete(ctx context.Context, id core.ProblemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", core.ErrNoFile, id)
		}
		return fmt.Errorf("failed to delete problem %s: %w", id, err)
	}
	return nil
}

// Close is a no-op; the store holds no open handles between calls
func (s *Store) Close() error { return nil }

func altCount(shape decision.ProblemShape) int {
	if shape.Kind == decision.FlatShape {
		return len(shape.Leaves)
	}
	return len(shape.Totals)
}
