// Package postgres implements the problem store on PostgreSQL, for
// deployments that share saved problems between machines.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"godecide/domain/core"
	"godecide/domain/decision"
	"godecide/ports"
)

// ProblemStoreImpl implements ports.ProblemStore for PostgreSQL
type ProblemStoreImpl struct {
	db *sqlx.DB
}

var _ ports.ProblemStore = (*ProblemStoreImpl)(nil)

// NewProblemStore creates a new PostgreSQL problem store
func NewProblemStore(db *sqlx.DB) *ProblemStoreImpl {
	return &ProblemStoreImpl{db: db}
}

// problemRow mirrors the problems table
type problemRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Alternatives int       `db:"alternatives"`
	Fingerprint  string    `db:"fingerprint"`
	Payload      []byte    `db:"payload"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Save upserts a problem record keyed by its ID
func (s *ProblemStoreImpl) Save(ctx context.Context, rec *decision.ProblemRecord) error {
	if rec == nil || rec.ID == "" {
		return core.NewInputError("problem record", "missing ID")
	}
	now := core.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode problem %s: %w", rec.ID, err)
	}

	alts := len(rec.Shape.Leaves)
	if rec.Shape.Kind == decision.TreeShape {
		alts = len(rec.Shape.Totals)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO problems (id, name, alternatives, fingerprint, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
		    alternatives = EXCLUDED.alternatives,
		    fingerprint = EXCLUDED.fingerprint,
		    payload = EXCLUDED.payload,
		    updated_at = EXCLUDED.updated_at
	`, rec.ID.String(), rec.Name, alts, rec.Fingerprint.String(), payload,
		rec.CreatedAt.Time(), rec.UpdatedAt.Time())
	return err
}

// Load retrieves a problem record by ID
func (s *ProblemStoreImpl) Load(ctx context.Context, id core.ProblemID) (*decision.ProblemRecord, error) {
	var row problemRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, name, alternatives, fingerprint, payload, created_at, updated_at
		FROM problems
		WHERE id = $1
	`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError("problem", id.String())
	}
	if err != nil {
		return nil, err
	}

	var rec decision.ProblemRecord
	if err := json.Unmarshal(row.Payload, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode problem %s: %w", id, err)
	}
	return &rec, nil
}

// List summarizes every stored problem, most recently updated first
func (s *ProblemStoreImpl) List(ctx context.Context) ([]ports.ProblemInfo, error) {
	var rows []problemRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, name, alternatives, fingerprint, created_at, updated_at
		FROM problems
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}

	out := make([]ports.ProblemInfo, len(rows))
	for i, row := range rows {
		out[i] = ports.ProblemInfo{
			ID:           core.ProblemID(row.ID),
			Name:         row.Name,
			Alternatives: row.Alternatives,
			Fingerprint:  core.Fingerprint(row.Fingerprint),
			UpdatedAt:    core.NewTimestamp(row.UpdatedAt),
		}
	}
	return out, nil
}

// Delete removes a stored problem
func (s *ProblemStoreImpl) Delete(ctx context.Context, id core.ProblemID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM problems WHERE id = $1`, id.String())
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.NewNotFoundError("problem", id.String())
	}
	return nil
}

// Close releases the database handle
func (s *ProblemStoreImpl) Close() error {
	return s.db.Close()
}
