package ports

import (
	"context"

	"godecide/domain/core"
	"godecide/domain/decision"
)

// ProblemInfo summarizes a stored problem for listings
type ProblemInfo struct {
	ID           core.ProblemID   `json:"id"`
	Name         string           `json:"name"`
	Alternatives int              `json:"alternatives"`
	Fingerprint  core.Fingerprint `json:"fingerprint"`
	UpdatedAt    core.Timestamp   `json:"updated_at"`
}

// ProblemStore persists problem records across sessions. Save is an upsert
// keyed by the record ID; Load of an unknown ID reports core.ErrNotFound in
// its chain.
type ProblemStore interface {
	Save(ctx context.Context, rec *decision.ProblemRecord) error
	Load(ctx context.Context, id core.ProblemID) (*decision.ProblemRecord, error)
	List(ctx context.Context) ([]ProblemInfo, error)
	Delete(ctx context.Context, id core.ProblemID) error
	Close() error
}
