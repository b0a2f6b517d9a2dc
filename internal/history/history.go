// Package history implements the HistoryStore SUPPLEMENT feature (spec
// §6.1: "quicpulse history [--workflow NAME] [--limit N]"), a run-record
// log backed by SQLite or Postgres. Grounded directly on the teacher's
// internal/store/sqlite3 and internal/store/postgres packages: same
// goqu.Database query builder, same muz-driven embedded-SQL migration
// bootstrap, same "open db, run migrations, wrap in a small struct with a
// goqu handle and table identifiers" constructor shape — repurposed from
// storing LLM provider configs/API tokens to storing workflow run records.
package history

import (
	"context"
	"time"
)

// Record is one completed step or workflow run, persisted for `quicpulse
// history` to list later.
type Record struct {
	ID           string // ULID, lexicographically sortable by creation time
	WorkflowName string
	StepName     string
	Method       string
	URL          string
	StatusCode   int
	Success      bool
	ErrorMessage string
	StartedAt    time.Time
	DurationMs   int64
}

// Filter narrows a List call.
type Filter struct {
	WorkflowName string
	Limit        int
}

// Store persists and lists Records.
type Store interface {
	Record(ctx context.Context, r Record) error
	List(ctx context.Context, f Filter) ([]Record, error)
	Close() error
}
