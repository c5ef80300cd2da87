package domain

import (
	"context"

	"github.com/google/uuid"
)

// RunnerPort is the public port exposed by the scan module
type RunnerPort interface {
	RunOnce(ctx context.Context) (RunReport, error)
}

// StorageRepo is the storage repository interface
type StorageRepo interface {
	// LoadState reads the singleton controller state, ok=false when unseeded
	LoadState(ctx context.Context) (State, bool, error)

	// SaveState overwrites the singleton controller state
	SaveState(ctx context.Context, s State) error

	// SeenInRange returns the dedup keys within [from, to]
	SeenInRange(ctx context.Context, from, to int64) (map[int64]bool, error)

	// AddSeen records keys that conclusively hold a record
	AddSeen(ctx context.Context, keys []int64) error

	// PruneSeenBefore forgets dedup keys below the horizon, returns rows removed
	PruneSeenBefore(ctx context.Context, key int64) (int64, error)

	// UpsertCitations writes discovered records idempotently by source key
	UpsertCitations(ctx context.Context, cs []Citation) (emitted, deduped int, err error)

	// StartRun opens a scan_runs ledger row
	StartRun(ctx context.Context, id uuid.UUID, from, to int64) error

	// FinishRun closes a scan_runs ledger row
	FinishRun(ctx context.Context, id uuid.UUID, fin RunFinish) error
}

// ProberPort walks one key window against the remote source
type ProberPort interface {
	Window(ctx context.Context, from, to int64, seen map[int64]bool) (WindowReport, error)
}
