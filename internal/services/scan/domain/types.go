// Package domain holds the core types and ports for the scan service
package domain

import (
	"time"

	"github.com/google/uuid"

	"citewatch/internal/core/frontier"
)

// State re-exports the frontier controller position persisted between runs
type State = frontier.State

// Citation is one relevant record discovered at a source key
type Citation struct {
	SourceKey   int64
	IssuedAt    time.Time // zero when the source timestamp did not parse
	Address     string
	Zone        string
	Plate       string
	Description string
}

// WindowReport is what one fully or partially probed window produced
type WindowReport struct {
	// Result carries the hit and empty accounting the controller consumes
	Result frontier.WindowResult

	// Citations are the newly discovered relevant records, ordered by key
	Citations []Citation

	// NewSeen are keys that conclusively hold a record, relevant or foreign
	// empty keys are left out so later passes can catch late arrivals
	NewSeen []int64

	// Probed counts actual source fetches, Skipped counts seen keys not fetched
	Probed  int
	Skipped int

	// Failures counts probes that stayed unresolved after local retries
	Failures int

	// Aborted is set when the source blocked us repeatedly and the window
	// was left incomplete
	Aborted bool
}

// RunStatus labels a scan_runs ledger row
const (
	RunStatusOK      = "ok"
	RunStatusAborted = "aborted"
	RunStatusError   = "error"
)

// RunFinish closes out a scan_runs ledger row
type RunFinish struct {
	Status      string
	Outcome     string
	Probed      int
	Skipped     int
	Failures    int
	Hits        int
	Emitted     int
	Deduped     int
	Empties     int64
	CursorAfter int64
	ElapsedMS   int
	ErrText     string
}

// RunReport summarizes one invocation for callers and telemetry
type RunReport struct {
	RunID      uuid.UUID
	Outcome    frontier.Outcome
	State      State
	WindowFrom int64
	WindowTo   int64
	Emitted    int
	Deduped    int
	Probed     int
	Skipped    int
	Failures   int
	Elapsed    time.Duration
}
