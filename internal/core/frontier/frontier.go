// Package frontier implements the window controller for an append-mostly
// integer key space. It decides where the next probe window starts from
// what the previous window returned, without talking to any source or store
package frontier

import "time"

// Outcome labels the transition the controller took for one window
type Outcome string

const (
	// OutcomeAdvance means the window produced hits and the cursor moved past the highest one
	OutcomeAdvance Outcome = "advance"
	// OutcomeRescan means a silent window will be probed again on the next run
	OutcomeRescan Outcome = "rescan"
	// OutcomeSkipAhead means the window stayed silent through all passes and the cursor jumped forward
	OutcomeSkipAhead Outcome = "skip_ahead"
	// OutcomeRollback means too much silence accumulated and the cursor fell back to the last valid key
	OutcomeRollback Outcome = "rollback"
)

// State is the persisted controller position between runs
type State struct {
	// Cursor is the first key of the next probe window
	Cursor int64
	// LastValidKey is the highest key that ever yielded a relevant record
	LastValidKey int64
	// GapCount accumulates consecutive answered-but-empty probes since the last hit
	GapCount int64
	// PassCount counts completed silent passes over the current window
	PassCount int
	// LastSeenAt is the newest record timestamp observed so far
	LastSeenAt time.Time
}

// Config tunes window sizing and the silence heuristics
type Config struct {
	// Window is the number of keys probed per window
	Window int64
	// GapThreshold is how many consecutive empty probes trigger a rollback
	GapThreshold int64
	// MaxPasses is how many times a silent window is rescanned before skipping ahead
	MaxPasses int
	// AdvanceFactor is how many windows the cursor jumps on skip-ahead
	AdvanceFactor int64
	// SeenHorizon is how far behind the cursor dedup entries are retained
	SeenHorizon int64
}

// Defaults are the tuning values the scanner ships with
var Defaults = Config{
	Window:        1000,
	GapThreshold:  10000,
	MaxPasses:     3,
	AdvanceFactor: 3,
	SeenHorizon:   20000,
}

// WindowResult summarizes one fully probed window
// probes that failed transport or schema checks are excluded from Empties
// so flaky runs cannot masquerade as silence
type WindowResult struct {
	// Hits is the count of relevant records found in the window
	Hits int
	// MaxHitKey is the highest key among the hits, meaningful only when Hits > 0
	MaxHitKey int64
	// Empties is the count of probes answered conclusively with no relevant record
	Empties int64
	// NewestSeenAt is the newest record timestamp among the hits, zero when Hits == 0
	NewestSeenAt time.Time
}

// NewState seeds a fresh controller position at startKey
func NewState(startKey int64) State {
	return State{Cursor: startKey, LastValidKey: startKey}
}

// Window returns the inclusive key range the next probe should cover
func Window(s State, cfg Config) (from, to int64) {
	return s.Cursor, s.Cursor + cfg.Window - 1
}

// Next applies one window result and returns the successor state
// the input state is never mutated
func Next(s State, cfg Config, w WindowResult) (State, Outcome) {
	if w.Hits > 0 {
		if w.MaxHitKey > s.LastValidKey {
			s.LastValidKey = w.MaxHitKey
		}
		if w.NewestSeenAt.After(s.LastSeenAt) {
			s.LastSeenAt = w.NewestSeenAt
		}
		s.Cursor = w.MaxHitKey + 1
		s.GapCount = 0
		s.PassCount = 0
		return s, OutcomeAdvance
	}

	s.GapCount += w.Empties

	if s.GapCount >= cfg.GapThreshold {
		// the frontier ran away from the real data tail, fall back and converge again
		s.Cursor = s.LastValidKey
		s.GapCount = 0
		s.PassCount = 0
		return s, OutcomeRollback
	}

	if s.PassCount+1 >= cfg.MaxPasses {
		s.Cursor += cfg.AdvanceFactor * cfg.Window
		s.PassCount = 0
		return s, OutcomeSkipAhead
	}

	s.PassCount++
	return s, OutcomeRescan
}

// PruneBefore returns the key below which dedup entries may be discarded
// keys at or above the returned value must be kept
func PruneBefore(s State, cfg Config) int64 {
	p := s.Cursor - cfg.SeenHorizon
	if p < 0 {
		return 0
	}
	return p
}
