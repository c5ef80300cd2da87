package frontier

import (
	"testing"
	"time"
)

// probe simulates a fully answered window over a fixed set of relevant keys
func probe(s State, cfg Config, keys map[int64]time.Time) WindowResult {
	from, to := Window(s, cfg)
	var w WindowResult
	for k := from; k <= to; k++ {
		if at, ok := keys[k]; ok {
			w.Hits++
			if k > w.MaxHitKey {
				w.MaxHitKey = k
			}
			if at.After(w.NewestSeenAt) {
				w.NewestSeenAt = at
			}
		} else {
			w.Empties++
		}
	}
	return w
}

func TestWindowRange(t *testing.T) {
	t.Parallel()

	s := NewState(5000)
	from, to := Window(s, Defaults)
	if from != 5000 || to != 5999 {
		t.Fatalf("Window = [%d, %d], want [5000, 5999]", from, to)
	}
}

func TestAdvanceOnHit(t *testing.T) {
	t.Parallel()

	cfg := Defaults
	s := NewState(5000)
	seen := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	next, out := Next(s, cfg, WindowResult{
		Hits:         1,
		MaxHitKey:    5200,
		Empties:      999,
		NewestSeenAt: seen,
	})
	if out != OutcomeAdvance {
		t.Fatalf("outcome = %s, want %s", out, OutcomeAdvance)
	}
	if next.LastValidKey != 5200 {
		t.Fatalf("LastValidKey = %d, want 5200", next.LastValidKey)
	}
	if next.Cursor != 5201 {
		t.Fatalf("Cursor = %d, want 5201", next.Cursor)
	}
	if next.GapCount != 0 || next.PassCount != 0 {
		t.Fatalf("counters not reset: gap=%d pass=%d", next.GapCount, next.PassCount)
	}
	if !next.LastSeenAt.Equal(seen) {
		t.Fatalf("LastSeenAt = %v, want %v", next.LastSeenAt, seen)
	}
}

func TestSilentWindowRescansThenSkips(t *testing.T) {
	t.Parallel()

	cfg := Defaults
	s := State{Cursor: 5201, LastValidKey: 5200}
	silent := WindowResult{Empties: cfg.Window}

	s, out := Next(s, cfg, silent)
	if out != OutcomeRescan || s.Cursor != 5201 || s.PassCount != 1 {
		t.Fatalf("pass 1: out=%s cursor=%d pass=%d", out, s.Cursor, s.PassCount)
	}
	s, out = Next(s, cfg, silent)
	if out != OutcomeRescan || s.Cursor != 5201 || s.PassCount != 2 {
		t.Fatalf("pass 2: out=%s cursor=%d pass=%d", out, s.Cursor, s.PassCount)
	}
	s, out = Next(s, cfg, silent)
	if out != OutcomeSkipAhead {
		t.Fatalf("pass 3: out=%s, want %s", out, OutcomeSkipAhead)
	}
	if s.Cursor != 5201+cfg.AdvanceFactor*cfg.Window {
		t.Fatalf("Cursor after skip = %d, want %d", s.Cursor, 5201+cfg.AdvanceFactor*cfg.Window)
	}
	if s.PassCount != 0 {
		t.Fatalf("PassCount after skip = %d, want 0", s.PassCount)
	}
	// gap keeps accumulating across rescans and skips until a hit or a rollback
	if s.GapCount != 3*cfg.Window {
		t.Fatalf("GapCount = %d, want %d", s.GapCount, 3*cfg.Window)
	}
}

func TestRollbackAfterGapThreshold(t *testing.T) {
	t.Parallel()

	cfg := Defaults
	s := State{Cursor: 5201, LastValidKey: 5200}
	silent := WindowResult{Empties: cfg.Window}

	var out Outcome
	var steps int
	for steps = 0; steps < 100; steps++ {
		s, out = Next(s, cfg, silent)
		if out == OutcomeRollback {
			break
		}
	}
	if out != OutcomeRollback {
		t.Fatalf("never rolled back after %d silent windows", steps)
	}
	// gap threshold 10000 at 1000 empties per window means the 10th window rolls back
	if steps != 9 {
		t.Fatalf("rolled back on window %d, want 10", steps+1)
	}
	if s.Cursor != 5200 {
		t.Fatalf("Cursor after rollback = %d, want LastValidKey 5200", s.Cursor)
	}
	if s.GapCount != 0 || s.PassCount != 0 {
		t.Fatalf("counters not reset on rollback: gap=%d pass=%d", s.GapCount, s.PassCount)
	}
}

func TestFailedProbesDoNotFeedTheGap(t *testing.T) {
	t.Parallel()

	cfg := Defaults
	s := State{Cursor: 100, LastValidKey: 99, GapCount: cfg.GapThreshold - 1}

	// a window where every probe failed reports zero empties and must not roll back
	next, out := Next(s, cfg, WindowResult{})
	if out == OutcomeRollback {
		t.Fatalf("rollback triggered by a window with no conclusive answers")
	}
	if next.GapCount != cfg.GapThreshold-1 {
		t.Fatalf("GapCount = %d, want unchanged %d", next.GapCount, cfg.GapThreshold-1)
	}
}

func TestLastValidKeyNeverRegresses(t *testing.T) {
	t.Parallel()

	cfg := Defaults
	s := State{Cursor: 5200, LastValidKey: 9000}

	// rollback re-probes old ground, hits there must not pull the high-water mark down
	next, _ := Next(s, cfg, WindowResult{Hits: 1, MaxHitKey: 5300, Empties: cfg.Window - 1})
	if next.LastValidKey != 9000 {
		t.Fatalf("LastValidKey = %d, want 9000", next.LastValidKey)
	}
	if next.Cursor != 5301 {
		t.Fatalf("Cursor = %d, want 5301", next.Cursor)
	}
}

func TestConvergesOnSparseTail(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Window:        100,
		GapThreshold:  2000,
		MaxPasses:     2,
		AdvanceFactor: 3,
		SeenHorizon:   2000,
	}

	// sparse relevant keys, with a long dead stretch before the last one
	at := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	keys := map[int64]time.Time{
		120:  at,
		180:  at.Add(time.Minute),
		500:  at.Add(2 * time.Minute),
		2050: at.Add(3 * time.Minute),
	}

	s := NewState(100)
	found := map[int64]bool{}
	for step := 0; step < 200; step++ {
		from, to := Window(s, cfg)
		for k := from; k <= to; k++ {
			if _, ok := keys[k]; ok {
				found[k] = true
			}
		}
		s, _ = Next(s, cfg, probe(s, cfg, keys))
	}

	for k := range keys {
		if !found[k] {
			t.Fatalf("key %d never probed", k)
		}
	}
	if s.LastValidKey != 2050 {
		t.Fatalf("LastValidKey = %d, want 2050", s.LastValidKey)
	}
	if !s.LastSeenAt.Equal(at.Add(3 * time.Minute)) {
		t.Fatalf("LastSeenAt = %v", s.LastSeenAt)
	}
}

func TestDenseTrafficNeverRollsBack(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Window:        50,
		GapThreshold:  200,
		MaxPasses:     2,
		AdvanceFactor: 2,
		SeenHorizon:   500,
	}

	at := time.Now().UTC()
	keys := map[int64]time.Time{}
	for k := int64(0); k < 20000; k += 10 {
		keys[k] = at
	}

	s := NewState(0)
	for step := 0; step < 300; step++ {
		var out Outcome
		s, out = Next(s, cfg, probe(s, cfg, keys))
		if out == OutcomeRollback {
			t.Fatalf("rollback at step %d with a hit in every window", step)
		}
	}
}

func TestPruneBefore(t *testing.T) {
	t.Parallel()

	cfg := Defaults
	if got := PruneBefore(State{Cursor: 50000}, cfg); got != 30000 {
		t.Fatalf("PruneBefore = %d, want 30000", got)
	}
	if got := PruneBefore(State{Cursor: 100}, cfg); got != 0 {
		t.Fatalf("PruneBefore near origin = %d, want 0", got)
	}
}
