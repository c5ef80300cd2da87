// Package guardrails holds cross cutting safety helpers for scan runs
package guardrails

import (
	"context"
	"time"
)

// Timeouts is an optional budget bundle for a single scan invocation.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Run is the overall wall clock budget for one invocation
	Run time.Duration

	// Probe caps the window probing step
	Probe time.Duration

	// DB caps the state and output persistence step
	DB time.Duration
}

// WithRun returns a context limited by the run budget without extending any parent deadline
func WithRun(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Run)
}

// ForProbe returns a sub context for the probe phase bounded by Probe and any remaining parent budget
func ForProbe(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Probe)
}

// ForDB returns a sub context for the persistence phase bounded by DB and any remaining parent budget
func ForDB(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.DB)
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of the requested duration and any parent remainder.
// Never extends the parent deadline
// When d is zero it returns a simple cancelable child inheriting the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}

	// respect any parent deadline by taking the minimum
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
