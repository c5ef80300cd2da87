// Package prober walks key windows against the remote source and classifies answers
package prober

import (
	"context"
	"errors"
	"time"

	"citewatch/internal/adapters/source/rmcpay"
	"citewatch/internal/core/relevance"
	perr "citewatch/internal/platform/errors"
	"citewatch/internal/platform/logger"
	"citewatch/internal/services/scan/domain"
)

// Source is the remote lookup seam, satisfied by the rmcpay client
type Source interface {
	Lookup(ctx context.Context, key int64) (rmcpay.Result, error)
}

// Config tunes pacing and the block detector
type Config struct {
	// Delay is the minimum inter-request delay, applied uniformly after every fetch
	Delay time.Duration

	// ForbiddenLimit stops the window early after this many consecutive 403s
	ForbiddenLimit int
}

// Prober implements domain.ProberPort over a Source
type Prober struct {
	src    Source
	filter *relevance.Filter
	cfg    Config
	sleep  func(ctx context.Context, d time.Duration) error
}

// New constructs a Prober
func New(src Source, filter *relevance.Filter, cfg Config) *Prober {
	if src == nil {
		panic("prober requires a non nil Source")
	}
	if filter == nil {
		panic("prober requires a non nil relevance filter")
	}
	if cfg.ForbiddenLimit <= 0 {
		cfg.ForbiddenLimit = 5
	}
	return &Prober{src: src, filter: filter, cfg: cfg, sleep: sleepCtx}
}

// Window probes [from, to] once, skipping keys already in seen
//
// fetch outcomes land in the report, never in the error: failures stay out of
// the empty accounting so an outage cannot look like a key gap. The only error
// returned is context cancellation, which leaves the window unusable
func (p *Prober) Window(ctx context.Context, from, to int64, seen map[int64]bool) (domain.WindowReport, error) {
	var rep domain.WindowReport
	log := logger.C(ctx)

	forbiddenStreak := 0
	for key := from; key <= to; key++ {
		if seen[key] {
			rep.Skipped++
			continue
		}

		res, err := p.src.Lookup(ctx, key)
		switch {
		case err == nil:
			forbiddenStreak = 0
			p.classify(&rep, res)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return rep, err
		case perr.IsCode(err, perr.ErrorCodeForbidden):
			rep.Failures++
			forbiddenStreak++
			if forbiddenStreak >= p.cfg.ForbiddenLimit {
				log.Warn().Int64("key", key).Int("streak", forbiddenStreak).
					Msg("scan prober blocked repeatedly, ending window early")
				rep.Aborted = true
				return rep, nil
			}
		default:
			// transient, rate limited past budget, or schema trouble
			forbiddenStreak = 0
			rep.Failures++
			log.Debug().Int64("key", key).Err(err).Msg("scan probe failed")
		}

		rep.Probed++
		if p.cfg.Delay > 0 {
			if err := p.sleep(ctx, p.cfg.Delay); err != nil {
				return rep, err
			}
		}
	}
	return rep, nil
}

// classify folds one conclusive lookup into the report
func (p *Prober) classify(rep *domain.WindowReport, res rmcpay.Result) {
	if !res.Found {
		rep.Result.Empties++
		return
	}

	// a record exists at this key, relevant or not it never needs refetching
	rep.NewSeen = append(rep.NewSeen, res.Key)

	rec := relevance.Record{
		LocationLabel:  res.Record.Userdef1Label,
		StreetNumLabel: res.Record.Userdef8Label,
		StreetName:     res.Record.Userdef1,
		StreetNumber:   res.Record.Userdef8,
		Description:    res.Record.Description,
	}
	if !p.filter.Relevant(rec) {
		// foreign tenant or fee only record, counts toward the gap
		rep.Result.Empties++
		return
	}

	issued := res.Record.IssuedAt()
	rep.Result.Hits++
	if res.Key > rep.Result.MaxHitKey {
		rep.Result.MaxHitKey = res.Key
	}
	if issued.After(rep.Result.NewestSeenAt) {
		rep.Result.NewestSeenAt = issued
	}
	rep.Citations = append(rep.Citations, domain.Citation{
		SourceKey:   res.Key,
		IssuedAt:    issued,
		Address:     p.filter.Address(rec),
		Zone:        res.Record.ZoneNumber,
		Plate:       res.Record.LPN,
		Description: res.Record.Description,
	})
}

// sleepCtx sleeps for d unless ctx ends first
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
