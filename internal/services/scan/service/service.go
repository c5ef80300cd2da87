// Package service runs one scan invocation end to end
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"citewatch/internal/core/frontier"
	"citewatch/internal/modkit/repokit"
	perr "citewatch/internal/platform/errors"
	"citewatch/internal/platform/logger"
	"citewatch/internal/platform/store"
	"citewatch/internal/services/scan/domain"
	"citewatch/internal/services/scan/guardrails"
)

// Config holds configuration options for the scan service
type Config struct {
	// StartKey seeds the cursor when no state exists yet
	StartKey int64

	// Controller tuning, see frontier.Config
	Window        int64
	GapThreshold  int64
	MaxPasses     int
	AdvanceFactor int64
	SeenHorizon   int64

	// FailAbortPct aborts the run without mutating state when probe failures
	// exceed this percentage of the fetched window
	FailAbortPct int

	// Sink retry for transient persistence trouble
	MaxRetries int
	RetryBase  time.Duration

	// Timeouts applied via guardrails
	Budget       time.Duration
	ProbeTimeout time.Duration
	DBTimeout    time.Duration
}

// Service implements domain.RunnerPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.StorageRepo]
	Prober domain.ProberPort

	// CH is optional run telemetry, nil disables it
	CH store.Clickhouse

	Cfg Config

	now func() time.Time
}

// New constructs the scan service
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.StorageRepo],
	prober domain.ProberPort,
	ch store.Clickhouse,
	cfg Config,
) *Service {
	if db == nil {
		panic("scan.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("scan.Service requires a non nil Repo binder")
	}
	if prober == nil {
		panic("scan.Service requires a non nil Prober")
	}
	return &Service{DB: db, Binder: binder, Prober: prober, CH: ch, Cfg: cfg, now: time.Now}
}

func (s *Service) frontierConfig() frontier.Config {
	cfg := frontier.Defaults
	if s.Cfg.Window > 0 {
		cfg.Window = s.Cfg.Window
	}
	if s.Cfg.GapThreshold > 0 {
		cfg.GapThreshold = s.Cfg.GapThreshold
	}
	if s.Cfg.MaxPasses > 0 {
		cfg.MaxPasses = s.Cfg.MaxPasses
	}
	if s.Cfg.AdvanceFactor > 0 {
		cfg.AdvanceFactor = s.Cfg.AdvanceFactor
	}
	if s.Cfg.SeenHorizon > 0 {
		cfg.SeenHorizon = s.Cfg.SeenHorizon
	}
	return cfg
}

// RunOnce implements domain.RunnerPort
//
// loaded state is only overwritten after a fully probed window, every other
// path leaves it untouched so the next run retries from durable ground
func (s *Service) RunOnce(ctx context.Context) (domain.RunReport, error) {
	budget := guardrails.Timeouts{Run: s.Cfg.Budget, Probe: s.Cfg.ProbeTimeout, DB: s.Cfg.DBTimeout}
	ctx, cancel := guardrails.WithRun(ctx, budget)
	defer cancel()

	runID := uuid.New()
	ctx = logger.WithRun(ctx, runID.String())
	log := logger.C(ctx)
	started := s.now()

	repo := s.Binder.Bind(s.DB)
	fcfg := s.frontierConfig()

	st, ok, err := repo.LoadState(ctx)
	if err != nil {
		return domain.RunReport{}, perr.Wrapf(err, perr.ErrorCodeDB, "scan load state failed")
	}
	if !ok {
		if s.Cfg.StartKey <= 0 {
			return domain.RunReport{}, perr.InvalidArgf("scan state unseeded and no start key configured")
		}
		st = frontier.NewState(s.Cfg.StartKey)
		log.Info().Int64("start_key", s.Cfg.StartKey).Msg("scan state seeded")
	}

	from, to := frontier.Window(st, fcfg)
	if err := repo.StartRun(ctx, runID, from, to); err != nil {
		return domain.RunReport{}, perr.Wrapf(err, perr.ErrorCodeDB, "scan start run failed")
	}

	log.Info().
		Int64("from", from).
		Int64("to", to).
		Int64("last_valid_key", st.LastValidKey).
		Int64("gap_count", st.GapCount).
		Int("pass", st.PassCount+1).
		Msg("scan window starting")

	seen, err := repo.SeenInRange(ctx, from, to)
	if err != nil {
		s.finishBestEffort(runID, domain.RunFinish{
			Status: domain.RunStatusError, ErrText: err.Error(), ElapsedMS: s.elapsedMS(started),
		})
		return domain.RunReport{}, perr.Wrapf(err, perr.ErrorCodeDB, "scan seen range failed")
	}

	pctx, pcancel := guardrails.ForProbe(ctx, budget)
	rep, perrr := s.Prober.Window(pctx, from, to, seen)
	pcancel()

	report := domain.RunReport{
		RunID:      runID,
		State:      st,
		WindowFrom: from,
		WindowTo:   to,
		Probed:     rep.Probed,
		Skipped:    rep.Skipped,
		Failures:   rep.Failures,
	}

	if perrr != nil {
		s.finishBestEffort(runID, s.finishFrom(rep, domain.RunStatusError, "", st.Cursor, perrr.Error(), started))
		return report, perr.Wrapf(perrr, perr.ErrorCodeUnavailable, "scan window incomplete")
	}

	if rep.Aborted {
		log.Warn().Msg("scan run aborted by source blocking, state untouched")
		s.finishBestEffort(runID, s.finishFrom(rep, domain.RunStatusAborted, "", st.Cursor, "forbidden streak", started))
		report.Elapsed = s.now().Sub(started)
		return report, nil
	}

	if s.tooManyFailures(rep) {
		log.Warn().
			Int("failures", rep.Failures).
			Int("probed", rep.Probed).
			Msg("scan run aborted by failure ratio, state untouched")
		s.finishBestEffort(runID, s.finishFrom(rep, domain.RunStatusAborted, "", st.Cursor, "failure ratio exceeded", started))
		report.Elapsed = s.now().Sub(started)
		return report, nil
	}

	next, outcome := frontier.Next(st, fcfg, rep.Result)

	var emitted, deduped int
	persist := func() error {
		dbctx, dcancel := guardrails.ForDB(ctx, budget)
		defer dcancel()
		return repokit.WithTx(dbctx, s.DB, func(q repokit.Queryer) error {
			r := s.Binder.Bind(q)
			var err error
			emitted, deduped, err = r.UpsertCitations(dbctx, rep.Citations)
			if err != nil {
				return err
			}
			if err := r.AddSeen(dbctx, rep.NewSeen); err != nil {
				return err
			}
			if _, err := r.PruneSeenBefore(dbctx, frontier.PruneBefore(next, fcfg)); err != nil {
				return err
			}
			if err := r.SaveState(dbctx, next); err != nil {
				return err
			}
			fin := s.finishFrom(rep, domain.RunStatusOK, string(outcome), next.Cursor, "", started)
			fin.Emitted = emitted
			fin.Deduped = deduped
			return r.FinishRun(dbctx, runID, fin)
		})
	}

	if err := s.withSinkRetry(ctx, persist); err != nil {
		s.finishBestEffort(runID, s.finishFrom(rep, domain.RunStatusError, "", st.Cursor, err.Error(), started))
		return report, perr.Wrapf(err, perr.ErrorCodeDB, "scan persist failed")
	}

	report.Outcome = outcome
	report.State = next
	report.Emitted = emitted
	report.Deduped = deduped
	report.Elapsed = s.now().Sub(started)

	s.emitTelemetry(ctx, report, rep)

	log.Info().
		Str("outcome", string(outcome)).
		Int64("cursor", next.Cursor).
		Int64("last_valid_key", next.LastValidKey).
		Int("hits", rep.Result.Hits).
		Int("emitted", emitted).
		Int("deduped", deduped).
		Int("failures", rep.Failures).
		Dur("elapsed", report.Elapsed).
		Msg("scan window finished")

	return report, nil
}

// tooManyFailures applies the abort threshold to the fetched part of the window
func (s *Service) tooManyFailures(rep domain.WindowReport) bool {
	pct := s.Cfg.FailAbortPct
	if pct <= 0 {
		pct = 20
	}
	if rep.Probed == 0 {
		return false
	}
	return rep.Failures*100 > pct*rep.Probed
}

// withSinkRetry retries transient persistence failures with exponential backoff
func (s *Service) withSinkRetry(ctx context.Context, fn func() error) error {
	attempts := max(s.Cfg.MaxRetries, 1)
	base := s.Cfg.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var last error
	for i := range attempts {
		if last = fn(); last == nil {
			return nil
		}
		if !perr.Retryable(last) || i == attempts-1 {
			return last
		}
		back := base << uint(i)
		logger.C(ctx).Warn().Err(last).Dur("retry_in", back).Msg("scan persist retrying")
		if err := sleepCtx(ctx, back); err != nil {
			return last
		}
	}
	return last
}

func (s *Service) finishFrom(
	rep domain.WindowReport, status, outcome string, cursorAfter int64, errText string, started time.Time,
) domain.RunFinish {
	return domain.RunFinish{
		Status:      status,
		Outcome:     outcome,
		Probed:      rep.Probed,
		Skipped:     rep.Skipped,
		Failures:    rep.Failures,
		Hits:        rep.Result.Hits,
		Empties:     rep.Result.Empties,
		CursorAfter: cursorAfter,
		ElapsedMS:   s.elapsedMS(started),
		ErrText:     errText,
	}
}

// finishBestEffort closes the run ledger outside the state transaction
// a fresh context keeps ledger writes possible after cancellation
func (s *Service) finishBestEffort(runID uuid.UUID, fin domain.RunFinish) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Binder.Bind(s.DB).FinishRun(ctx, runID, fin); err != nil {
		logger.Get().Warn().Err(err).Str("run_id", runID.String()).Msg("scan finish run failed")
	}
}

// emitTelemetry records one run row in clickhouse, losing it is acceptable
func (s *Service) emitTelemetry(ctx context.Context, report domain.RunReport, rep domain.WindowReport) {
	if s.CH == nil {
		return
	}
	cols := []string{
		"run_id", "at", "outcome", "window_from", "window_to",
		"probed", "skipped", "failures", "hits", "emitted", "deduped", "empties",
		"cursor_after", "elapsed_ms",
	}
	row := []any{
		report.RunID.String(), s.now().UTC(), string(report.Outcome), report.WindowFrom, report.WindowTo,
		int64(report.Probed), int64(report.Skipped), int64(report.Failures),
		int64(rep.Result.Hits), int64(report.Emitted), int64(report.Deduped), rep.Result.Empties,
		report.State.Cursor, report.Elapsed.Milliseconds(),
	}
	if err := s.CH.Insert(ctx, "scan_runs_telemetry", cols, [][]any{row}); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("scan telemetry insert failed")
	}
}

func (s *Service) elapsedMS(started time.Time) int {
	return int(s.now().Sub(started) / time.Millisecond)
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
