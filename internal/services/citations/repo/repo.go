// Package repo provides postgres reads for the citations API
package repo

import (
	"context"
	"database/sql"

	"citewatch/internal/modkit/repokit"
	"citewatch/internal/services/citations/domain"
)

// Repo is the read surface the citations service needs
type Repo interface {
	Recent(ctx context.Context, limit int, since string) ([]domain.Citation, error)
	State(ctx context.Context) (domain.ScannerStatus, bool, error)
	LastRun(ctx context.Context) (domain.RunSummary, bool, error)
	Count(ctx context.Context) (int64, error)
}

type (
	// PG is a Postgres binder for Repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for Repo
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

// Recent lists the newest citations, optionally since an issue date
func (r *queries) Recent(ctx context.Context, limit int, since string) ([]domain.Citation, error) {
	const base = `
		SELECT source_key, issued_at, address, zone, plate, description, discovered_at
		FROM citations
	`
	var (
		rows repokit.Rows
		err  error
	)
	if since != "" {
		rows, err = r.q.Query(ctx, base+`
			WHERE issued_at >= $1::date
			ORDER BY discovered_at DESC, source_key DESC
			LIMIT $2
		`, since, limit)
	} else {
		rows, err = r.q.Query(ctx, base+`
			ORDER BY discovered_at DESC, source_key DESC
			LIMIT $1
		`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Citation
	for rows.Next() {
		var c domain.Citation
		var issued sql.NullTime
		if err := rows.Scan(
			&c.SourceKey, &issued, &c.Address, &c.Zone, &c.Plate, &c.Description, &c.DiscoveredAt,
		); err != nil {
			return nil, err
		}
		if issued.Valid {
			t := issued.Time.UTC()
			c.IssuedAt = &t
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// State reads the singleton scanner state
func (r *queries) State(ctx context.Context) (domain.ScannerStatus, bool, error) {
	rows, err := r.q.Query(ctx, `
		SELECT cursor, last_valid_key, gap_count, pass_count, last_seen_at, updated_at
		FROM scan_state
	`)
	if err != nil {
		return domain.ScannerStatus{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return domain.ScannerStatus{}, false, rows.Err()
	}

	var st domain.ScannerStatus
	var lastSeen, updated sql.NullTime
	if err := rows.Scan(
		&st.Cursor, &st.LastValidKey, &st.GapCount, &st.PassCount, &lastSeen, &updated,
	); err != nil {
		return domain.ScannerStatus{}, false, err
	}
	if lastSeen.Valid {
		t := lastSeen.Time.UTC()
		st.LastSeenAt = &t
	}
	if updated.Valid {
		t := updated.Time.UTC()
		st.UpdatedAt = &t
	}
	return st, true, rows.Err()
}

// LastRun reads the most recently started scan run
func (r *queries) LastRun(ctx context.Context) (domain.RunSummary, bool, error) {
	rows, err := r.q.Query(ctx, `
		SELECT status, COALESCE(outcome, ''), window_from, window_to,
		       COALESCE(hits, 0), COALESCE(emitted, 0), COALESCE(failures, 0),
		       started_at, finished_at
		FROM scan_runs
		ORDER BY started_at DESC
		LIMIT 1
	`)
	if err != nil {
		return domain.RunSummary{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return domain.RunSummary{}, false, rows.Err()
	}

	var run domain.RunSummary
	var finished sql.NullTime
	if err := rows.Scan(
		&run.Status, &run.Outcome, &run.WindowFrom, &run.WindowTo,
		&run.Hits, &run.Emitted, &run.Failures, &run.StartedAt, &finished,
	); err != nil {
		return domain.RunSummary{}, false, err
	}
	if finished.Valid {
		t := finished.Time.UTC()
		run.FinishedAt = &t
	}
	return run, true, rows.Err()
}

// Count returns the total number of citations discovered
func (r *queries) Count(ctx context.Context) (int64, error) {
	rows, err := r.q.Query(ctx, `SELECT count(*) FROM citations`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}
