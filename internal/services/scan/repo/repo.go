// Package repo provides postgres access for scan state, dedup keys, and output
package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"citewatch/internal/modkit/repokit"
	"citewatch/internal/services/scan/domain"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

// LoadState reads the singleton controller state
func (r *queries) LoadState(ctx context.Context) (domain.State, bool, error) {
	rows, err := r.q.Query(ctx, `
		SELECT cursor, last_valid_key, gap_count, pass_count, last_seen_at
		FROM scan_state
	`)
	if err != nil {
		return domain.State{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return domain.State{}, false, rows.Err()
	}

	var s domain.State
	var lastSeen sql.NullTime
	if err := rows.Scan(&s.Cursor, &s.LastValidKey, &s.GapCount, &s.PassCount, &lastSeen); err != nil {
		return domain.State{}, false, err
	}
	if lastSeen.Valid {
		s.LastSeenAt = lastSeen.Time.UTC()
	}
	return s, true, rows.Err()
}

// SaveState overwrites the singleton controller state (idempotent)
func (r *queries) SaveState(ctx context.Context, s domain.State) error {
	var lastSeen any
	if !s.LastSeenAt.IsZero() {
		lastSeen = s.LastSeenAt.UTC()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO scan_state (singleton, cursor, last_valid_key, gap_count, pass_count, last_seen_at, updated_at)
		VALUES (true, $1, $2, $3, $4, $5, now())
		ON CONFLICT (singleton) DO UPDATE SET
			cursor = EXCLUDED.cursor,
			last_valid_key = EXCLUDED.last_valid_key,
			gap_count = EXCLUDED.gap_count,
			pass_count = EXCLUDED.pass_count,
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at = now()
	`, s.Cursor, s.LastValidKey, s.GapCount, s.PassCount, lastSeen)
	return err
}

// SeenInRange returns the dedup keys within [from, to]
func (r *queries) SeenInRange(ctx context.Context, from, to int64) (map[int64]bool, error) {
	rows, err := r.q.Query(ctx, `
		SELECT source_key FROM seen_keys
		WHERE source_key BETWEEN $1 AND $2
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]bool{}
	for rows.Next() {
		var k int64
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out[k] = true
	}
	return out, rows.Err()
}

// AddSeen records keys that conclusively hold a record (idempotent)
func (r *queries) AddSeen(ctx context.Context, keys []int64) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO seen_keys (source_key)
		SELECT unnest($1::bigint[])
		ON CONFLICT (source_key) DO NOTHING
	`, keys)
	return err
}

// PruneSeenBefore forgets dedup keys below the horizon
func (r *queries) PruneSeenBefore(ctx context.Context, key int64) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM seen_keys WHERE source_key < $1`, key)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpsertCitations writes discovered records keyed by source key
// re-emission under rollback dedups here, the sink is the final authority
func (r *queries) UpsertCitations(ctx context.Context, cs []domain.Citation) (int, int, error) {
	const insertSQL = `
		INSERT INTO citations (source_key, issued_at, address, zone, plate, description, discovered_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (source_key) DO NOTHING
	`

	attempts, emitted := 0, 0
	for _, c := range cs {
		var issued any
		if !c.IssuedAt.IsZero() {
			issued = c.IssuedAt.UTC()
		}
		attempts++
		tag, err := r.q.Exec(ctx, insertSQL,
			c.SourceKey, issued, c.Address, c.Zone, c.Plate, c.Description,
		)
		if err != nil {
			return emitted, attempts - 1 - emitted, fmt.Errorf("insert citation %d: %w", c.SourceKey, err)
		}
		if tag.RowsAffected() > 0 {
			emitted++
		}
	}
	return emitted, attempts - emitted, nil
}

// StartRun opens a scan_runs ledger row
func (r *queries) StartRun(ctx context.Context, id uuid.UUID, from, to int64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO scan_runs (id, window_from, window_to, started_at, status)
		VALUES ($1, $2, $3, now(), 'running')
	`, id, from, to)
	return err
}

// FinishRun closes a scan_runs ledger row (idempotent)
func (r *queries) FinishRun(ctx context.Context, id uuid.UUID, fin domain.RunFinish) error {
	_, err := r.q.Exec(ctx, `
		UPDATE scan_runs SET
			finished_at = now(),
			status = $2,
			outcome = NULLIF($3,''),
			probed = $4,
			skipped = $5,
			failures = $6,
			hits = $7,
			emitted = $8,
			deduped = $9,
			empties = $10,
			cursor_after = $11,
			elapsed_ms = $12,
			error = NULLIF($13,'')
		WHERE id = $1
	`,
		id, fin.Status, fin.Outcome, fin.Probed, fin.Skipped, fin.Failures,
		fin.Hits, fin.Emitted, fin.Deduped, fin.Empties, fin.CursorAfter, fin.ElapsedMS, fin.ErrText,
	)
	return err
}
