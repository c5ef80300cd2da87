// Package service contains citations read workflows
package service

import (
	"context"

	"citewatch/internal/modkit/httpkit"
	"citewatch/internal/modkit/repokit"
	perr "citewatch/internal/platform/errors"
	"citewatch/internal/services/citations/domain"
	"citewatch/internal/services/citations/repo"
)

// Service defines the citations service contract
type Service interface {
	domain.QueryPort
}

// Svc implements the citations service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
}

// New constructs a citations service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo]) *Svc {
	if db == nil {
		panic("citations.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("citations.Service requires a non nil Repo binder")
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db}
}

// Recent lists the newest citations
func (s *Svc) Recent(ctx context.Context, q domain.RecentQuery) ([]domain.Citation, error) {
	if err := httpkit.Check(q); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Repo.Recent(ctx, limit, q.Since)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeDB, "recent citations query failed")
	}
	if rows == nil {
		rows = []domain.Citation{}
	}
	return rows, nil
}

// Status reports the scanner position and the latest run
func (s *Svc) Status(ctx context.Context) (domain.ScannerStatus, error) {
	st, ok, err := s.Repo.State(ctx)
	if err != nil {
		return domain.ScannerStatus{}, perr.Wrapf(err, perr.ErrorCodeDB, "scanner state query failed")
	}
	if !ok {
		return domain.ScannerStatus{}, perr.NotFoundf("scanner has not run yet")
	}

	if n, err := s.Repo.Count(ctx); err == nil {
		st.Citations = n
	}

	if run, ok, err := s.Repo.LastRun(ctx); err == nil && ok {
		st.LastRun = &run
	}
	return st, nil
}
