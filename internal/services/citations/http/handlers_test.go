package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"citewatch/internal/modkit/httpkit"
	"citewatch/internal/modkit/repokit"
	"citewatch/internal/services/citations/domain"
	"citewatch/internal/services/citations/repo"
	svc "citewatch/internal/services/citations/service"
)

// fakeRepo serves canned rows
type fakeRepo struct {
	rows      []domain.Citation
	status    domain.ScannerStatus
	hasState  bool
	lastLimit int
	lastSince string
}

func (f *fakeRepo) Recent(_ context.Context, limit int, since string) ([]domain.Citation, error) {
	f.lastLimit, f.lastSince = limit, since
	return f.rows, nil
}

func (f *fakeRepo) State(context.Context) (domain.ScannerStatus, bool, error) {
	return f.status, f.hasState, nil
}

func (f *fakeRepo) LastRun(context.Context) (domain.RunSummary, bool, error) {
	return domain.RunSummary{Status: "ok", Outcome: "advance"}, true, nil
}

func (f *fakeRepo) Count(context.Context) (int64, error) { return int64(len(f.rows)), nil }

// fakeTx satisfies repokit.TxRunner for service construction
type fakeTx struct{ repokit.TxRunner }

func newRouter(f *fakeRepo) chi.Router {
	binder := repokit.BindFunc[repo.Repo](func(repokit.Queryer) repo.Repo { return f })
	s := svc.New(&fakeTx{}, binder)
	r := chi.NewRouter()
	Register(r, s)
	return r
}

func decodeEnvelope(t *testing.T, body []byte) httpkit.Envelope {
	t.Helper()
	var env httpkit.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	return env
}

func TestRecentDefaults(t *testing.T) {
	at := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	f := &fakeRepo{rows: []domain.Citation{{
		SourceKey: 831394104, Address: "12 Beacon St, Boston, MA",
		Description: "No Parking", DiscoveredAt: at,
	}}}
	r := newRouter(f)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/citations/recent", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	if f.lastLimit != 100 {
		t.Fatalf("default limit = %d, want 100", f.lastLimit)
	}
	env := decodeEnvelope(t, rec.Body.Bytes())
	if env.StatusCode != 200 || env.Error != "" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestRecentQueryParams(t *testing.T) {
	f := &fakeRepo{}
	r := newRouter(f)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/citations/recent?limit=25&since=2026-08-01", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}
	if f.lastLimit != 25 || f.lastSince != "2026-08-01" {
		t.Fatalf("limit=%d since=%q", f.lastLimit, f.lastSince)
	}
}

func TestRecentRejectsBadParams(t *testing.T) {
	r := newRouter(&fakeRepo{})

	cases := []struct {
		target string
		want   int
	}{
		{"/citations/recent?limit=nope", 422},
		{"/citations/recent?limit=9999", 400},
		{"/citations/recent?since=yesterday", 400},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", tc.target, nil))
		if rec.Code != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.target, rec.Code, tc.want)
		}
		env := decodeEnvelope(t, rec.Body.Bytes())
		if env.Error == "" {
			t.Fatalf("%s: expected error envelope, got %+v", tc.target, env)
		}
	}
}

func TestStatus(t *testing.T) {
	f := &fakeRepo{
		hasState: true,
		status:   domain.ScannerStatus{Cursor: 5201, LastValidKey: 5200},
	}
	r := newRouter(f)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/scanner/status", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Data domain.ScannerStatus `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Cursor != 5201 || env.Data.LastRun == nil || env.Data.LastRun.Outcome != "advance" {
		t.Fatalf("data = %+v", env.Data)
	}
}

func TestStatusBeforeFirstRun(t *testing.T) {
	r := newRouter(&fakeRepo{hasState: false})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/scanner/status", nil))
	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
