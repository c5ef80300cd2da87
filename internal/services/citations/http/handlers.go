// Package http provides http transport for the citations read API
package http

import (
	stdhttp "net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"citewatch/internal/modkit/httpkit"
	perr "citewatch/internal/platform/errors"
	"citewatch/internal/services/citations/domain"
	svc "citewatch/internal/services/citations/service"
)

// Register mounts citation endpoints on the given router
func Register(r chi.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/citations/recent", h.recent)
	httpkit.Get(r, "/scanner/status", h.status)
}

type handlers struct{ svc svc.Service }

func (h *handlers) recent(r *stdhttp.Request) (any, error) {
	q := domain.RecentQuery{Since: r.URL.Query().Get("since")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, perr.InvalidArgf("limit must be an integer")
		}
		q.Limit = n
	}
	return h.svc.Recent(r.Context(), q)
}

func (h *handlers) status(r *stdhttp.Request) (any, error) {
	return h.svc.Status(r.Context())
}
