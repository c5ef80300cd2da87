// Package module wires the citations read API into modkit
package module

import (
	"github.com/go-chi/chi/v5"

	"citewatch/internal/modkit"
	"citewatch/internal/services/citations/domain"
	cithttp "citewatch/internal/services/citations/http"
	citrepo "citewatch/internal/services/citations/repo"
	citsvc "citewatch/internal/services/citations/service"
)

// Ports defines the citations module ports
type Ports struct {
	Query domain.QueryPort
}

// Module implements the citations module
type Module struct {
	deps  modkit.Deps
	ports Ports
	svc   citsvc.Service
}

// New constructs the citations module
func New(deps modkit.Deps) *Module {
	svc := citsvc.New(deps.PG, citrepo.NewPG())

	m := &Module{deps: deps, svc: svc}
	m.ports = Ports{Query: svc}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r chi.Router) {
	cithttp.Register(r, m.svc)
}

// Name returns the module name
func (m *Module) Name() string { return "citations" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
