// Package module defines the minimal contract for a modkit module
package module

import (
	"github.com/go-chi/chi/v5"
)

// Module defines the minimal contract used by modkit
// keep this sibling to avoid import knots when a module also exports its own ports type
type Module interface {
	Ports() any
	Name() string
}

// RouteMounter is implemented by modules that expose HTTP routes
type RouteMounter interface {
	MountRoutes(r chi.Router)
}
