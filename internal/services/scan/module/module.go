// Package module provides the scan module implementation
package module

import (
	"citewatch/internal/adapters/source/rmcpay"
	"citewatch/internal/core/relevance"
	"citewatch/internal/modkit"
	"citewatch/internal/modkit/repokit"
	"citewatch/internal/services/scan/domain"
	"citewatch/internal/services/scan/prober"
	"citewatch/internal/services/scan/repo"
	"citewatch/internal/services/scan/service"
)

// Ports defines the scan module ports
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the scan module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the scan module
// It wires the source client, the relevance filter, the prober, and the
// service using config from deps.Cfg. It does not mount any routes
func New(deps modkit.Deps) *Module {
	opts := FromConfig(deps.Cfg)

	storeBinder := repo.NewPG()

	src := rmcpay.NewClient(rmcpay.Options{
		BaseURL:    opts.SourceBaseURL,
		OperatorID: opts.SourceOperatorID,
		UserAgent:  opts.SourceUserAgent,
		Timeout:    opts.SourceTimeout,
		MaxRetries: opts.SourceRetries,
		RetryBase:  opts.SourceRetryBase,
	})

	p := prober.New(src, relevance.New(relevance.Default()), prober.Config{
		Delay:          opts.Delay,
		ForbiddenLimit: opts.ForbiddenLimit,
	})

	svc := service.New(
		repokit.TxRunner(deps.PG), storeBinder, p, deps.CH,
		service.Config{
			StartKey:      opts.StartKey,
			Window:        opts.Window,
			GapThreshold:  opts.GapThreshold,
			MaxPasses:     opts.MaxPasses,
			AdvanceFactor: opts.AdvanceFactor,
			SeenHorizon:   opts.SeenHorizon,
			FailAbortPct:  opts.FailAbortPct,
			MaxRetries:    opts.MaxRetries,
			RetryBase:     opts.RetryBase,
			Budget:        opts.Budget,
			ProbeTimeout:  opts.ProbeTimeout,
			DBTimeout:     opts.DBTimeout,
		},
	)

	m := &Module{deps: deps}
	m.ports = Ports{Runner: svc}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return "scan" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }
