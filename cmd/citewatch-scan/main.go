// Command citewatch-scan runs one scan invocation against the violation source.
// It is meant to be invoked by cron or a systemd timer with no overlap
package main

import (
	"context"
	"flag"
	"os"
	"strconv"

	"citewatch/internal/modkit"
	"citewatch/internal/modkit/module"
	"citewatch/internal/platform/config"
	"citewatch/internal/platform/logger"
	"citewatch/internal/platform/store"

	scanmod "citewatch/internal/services/scan/module"
)

func mustSetEnv(key, val string) {
	if val != "" {
		_ = os.Setenv(key, val)
	}
}

func main() {
	root := config.New()
	pgCfg := root.Prefix("SERVICE_PGSQL_")
	chCfg := root.Prefix("SERVICE_CLICKHOUSE_")

	l := logger.Get()

	var (
		fStartKey = flag.Int64("start-key", 0, "seed cursor when no scan state exists yet")
		fWindow   = flag.Int64("window", 0, "override window size for this run")
		fSourceURL   = flag.String("source-url", "", "override the source base url")
	)
	flag.Parse()

	if *fStartKey > 0 {
		mustSetEnv("SCAN_START_KEY", strconv.FormatInt(*fStartKey, 10))
	}
	if *fWindow > 0 {
		mustSetEnv("SCAN_WINDOW", strconv.FormatInt(*fWindow, 10))
	}
	mustSetEnv("SOURCE_BASE_URL", *fSourceURL)

	chURL := chCfg.MayString("DBURL", "")
	st, err := store.Open(context.Background(), store.Config{
		AppName: "citewatch",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
		CH: store.CHConfig{
			Enabled:    chURL != "",
			URL:        chURL,
			ClientName: "citewatch",
			ClientTag:  "scan",
		},
	}, store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	deps := modkit.Deps{
		Cfg: root,
		PG:  st.PG,
		CH:  st.CH,
		Log: *l,
	}

	sm := scanmod.New(deps)
	module.Register(sm.Name(), sm.Ports())

	ports := sm.Ports().(scanmod.Ports)
	report, err := ports.Runner.RunOnce(context.Background())
	if err != nil {
		l.Fatal().Err(err).Msg("scan run failed")
	}

	l.Info().
		Str("run_id", report.RunID.String()).
		Str("outcome", string(report.Outcome)).
		Int64("cursor", report.State.Cursor).
		Int("emitted", report.Emitted).
		Int("deduped", report.Deduped).
		Int("failures", report.Failures).
		Msg("scan run complete")
}
