package module

import (
	"time"

	"citewatch/internal/platform/config"
)

// Options holds configuration options for the scan service
type Options struct {
	StartKey      int64
	Window        int64
	GapThreshold  int64
	MaxPasses     int
	AdvanceFactor int64
	SeenHorizon   int64

	FailAbortPct   int
	ForbiddenLimit int
	Delay          time.Duration

	MaxRetries int
	RetryBase  time.Duration

	Budget       time.Duration
	ProbeTimeout time.Duration
	DBTimeout    time.Duration

	SourceBaseURL    string
	SourceOperatorID int
	SourceUserAgent  string
	SourceTimeout    time.Duration
	SourceRetries    int
	SourceRetryBase  time.Duration
}

// FromConfig reads the scan options from config with SCAN_ and SOURCE_ prefixes
func FromConfig(cfg config.Conf) Options {
	sc := cfg.Prefix("SCAN_")
	src := cfg.Prefix("SOURCE_")
	return Options{
		StartKey:      sc.MayInt64("START_KEY", 0),
		Window:        sc.MayInt64("WINDOW", 1000),
		GapThreshold:  sc.MayInt64("GAP_THRESHOLD", 10000),
		MaxPasses:     sc.MayInt("MAX_PASSES", 3),
		AdvanceFactor: sc.MayInt64("ADVANCE_FACTOR", 3),
		SeenHorizon:   sc.MayInt64("SEEN_HORIZON", 20000),

		FailAbortPct:   sc.MayInt("FAIL_ABORT_PCT", 20),
		ForbiddenLimit: sc.MayInt("FORBIDDEN_LIMIT", 5),
		Delay:          sc.MayDuration("DELAY", 150*time.Millisecond),

		MaxRetries: sc.MayInt("RETRIES", 3),
		RetryBase:  sc.MayDuration("RETRY_BASE", 500*time.Millisecond),

		Budget:       sc.MayDuration("BUDGET", 10*time.Minute),
		ProbeTimeout: sc.MayDuration("PROBE_TIMEOUT", 0),
		DBTimeout:    sc.MayDuration("DB_TIMEOUT", time.Minute),

		SourceBaseURL:    src.MustString("BASE_URL"),
		SourceOperatorID: src.MayInt("OPERATOR_ID", 1582),
		SourceUserAgent:  src.MayString("USER_AGENT", ""),
		SourceTimeout:    src.MayDuration("TIMEOUT", 12*time.Second),
		SourceRetries:    src.MayInt("RETRIES", 3),
		SourceRetryBase:  src.MayDuration("RETRY_BASE", 500*time.Millisecond),
	}
}
