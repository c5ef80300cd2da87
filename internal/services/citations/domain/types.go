// Package domain holds DTOs and ports for the citations read API
package domain

import "time"

// RecentQuery filters the recent citations listing
type RecentQuery struct {
	// Limit caps the rows returned, default 100
	Limit int `json:"limit" validate:"omitempty,min=1,max=500"`
	// Since restricts to citations issued on or after this instant
	Since string `json:"since" validate:"omitempty,datetime=2006-01-02"`
}

// Citation is one discovered record as served to clients
type Citation struct {
	SourceKey    int64      `json:"source_key" example:"831394104"`
	IssuedAt     *time.Time `json:"issued_at,omitempty"`
	Address      string     `json:"address" example:"12 Beacon St, Boston, MA"`
	Zone         string     `json:"zone,omitempty" example:"7"`
	Plate        string     `json:"plate,omitempty"`
	Description  string     `json:"description" example:"No Parking"`
	DiscoveredAt time.Time  `json:"discovered_at"`
}

// RunSummary is the latest scan_runs ledger row
type RunSummary struct {
	Status     string     `json:"status"`
	Outcome    string     `json:"outcome,omitempty"`
	WindowFrom int64      `json:"window_from"`
	WindowTo   int64      `json:"window_to"`
	Hits       int        `json:"hits"`
	Emitted    int        `json:"emitted"`
	Failures   int        `json:"failures"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// ScannerStatus reports the controller position and the latest run
type ScannerStatus struct {
	Cursor       int64       `json:"cursor"`
	LastValidKey int64       `json:"last_valid_key"`
	GapCount     int64       `json:"gap_count"`
	PassCount    int         `json:"pass_count"`
	LastSeenAt   *time.Time  `json:"last_seen_at,omitempty"`
	UpdatedAt    *time.Time  `json:"updated_at,omitempty"`
	Citations    int64       `json:"citations"`
	LastRun      *RunSummary `json:"last_run,omitempty"`
}
