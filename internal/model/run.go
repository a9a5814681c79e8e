package model

import "time"

// RunRecord is one persisted reconciliation run, kept so past reports can
// be listed and re-opened without re-scanning the model.
type RunRecord struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	TolerancePct float64   `json:"tolerance_pct"`
	OK           int       `json:"ok"`
	RedFlags     int       `json:"red_flags"`
	NoMatch      int       `json:"no_match"`
	Missing      int       `json:"missing"`
	ReportJSON   string    `json:"-"`
}
