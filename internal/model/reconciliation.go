package model

// MatchStatus classifies one reconciled BoQ line.
type MatchStatus string

const (
	// StatusOK means the deviation is within tolerance.
	StatusOK MatchStatus = "ok"
	// StatusRedFlag means the deviation exceeds tolerance.
	StatusRedFlag MatchStatus = "red_flag"
	// StatusZeroInVOR means the bill states a zero quantity for a group the
	// model has; inherently suspicious, flagged regardless of tolerance.
	StatusZeroInVOR MatchStatus = "zero_in_vor"
	// StatusNoBIMMatch means no semantic group could be matched to the line.
	StatusNoBIMMatch MatchStatus = "no_bim_match"
)

// Label returns the verdict text report surfaces print for this status.
// Unknown statuses fall back to the wire value.
func (s MatchStatus) Label() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusRedFlag:
		return "Расхождение"
	case StatusZeroInVOR:
		return "Нулевой объём в ВОР"
	case StatusNoBIMMatch:
		return "Нет соответствия в BIM"
	default:
		return string(s)
	}
}

// MatchMethod records which matcher tier produced the group match.
type MatchMethod string

const (
	// MatchKeyword is the deterministic pattern-table match.
	MatchKeyword MatchMethod = "keyword"
	// MatchAI is the language-model fallback.
	MatchAI MatchMethod = "ai"
	// MatchSemantic is the embedding-similarity (or token-overlap) fallback.
	MatchSemantic MatchMethod = "semantic"
	// MatchNone means every tier missed.
	MatchNone MatchMethod = "none"
)

// ReconciliationEntry is the per-line verdict. BIMVolume and DiffPct are
// pointers so an absent value serializes as null, which downstream
// consumers distinguish from 0.
type ReconciliationEntry struct {
	Name           string      `json:"name"`
	Unit           string      `json:"unit"`
	VORVolume      float64     `json:"vor_volume"`
	BIMVolume      *float64    `json:"bim_volume"`
	MatchedPattern string      `json:"matched_pattern,omitempty"`
	DiffPct        *float64    `json:"diff_pct"`
	Status         MatchStatus `json:"status"`
	MatchMethod    MatchMethod `json:"match_method"`
}

// MissingEntry is a semantic group present in the model with nonzero
// quantity that no BoQ line ever matched.
type MissingEntry struct {
	Group    string  `json:"group"`
	Label    string  `json:"label"`
	Unit     Unit    `json:"unit"`
	Quantity float64 `json:"quantity"`
}

// ReconciliationStats summarizes a reconciliation run.
type ReconciliationStats struct {
	TotalVOR       int     `json:"total_vor"`
	OK             int     `json:"ok"`
	RedFlags       int     `json:"red_flags"`
	NoMatch        int     `json:"no_match"`
	Missing        int     `json:"missing"`
	TolerancePct   float64 `json:"tolerance_pct"`
	PatternsLoaded int     `json:"patterns_loaded"`
}

// ReconciliationReport is the full output of one reconcile run.
type ReconciliationReport struct {
	Matches       []ReconciliationEntry `json:"matches"`
	RedFlags      []ReconciliationEntry `json:"red_flags"`
	MissingInVOR  []MissingEntry        `json:"missing_in_vor"`
	Summary       ReconciliationStats   `json:"summary"`
	ParseWarnings []ParseWarning        `json:"parse_warnings,omitempty"`
}
