package model

// BoQLine is one line of an externally supplied bill of quantities: free
// text name, a free-text unit hint, and the quantity the bill states.
type BoQLine struct {
	Name   string  `json:"name"`
	Unit   string  `json:"unit"`
	Volume float64 `json:"volume"`
}

// ParseWarning records a BoQ row that could not be read cleanly. The row is
// still included in the reconciliation with a zero quantity; one bad row
// must not cost the whole report.
type ParseWarning struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// BoQDocument is a parsed bill plus any per-row warnings produced while
// reading it.
type BoQDocument struct {
	Lines    []BoQLine      `json:"lines"`
	Warnings []ParseWarning `json:"warnings,omitempty"`
	Source   string         `json:"source,omitempty"`
}
