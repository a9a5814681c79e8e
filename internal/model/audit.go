package model

// AuditSeverity grades an audit finding.
type AuditSeverity string

const (
	// SeverityWarning marks findings worth a look.
	SeverityWarning AuditSeverity = "warning"
	// SeverityError marks findings that are almost certainly model defects.
	SeverityError AuditSeverity = "error"
)

// AuditFinding is one suspicious element or type surfaced by a model audit
// check.
type AuditFinding struct {
	Check     string        `json:"check"`
	Severity  AuditSeverity `json:"severity"`
	Category  string        `json:"category"`
	TypeName  string        `json:"type,omitempty"`
	ElementID int64         `json:"element_id,omitempty"`
	Level     string        `json:"level,omitempty"`
	Detail    string        `json:"detail"`
}

// AuditResult groups findings by check with a rollup.
type AuditResult struct {
	Findings []AuditFinding `json:"findings"`
	ByCheck  map[string]int `json:"by_check"`
	Total    int            `json:"total"`
}
