// Package audit runs modeling-quality checks over the host model: elements
// that should carry volume but report none, elements without a level
// assignment, and likely duplicates sharing a type and location.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/revit"
)

// Check names accepted by Run.
const (
	CheckZeroVolume   = "zero_volume"
	CheckMissingLevel = "missing_level"
	CheckDuplicates   = "duplicate_elements"

	// CheckError marks issues the auditor itself produced when a check
	// could not run or its output could not be parsed.
	CheckError = "audit_error"
)

// checkOrder fixes execution and reporting order.
var checkOrder = []string{CheckZeroVolume, CheckMissingLevel, CheckDuplicates}

var knownChecks = func() map[string]bool {
	m := make(map[string]bool, len(checkOrder))
	for _, name := range checkOrder {
		m[name] = true
	}
	return m
}()

// levelCategories are the categories expected to carry a level assignment.
var levelCategories = []string{"Walls", "Floors", "Roofs", "Doors", "Windows"}

// Severity grades a finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue is one audit finding.
type Issue struct {
	Check       string   `json:"type"`
	Category    string   `json:"category,omitempty"`
	ElementID   int64    `json:"element_id,omitempty"`
	DuplicateOf int64    `json:"duplicate_of,omitempty"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Summary rolls the findings up per check.
type Summary struct {
	TotalIssues int            `json:"total_issues"`
	ByCheck     map[string]int `json:"by_check"`
	ChecksRun   []string       `json:"checks_run"`
}

// Report is a full audit result.
type Report struct {
	Issues  []Issue `json:"issues"`
	Summary Summary `json:"summary"`
}

// Auditor executes checks on the host and collects their findings.
type Auditor struct {
	exec   revit.Executor
	logger *slog.Logger
}

// NewAuditor creates an auditor on top of an executor.
func NewAuditor(exec revit.Executor, logger *slog.Logger) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{exec: exec, logger: logger}
}

// CheckNames returns the known checks in execution order.
func CheckNames() []string {
	names := make([]string, len(checkOrder))
	copy(names, checkOrder)
	return names
}

// Run executes the requested checks and aggregates their findings. An
// empty list or "all" selects every check; unknown names fail before
// anything touches the host. A check that cannot run yields an audit_error
// finding instead of aborting the rest.
func (a *Auditor) Run(ctx context.Context, checks []string) (*Report, error) {
	selected, err := resolveChecks(checks)
	if err != nil {
		return nil, err
	}

	issues := []Issue{}
	run := make([]string, 0, len(checkOrder))
	for _, name := range checkOrder {
		if !selected[name] {
			continue
		}
		run = append(run, name)
		issues = append(issues, a.runCheck(ctx, name)...)
	}

	byCheck := make(map[string]int, len(run))
	for _, issue := range issues {
		byCheck[issue.Check]++
	}
	a.logger.Info("audit finished", "checks", run, "issues", len(issues))

	return &Report{
		Issues: issues,
		Summary: Summary{
			TotalIssues: len(issues),
			ByCheck:     byCheck,
			ChecksRun:   run,
		},
	}, nil
}

// resolveChecks expands and validates the requested check names.
func resolveChecks(checks []string) (map[string]bool, error) {
	selected := make(map[string]bool, len(checkOrder))
	if len(checks) == 0 {
		for _, name := range checkOrder {
			selected[name] = true
		}
		return selected, nil
	}
	for _, name := range checks {
		if name == "all" {
			for _, known := range checkOrder {
				selected[known] = true
			}
			continue
		}
		if !knownChecks[name] {
			return nil, fmt.Errorf("%w: unknown check %q, use %s or all",
				common.ErrValidation, name, strings.Join(checkOrder, ", "))
		}
		selected[name] = true
	}
	return selected, nil
}

func (a *Auditor) runCheck(ctx context.Context, name string) []Issue {
	switch name {
	case CheckZeroVolume:
		var issues []Issue
		for _, batch := range volumeCategoryBatches() {
			code := buildZeroVolumeSnippet(batch)
			issues = append(issues, a.execute(ctx, name, code, "Audit zero volumes")...)
		}
		return issues
	case CheckMissingLevel:
		code := buildMissingLevelSnippet(levelCategorySpecs())
		return a.execute(ctx, name, code, "Audit missing levels")
	case CheckDuplicates:
		return a.execute(ctx, name, buildDuplicateSnippet(), "Audit duplicate elements")
	}
	return nil
}

// execute runs one snippet and parses its JSON issue list. Failures come
// back as a single audit_error finding so partial audits stay useful.
func (a *Auditor) execute(ctx context.Context, check, code, description string) []Issue {
	out, err := a.exec.ExecuteCode(ctx, code, description)
	if err != nil {
		a.logger.Warn("audit check failed", "check", check, "error", err)
		return []Issue{checkFailure(check, err)}
	}

	var issues []Issue
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &issues); err != nil {
		a.logger.Warn("audit output unparseable", "check", check, "error", err)
		return []Issue{checkFailure(check, fmt.Errorf("parse check output: %w", err))}
	}
	for i := range issues {
		if issues[i].Severity == "" {
			issues[i].Severity = SeverityWarning
		}
	}
	return issues
}

func checkFailure(check string, err error) Issue {
	return Issue{
		Check:       CheckError,
		Description: fmt.Sprintf("%s check failed: %v", check, err),
		Severity:    SeverityError,
	}
}

// volumeCategoryBatches partitions the volume-bearing registry categories
// into host-sized batches.
func volumeCategoryBatches() [][]revit.CategorySpec {
	var names []string
	for _, spec := range revit.Registry {
		if spec.HasVolume {
			names = append(names, spec.Name)
		}
	}
	batches, _ := revit.BatchesFor(names)
	return batches
}

func levelCategorySpecs() []revit.CategorySpec {
	specs := make([]revit.CategorySpec, 0, len(levelCategories))
	for _, name := range levelCategories {
		if spec, ok := revit.LookupCategory(name); ok {
			specs = append(specs, spec)
		}
	}
	return specs
}
