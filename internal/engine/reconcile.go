package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mbagrov/bimtally/internal/boq"
	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/excel"
	"github.com/mbagrov/bimtally/internal/model"
)

// LoadBoQJSON parses a bill of quantities pasted as a JSON array.
func (e *Engine) LoadBoQJSON(data []byte) (*model.BoQDocument, error) {
	return boq.ParseJSON(data, "json")
}

// LoadBoQFile reads a bill from disk, dispatching on the extension: .json
// for the array form, .xlsx/.xlsm for spreadsheets with header detection.
func (e *Engine) LoadBoQFile(path string) (*model.BoQDocument, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return boq.LoadJSONFile(path)
	case ".xlsx", ".xlsm":
		return excel.ReadBoQ(path)
	default:
		return nil, fmt.Errorf("%w: unsupported bill file type %q (use .json or .xlsx)", common.ErrValidation, filepath.Ext(path))
	}
}

// LoadBoQSheet reads a bill from a Google Sheets range.
func (e *Engine) LoadBoQSheet(ctx context.Context, spreadsheetID, readRange string) (*model.BoQDocument, error) {
	if e.deps.SheetReader == nil {
		return nil, fmt.Errorf("%w: google sheets access is not configured", common.ErrMissingConfig)
	}
	return e.deps.SheetReader.ReadBoQ(ctx, spreadsheetID, readRange)
}

// Reconcile compares the bill against the summary and persists the run when
// storage is configured. A nil summary triggers a fresh full-model build. A
// non-positive tolerance falls back to the configured default.
func (e *Engine) Reconcile(ctx context.Context, doc *model.BoQDocument, sum *model.Summary, tolerancePct float64) (*model.ReconciliationReport, error) {
	if doc == nil || len(doc.Lines) == 0 {
		return nil, fmt.Errorf("%w: bill of quantities is empty", common.ErrValidation)
	}
	if sum == nil {
		var err error
		sum, err = e.BuildSummary(ctx, SummaryOptions{})
		if err != nil {
			return nil, err
		}
	}
	if tolerancePct <= 0 {
		tolerancePct = e.cfg.TolerancePct
	}

	report := e.reconciler.Reconcile(ctx, doc, sum, tolerancePct)
	e.persistRun(ctx, report)
	return report, nil
}

// persistRun writes the run to history. Best effort: storage failures are
// logged, never surfaced, so reporting always wins over bookkeeping.
func (e *Engine) persistRun(ctx context.Context, report *model.ReconciliationReport) {
	if e.deps.Storage == nil {
		return
	}
	payload, err := json.Marshal(report)
	if err != nil {
		e.logger.Warn("failed to serialize run report", "error", err)
		return
	}
	run := &model.RunRecord{
		TolerancePct: report.Summary.TolerancePct,
		OK:           report.Summary.OK,
		RedFlags:     report.Summary.RedFlags,
		NoMatch:      report.Summary.NoMatch,
		Missing:      report.Summary.Missing,
		ReportJSON:   string(payload),
	}
	if err := e.deps.Storage.SaveRun(ctx, run); err != nil {
		e.logger.Warn("failed to persist run", "error", err)
	}
}

// ListRuns returns the newest persisted runs.
func (e *Engine) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if e.deps.Storage == nil {
		return nil, fmt.Errorf("%w: run history storage is not configured", common.ErrMissingConfig)
	}
	return e.deps.Storage.ListRuns(ctx, limit)
}

// GetRun loads one persisted run with its full report.
func (e *Engine) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	if e.deps.Storage == nil {
		return nil, fmt.Errorf("%w: run history storage is not configured", common.ErrMissingConfig)
	}
	return e.deps.Storage.GetRun(ctx, id)
}
