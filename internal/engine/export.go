package engine

import (
	"context"
	"fmt"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/excel"
	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/report"
	"github.com/mbagrov/bimtally/internal/service"
	"github.com/mbagrov/bimtally/internal/vor"
)

// GenerateVOR builds a bill of quantities from the summary. A nil summary
// triggers a fresh full-model build.
func (e *Engine) GenerateVOR(ctx context.Context, sum *model.Summary, opts vor.Options) (*model.VORDocument, error) {
	if sum == nil {
		var err error
		sum, err = e.BuildSummary(ctx, SummaryOptions{})
		if err != nil {
			return nil, err
		}
	}
	return vor.Generate(sum, e.patterns, opts)
}

// ConvertVOR converts the summary into bill positions through a mapping
// file.
func (e *Engine) ConvertVOR(ctx context.Context, sum *model.Summary, mappingPath, title string) (*model.VORDocument, error) {
	mapping, err := vor.LoadMapping(mappingPath)
	if err != nil {
		return nil, err
	}
	if sum == nil {
		sum, err = e.BuildSummary(ctx, SummaryOptions{})
		if err != nil {
			return nil, err
		}
	}
	return vor.Convert(sum, mapping, title)
}

// ExportExcel writes an arbitrary JSON payload to a workbook, auto-
// detecting the layout from the payload shape.
func (e *Engine) ExportExcel(data []byte, path, title string) (*excel.ExportResult, error) {
	return e.exporter.Export(data, path, title)
}

// ExportSummaryExcel writes a semantic summary workbook.
func (e *Engine) ExportSummaryExcel(sum *model.Summary, path, title string) (*excel.ExportResult, error) {
	return e.exporter.ExportSummary(sum, path, title)
}

// ExportReconciliationExcel writes a reconciliation report workbook.
func (e *Engine) ExportReconciliationExcel(rep *model.ReconciliationReport, path, title string) (*excel.ExportResult, error) {
	return e.exporter.ExportReconciliation(rep, path, title)
}

// ExportVORExcel writes a generated bill workbook.
func (e *Engine) ExportVORExcel(doc *model.VORDocument, path, title string) (*excel.ExportResult, error) {
	return e.exporter.ExportVOR(doc, path, title)
}

// ExportVORSheets writes a generated bill to Google Sheets.
func (e *Engine) ExportVORSheets(ctx context.Context, doc *model.VORDocument, target service.SheetTarget) (*service.SheetExport, error) {
	if e.deps.SheetWriter == nil {
		return nil, fmt.Errorf("%w: google sheets access is not configured", common.ErrMissingConfig)
	}
	return e.deps.SheetWriter.WriteVOR(ctx, doc, target)
}

// ExportReconciliationSheets writes a reconciliation report to Google
// Sheets.
func (e *Engine) ExportReconciliationSheets(ctx context.Context, rep *model.ReconciliationReport, target service.SheetTarget) (*service.SheetExport, error) {
	if e.deps.SheetWriter == nil {
		return nil, fmt.Errorf("%w: google sheets access is not configured", common.ErrMissingConfig)
	}
	return e.deps.SheetWriter.WriteReconciliation(ctx, rep, target)
}

// RenderReport assembles the Markdown tender report from an already built
// summary and optional reconciliation.
func (e *Engine) RenderReport(sum *model.Summary, rec *model.ReconciliationReport, opts report.Options) (string, error) {
	return report.Render(sum, rec, opts)
}
