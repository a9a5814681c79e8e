// Package excel writes pipeline results to .xlsx workbooks and reads bills
// of quantities back from them. Export auto-detects which pipeline produced
// a JSON payload, so one tool call covers summaries, reconciliation
// reports, generated bills and raw catalogs alike.
package excel

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
)

// Kind identifies which pipeline produced an export payload. The values are
// the producing tool names, echoed back in results.
type Kind string

const (
	KindSummary        Kind = "bim_summary"
	KindReconciliation Kind = "vor_vs_bim"
	KindVOR            Kind = "bim_vor_generate"
	KindCatalog        Kind = "bim_catalog"
	KindGeneric        Kind = "generic"
)

// revitCategories are scanner category names; a payload keyed by any of them
// is a raw catalog.
var revitCategories = map[string]bool{
	"Walls": true, "Floors": true, "Roofs": true, "Ceilings": true,
	"Columns": true, "StructuralFraming": true, "StructuralFoundation": true,
	"Doors": true, "Windows": true, "Furniture": true, "GenericModel": true,
	"Ducts": true, "Pipes": true, "MechanicalEquipment": true,
	"ElectricalEquipment": true, "LightingFixtures": true, "CableTray": true,
	"Conduit": true, "Ramps": true, "Stairs": true,
}

// DetectKind inspects a decoded payload's top-level keys to decide which
// pipeline produced it. Checked in order: the summary's groups map, the
// reconciliation pair of matches and red flags, the generated bill's
// positions, then catalog category names.
func DetectKind(payload map[string]any) Kind {
	if _, ok := payload["groups"]; ok {
		return KindSummary
	}
	if _, ok := payload["red_flags"]; ok {
		if _, ok := payload["matches"]; ok {
			return KindReconciliation
		}
	}
	if _, ok := payload["positions"]; ok {
		if _, ok := payload["total_positions"]; ok {
			return KindVOR
		}
	}
	for key := range payload {
		if revitCategories[key] {
			return KindCatalog
		}
	}
	return KindGeneric
}

// ExportResult describes a written workbook.
type ExportResult struct {
	Path   string   `json:"path"`
	Kind   Kind     `json:"data_type"`
	Sheets []string `json:"sheets"`
}

// Exporter writes result workbooks. The zero value is not usable; construct
// with NewExporter.
type Exporter struct {
	dir    string
	logger *slog.Logger
}

// NewExporter creates an Exporter that saves unnamed exports under dir.
// An empty dir falls back to exports/ under the user's home directory.
func NewExporter(dir string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{dir: dir, logger: logger}
}

// Export parses a JSON payload, detects its kind and writes the matching
// workbook shape. An empty path saves a timestamped file under the
// exporter's directory; an empty title keeps the kind's default sheet name.
func (e *Exporter) Export(data []byte, path, title string) (*ExportResult, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object: %v", common.ErrValidation, err)
	}

	switch kind := DetectKind(payload); kind {
	case KindSummary:
		var s model.Summary
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, decodeError(kind, err)
		}
		return e.ExportSummary(&s, path, title)
	case KindReconciliation:
		var report model.ReconciliationReport
		if err := json.Unmarshal(data, &report); err != nil {
			return nil, decodeError(kind, err)
		}
		return e.ExportReconciliation(&report, path, title)
	case KindVOR:
		var doc model.VORDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, decodeError(kind, err)
		}
		return e.ExportVOR(&doc, path, title)
	case KindCatalog:
		var catalog model.Catalog
		if err := json.Unmarshal(data, &catalog); err != nil {
			return nil, decodeError(kind, err)
		}
		return e.ExportCatalog(catalog, path, title)
	default:
		return e.ExportGeneric(payload, path, title)
	}
}

func decodeError(kind Kind, err error) error {
	return fmt.Errorf("%w: payload looks like %s output but does not decode as it: %v",
		common.ErrValidation, kind, err)
}

// ExportSummary writes a semantic summary workbook: an overview sheet, one
// detail sheet per domain, and an unrecognized-types sheet when needed.
func (e *Exporter) ExportSummary(s *model.Summary, path, title string) (*ExportResult, error) {
	if s == nil || (s.GroupCount() == 0 && len(s.Unrecognized) == 0) {
		return nil, fmt.Errorf("%w: summary has no groups to export", common.ErrValidation)
	}
	return e.write(KindSummary, path, func(wb *workbook, st *styleSet) {
		writeSummary(wb, st, s, titleOr(title, "Сводка"))
	})
}

// ExportReconciliation writes a reconciliation report workbook: the verdict
// table plus a missing-in-bill sheet when the model has unclaimed groups.
func (e *Exporter) ExportReconciliation(report *model.ReconciliationReport, path, title string) (*ExportResult, error) {
	if report == nil {
		return nil, fmt.Errorf("%w: no report to export", common.ErrValidation)
	}
	return e.write(KindReconciliation, path, func(wb *workbook, st *styleSet) {
		writeReconciliation(wb, st, report, titleOr(title, "ВОР vs BIM"))
	})
}

// ExportVOR writes a generated bill of quantities ready for a tender
// package.
func (e *Exporter) ExportVOR(doc *model.VORDocument, path, title string) (*ExportResult, error) {
	if doc == nil || len(doc.Positions) == 0 {
		return nil, fmt.Errorf("%w: bill has no positions to export", common.ErrValidation)
	}
	return e.write(KindVOR, path, func(wb *workbook, st *styleSet) {
		writeVOR(wb, st, doc, titleOr(title, "Позиции ВОР"))
	})
}

// ExportCatalog writes a raw scan catalog: the per-category rollup plus a
// per-type detail sheet.
func (e *Exporter) ExportCatalog(catalog model.Catalog, path, title string) (*ExportResult, error) {
	if len(catalog) == 0 {
		return nil, fmt.Errorf("%w: nothing to export", common.ErrEmptyCatalog)
	}
	return e.write(KindCatalog, path, func(wb *workbook, st *styleSet) {
		writeCatalog(wb, st, catalog, titleOr(title, "Каталог"))
	})
}

// ExportGeneric writes any JSON object as a key/value sheet.
func (e *Exporter) ExportGeneric(payload map[string]any, path, title string) (*ExportResult, error) {
	return e.write(KindGeneric, path, func(wb *workbook, st *styleSet) {
		writeGeneric(wb, st, payload, titleOr(title, "Данные"))
	})
}

// write runs one sheet builder against a fresh workbook and saves it.
func (e *Exporter) write(kind Kind, path string, build func(*workbook, *styleSet)) (*ExportResult, error) {
	resolved, err := e.resolvePath(path)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	st, err := newStyleSet(f)
	if err != nil {
		return nil, fmt.Errorf("failed to register styles: %w", err)
	}

	wb := newWorkbook(f)
	build(wb, st)
	if err := wb.err(); err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", err)
	}
	if err := f.SaveAs(resolved); err != nil {
		return nil, fmt.Errorf("failed to save workbook to %s: %w", resolved, err)
	}

	result := &ExportResult{Path: resolved, Kind: kind, Sheets: wb.names()}
	e.logger.Info("exported workbook",
		"path", resolved,
		"kind", kind,
		"sheets", len(result.Sheets))
	return result, nil
}

// resolvePath fills in the default export location and makes sure the
// target directory exists.
func (e *Exporter) resolvePath(path string) (string, error) {
	if path == "" {
		dir := e.dir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				home = "."
			}
			dir = filepath.Join(home, "exports")
		}
		path = filepath.Join(dir, fmt.Sprintf("bim_%d.xlsx", time.Now().Unix()))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create export directory %s: %w", dir, err)
		}
	}
	return path, nil
}
