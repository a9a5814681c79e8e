// Package boq parses externally supplied bills of quantities. Bills arrive
// as JSON arrays or as spreadsheet tables (Google Sheets, xlsx) whose layout
// varies by estimator; the header scan here is shared by both spreadsheet
// readers.
package boq

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
)

// headerScanRows bounds how deep the header scan looks. Real bills carry
// title blocks and approval stamps above the table, rarely more than a few
// rows of them.
const headerScanRows = 10

var (
	nameKeywords = []string{"наимен", "name", "работ", "описание", "description"}
	unitKeywords = []string{"ед", "unit", "изм"}
	qtyKeywords  = []string{"кол", "объем", "объём", "qty", "quantity", "volume", "колич"}

	totalMarkers = []string{"итого", "всего", "total"}
)

// Columns holds the zero-based column indexes located by the header scan.
// Unit is -1 when the bill has no unit column.
type Columns struct {
	Name int
	Unit int
	Qty  int
}

// FindHeader scans the first rows of a sheet for the header row: the first
// row where both a name column and a quantity column can be identified by
// their multilingual keywords. Returns the header row index and the located
// columns.
func FindHeader(rows [][]string) (int, Columns, error) {
	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}

	for i := 0; i < limit; i++ {
		cols := Columns{Name: -1, Unit: -1, Qty: -1}
		for j, cell := range rows[i] {
			lower := strings.ToLower(strings.TrimSpace(cell))
			if lower == "" {
				continue
			}
			switch {
			case cols.Name == -1 && containsAny(lower, nameKeywords):
				cols.Name = j
			case cols.Unit == -1 && containsAny(lower, unitKeywords):
				cols.Unit = j
			case cols.Qty == -1 && containsAny(lower, qtyKeywords):
				cols.Qty = j
			}
		}
		if cols.Name != -1 && cols.Qty != -1 {
			return i, cols, nil
		}
	}
	return 0, Columns{}, fmt.Errorf("%w: scanned first %d rows", common.ErrNoHeaderRow, limit)
}

// ParseRows converts the data rows below the header into BoQ lines. Rows
// that are blank, bare row numbers, or total/subtotal lines are skipped;
// a quantity that fails to parse becomes 0 with a recorded warning. Row
// numbers in warnings are 1-based absolute sheet rows.
func ParseRows(rows [][]string, headerRow int, cols Columns, source string) *model.BoQDocument {
	doc := &model.BoQDocument{Source: source}

	for i := headerRow + 1; i < len(rows); i++ {
		name := strings.TrimSpace(cellAt(rows[i], cols.Name))
		unit := strings.TrimSpace(cellAt(rows[i], cols.Unit))
		rawQty := strings.TrimSpace(cellAt(rows[i], cols.Qty))

		if name == "" && rawQty == "" {
			continue
		}
		if isRowNumber(name) {
			continue
		}
		if containsAny(strings.ToLower(name), totalMarkers) {
			continue
		}
		if name == "" {
			continue
		}

		qty, err := ParseQuantity(rawQty)
		if err != nil {
			doc.Warnings = append(doc.Warnings, model.ParseWarning{
				Row:    i + 1,
				Field:  "volume",
				Value:  rawQty,
				Reason: err.Error(),
			})
			qty = 0
		}
		doc.Lines = append(doc.Lines, model.BoQLine{Name: name, Unit: unit, Volume: qty})
	}
	return doc
}

// ParseTable runs the header scan and row parse in one step, for the
// spreadsheet readers.
func ParseTable(rows [][]string, source string) (*model.BoQDocument, error) {
	headerRow, cols, err := FindHeader(rows)
	if err != nil {
		return nil, err
	}
	return ParseRows(rows, headerRow, cols, source), nil
}

// ParseQuantity reads a quantity cell. Estimators write "1 234,56" with
// group spaces (often non-breaking) and a decimal comma; both are
// normalized before parsing. An empty cell is zero.
func ParseQuantity(raw string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', ' ':
			return -1
		case ',':
			return '.'
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	return value, nil
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// isRowNumber reports whether a name cell holds only a position number like
// "1", "2.1" or "1.2.3".
func isRowNumber(name string) bool {
	hasDigit := false
	for _, r := range name {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '.' || r == ',':
		default:
			return false
		}
	}
	return hasDigit
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
