package sheets

import (
	"strconv"
	"strings"

	"google.golang.org/api/sheets/v4"

	"github.com/mbagrov/bimtally/internal/model"
)

// Column headers for the two export shapes. The bill headers intentionally
// match what estimators expect to paste back into tender packages.
var (
	vorHeaders = []any{"#", "Наименование работ", "Ед.изм.", "Объём BIM", "Источник"}

	reconciliationHeaders = []any{
		"#", "Наименование работ", "Ед.изм.", "Объём ВОР", "Объём BIM",
		"Откл., %", "Статус", "Группа BIM", "Метод",
	}
)

// Column widths in pixels, one per header column.
var (
	vorColumnWidths            = []int64{40, 350, 70, 105, 280}
	reconciliationColumnWidths = []int64{40, 350, 70, 105, 105, 90, 200, 220, 90}
)

// Sheet palette.
var (
	colorHeaderBg = hexColor("#1565C0")
	colorHeaderFg = &sheets.Color{Red: 1, Green: 1, Blue: 1, Alpha: 1}
	colorAltRow   = hexColor("#E8F4FD")
	colorWhite    = &sheets.Color{Red: 1, Green: 1, Blue: 1, Alpha: 1}
)

// statusFills maps a reconciliation verdict to its row fill. The palette
// matches the Excel exporter so a report reads the same in both.
var statusFills = map[model.MatchStatus]*sheets.Color{
	model.StatusOK:         hexColor("#CCFFCC"),
	model.StatusRedFlag:    hexColor("#FFCCCC"),
	model.StatusZeroInVOR:  hexColor("#FFCCCC"),
	model.StatusNoBIMMatch: hexColor("#FFFF99"),
}

// hexColor converts "#RRGGBB" to a sheets Color with 0-1 float components.
func hexColor(hex string) *sheets.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return &sheets.Color{Alpha: 1}
	}
	r, _ := strconv.ParseUint(hex[0:2], 16, 8)
	g, _ := strconv.ParseUint(hex[2:4], 16, 8)
	b, _ := strconv.ParseUint(hex[4:6], 16, 8)
	return &sheets.Color{
		Red:   float64(r) / 255.0,
		Green: float64(g) / 255.0,
		Blue:  float64(b) / 255.0,
		Alpha: 1,
	}
}

// reconciliationLayout records where prepareReconciliationData placed things
// so the formatting pass can color exactly the right rows.
type reconciliationLayout struct {
	values      [][]any
	statusRows  []statusRow
	sectionRows []int
	entryRows   int
}

// statusRow is one data row that carries a verdict fill.
type statusRow struct {
	row    int
	status model.MatchStatus
}
