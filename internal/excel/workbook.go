package excel

import (
	"fmt"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mbagrov/bimtally/internal/model"
)

// Fill palette. The verdict colors match the Google Sheets exporter so a
// report reads the same in both.
const (
	colorHeaderFill = "BDD7EE"
	colorBandFill   = "DDEBF6"
	colorOKFill     = "CCFFCC"
	colorRedFill    = "FFCCCC"
	colorYellowFill = "FFFF99"
)

// workbook builds one xlsx file sheet by sheet. The first sheet claims the
// default worksheet excelize creates; later ones are added after it.
type workbook struct {
	f      *excelize.File
	sheets []*sheet
}

func newWorkbook(f *excelize.File) *workbook {
	return &workbook{f: f}
}

func (w *workbook) sheet(name string) *sheet {
	name = sheetTitle(name)
	var err error
	if len(w.sheets) == 0 {
		err = w.f.SetSheetName(w.f.GetSheetName(0), name)
	} else {
		_, err = w.f.NewSheet(name)
	}
	sh := &sheet{f: w.f, name: name, next: 1, err: err}
	w.sheets = append(w.sheets, sh)
	return sh
}

// err returns the first error any sheet hit while building.
func (w *workbook) err() error {
	for _, sh := range w.sheets {
		if sh.err != nil {
			return fmt.Errorf("sheet %q: %w", sh.name, sh.err)
		}
	}
	return nil
}

func (w *workbook) names() []string {
	names := make([]string, len(w.sheets))
	for i, sh := range w.sheets {
		names[i] = sh.name
	}
	return names
}

// sheet is a row cursor over one worksheet. The first error sticks and
// turns every later call into a no-op, so the writers read as data and the
// error surfaces once at save time.
type sheet struct {
	f    *excelize.File
	name string
	next int
	err  error
}

// row writes values starting at column A of the next free row and returns
// the 1-based row it landed on.
func (s *sheet) row(values ...any) int {
	r := s.next
	s.next++
	if s.err != nil {
		return r
	}
	cell, err := excelize.CoordinatesToCellName(1, r)
	if err != nil {
		s.err = err
		return r
	}
	s.err = s.f.SetSheetRow(s.name, cell, &values)
	return r
}

// styledRow writes a row and applies one style across its cells.
func (s *sheet) styledRow(styleID int, values ...any) int {
	r := s.row(values...)
	s.style(r, 1, len(values), styleID)
	return r
}

// style applies a style to a column span of one row. Negative ids leave the
// cells unstyled.
func (s *sheet) style(row, fromCol, toCol, styleID int) {
	if s.err != nil || styleID < 0 {
		return
	}
	from, err := excelize.CoordinatesToCellName(fromCol, row)
	if err != nil {
		s.err = err
		return
	}
	to, err := excelize.CoordinatesToCellName(toCol, row)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetCellStyle(s.name, from, to, styleID)
}

// blank leaves one empty row.
func (s *sheet) blank() {
	s.next++
}

// colWidths sets column widths left to right starting at column A.
func (s *sheet) colWidths(widths ...float64) {
	for i, w := range widths {
		if s.err != nil {
			return
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			s.err = err
			return
		}
		s.err = s.f.SetColWidth(s.name, col, col, w)
	}
}

// freeze pins the top rows so headers stay visible while scrolling.
func (s *sheet) freeze(rows int) {
	if s.err != nil {
		return
	}
	topLeft, err := excelize.CoordinatesToCellName(1, rows+1)
	if err != nil {
		s.err = err
		return
	}
	s.err = s.f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      rows,
		TopLeftCell: topLeft,
		ActivePane:  "bottomLeft",
	})
}

// styleSet holds the style ids one workbook registers up front.
type styleSet struct {
	title   int
	header  int
	band    int
	bold    int
	boldRed int
	wrap    int
	ok      int
	flag    int
	miss    int
}

func newStyleSet(f *excelize.File) (*styleSet, error) {
	st := &styleSet{}
	specs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.title, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 13}}},
		{&st.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
			Fill:      solidFill(colorHeaderFill),
		}},
		{&st.band, &excelize.Style{Font: &excelize.Font{Bold: true}, Fill: solidFill(colorBandFill)}},
		{&st.bold, &excelize.Style{Font: &excelize.Font{Bold: true}}},
		{&st.boldRed, &excelize.Style{Font: &excelize.Font{Bold: true, Color: "FF0000"}}},
		{&st.wrap, &excelize.Style{Alignment: &excelize.Alignment{WrapText: true}}},
		{&st.ok, &excelize.Style{Fill: solidFill(colorOKFill)}},
		{&st.flag, &excelize.Style{Fill: solidFill(colorRedFill)}},
		{&st.miss, &excelize.Style{Fill: solidFill(colorYellowFill)}},
	}
	for _, spec := range specs {
		id, err := f.NewStyle(spec.style)
		if err != nil {
			return nil, err
		}
		*spec.dst = id
	}
	return st, nil
}

// statusStyle picks the verdict fill for a reconciliation row. Rows with an
// unknown status stay unfilled.
func (st *styleSet) statusStyle(status model.MatchStatus) int {
	switch status {
	case model.StatusOK:
		return st.ok
	case model.StatusRedFlag, model.StatusZeroInVOR:
		return st.flag
	case model.StatusNoBIMMatch:
		return st.miss
	default:
		return -1
	}
}

func solidFill(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
}

var sheetNameReplacer = strings.NewReplacer(
	":", " ", "\\", " ", "/", " ", "?", " ", "*", " ", "[", "(", "]", ")")

// sheetTitle makes a string usable as a worksheet name: characters Excel
// forbids are replaced and the result is capped at the 31-character sheet
// name limit.
func sheetTitle(name string) string {
	name = strings.TrimSpace(sheetNameReplacer.Replace(name))
	if name == "" {
		return "Данные"
	}
	runes := []rune(name)
	if len(runes) > 31 {
		name = string(runes[:31])
	}
	return name
}

func titleOr(title, fallback string) string {
	if strings.TrimSpace(title) == "" {
		return fallback
	}
	return title
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
