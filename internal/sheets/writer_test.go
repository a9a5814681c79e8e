package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/service"
)

// fakeSheetsAPI is a loose in-process stand-in for the Sheets REST API. It
// records what the adapter sent and answers with canned shapes.
type fakeSheetsAPI struct {
	mu           sync.Mutex
	sheetTitle   string
	sheetID      int64
	valuesResult [][]any
	metaCalls    int
	clearRanges  []string
	updateRanges []string
	updates      []sheets.ValueRange
	batchBodies  []sheets.BatchUpdateSpreadsheetRequest
	getRanges    []string
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, ":clear"):
		idx := strings.Index(path, "/values/")
		f.clearRanges = append(f.clearRanges, strings.TrimSuffix(path[idx+len("/values/"):], ":clear"))
		fmt.Fprint(w, "{}")

	case strings.HasSuffix(path, ":batchUpdate"):
		var body sheets.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.batchBodies = append(f.batchBodies, body)
		if len(body.Requests) == 1 && body.Requests[0].AddSheet != nil {
			title := body.Requests[0].AddSheet.Properties.Title
			fmt.Fprintf(w, `{"replies":[{"addSheet":{"properties":{"sheetId":%d,"title":%q}}}]}`, f.sheetID, title)
			return
		}
		fmt.Fprint(w, `{"replies":[]}`)

	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.updates = append(f.updates, vr)
		idx := strings.Index(path, "/values/")
		f.updateRanges = append(f.updateRanges, path[idx+len("/values/"):])
		fmt.Fprint(w, "{}")

	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		idx := strings.Index(path, "/values/")
		f.getRanges = append(f.getRanges, path[idx+len("/values/"):])
		_ = json.NewEncoder(w).Encode(map[string]any{"values": f.valuesResult})

	case r.Method == http.MethodPost && strings.HasSuffix(path, "/v4/spreadsheets"):
		fmt.Fprintf(w, `{"spreadsheetId":"new-ss","spreadsheetUrl":"https://docs.google.com/spreadsheets/d/new-ss/edit","sheets":[{"properties":{"sheetId":%d,"title":%q}}]}`, f.sheetID, f.sheetTitle)

	case r.Method == http.MethodGet:
		f.metaCalls++
		fmt.Fprintf(w, `{"spreadsheetId":"ss1","sheets":[{"properties":{"sheetId":%d,"title":%q}}]}`, f.sheetID, f.sheetTitle)

	default:
		http.NotFound(w, r)
	}
}

func newFakeService(t *testing.T, fake *fakeSheetsAPI) *sheets.Service {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return svc
}

func newTestWriter(t *testing.T, fake *fakeSheetsAPI) *Writer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	return &Writer{
		service: newFakeService(t, fake),
		config:  cfg,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testVORDocument() *model.VORDocument {
	return &model.VORDocument{
		Title: "ВОР тест",
		Positions: []model.VORPosition{
			{Num: 1, Name: "Кладка наружных стен", Unit: "м3", Volume: 214.5, Group: "structural.wall", Source: model.SourceVolume},
			{Num: 2, Name: "Устройство перекрытий", Unit: "м2", Volume: 1450, Group: "structural.slab", Source: model.SourceArea},
			{Num: 3, Name: "Монтаж витражей", Unit: "м2", Group: "architectural.curtain", Source: model.SourceMissing},
		},
		TotalCount: 3,
	}
}

func testReconciliationReport() *model.ReconciliationReport {
	bim := 209.1
	diff := 2.5
	badBim := 80.0
	badDiff := 25.0
	return &model.ReconciliationReport{
		Matches: []model.ReconciliationEntry{
			{Name: "Кладка стен", Unit: "м3", VORVolume: 214.5, BIMVolume: &bim, MatchedPattern: "Кладка стен", DiffPct: &diff, Status: model.StatusOK, MatchMethod: model.MatchKeyword},
		},
		RedFlags: []model.ReconciliationEntry{
			{Name: "Устройство полов", Unit: "м2", VORVolume: 100, BIMVolume: &badBim, MatchedPattern: "Полы", DiffPct: &badDiff, Status: model.StatusRedFlag, MatchMethod: model.MatchAI},
			{Name: "Прокладка кабеля", Unit: "м", VORVolume: 500, Status: model.StatusNoBIMMatch, MatchMethod: model.MatchNone},
		},
		MissingInVOR: []model.MissingEntry{
			{Group: "mep.duct", Label: "Воздуховоды", Unit: model.UnitArea, Quantity: 320.7},
		},
		Summary: model.ReconciliationStats{
			TotalVOR:       3,
			OK:             1,
			RedFlags:       1,
			NoMatch:        1,
			Missing:        1,
			TolerancePct:   3.0,
			PatternsLoaded: 25,
		},
	}
}

func TestWriter_WriteVOR(t *testing.T) {
	fake := &fakeSheetsAPI{sheetTitle: DefaultVORSheet, sheetID: 42}
	writer := newTestWriter(t, fake)

	result, err := writer.WriteVOR(context.Background(), testVORDocument(), service.SheetTarget{SpreadsheetID: "ss1"})
	require.NoError(t, err)

	assert.Equal(t, "ss1", result.SpreadsheetID)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/ss1/edit", result.URL)
	assert.Equal(t, DefaultVORSheet, result.SheetName)
	assert.Equal(t, 3, result.RowsWritten)

	// Tab existed, so no addSheet round trip
	assert.Equal(t, 1, fake.metaCalls)

	require.Len(t, fake.clearRanges, 1)
	assert.Equal(t, DefaultVORSheet+"!A:Z", fake.clearRanges[0])

	require.Len(t, fake.updates, 1)
	assert.Equal(t, DefaultVORSheet+"!A1", fake.updateRanges[0])

	values := fake.updates[0].Values
	require.Len(t, values, 4)
	assert.Equal(t, "Наименование работ", values[0][1])
	assert.Equal(t, "Источник", values[0][4])
	assert.Equal(t, "Кладка наружных стен", values[1][1])
	assert.Equal(t, 214.5, values[1][3])
	assert.Equal(t, "BIM:structural.wall", values[1][4])
	assert.Equal(t, "BIM:structural.slab", values[2][4])
	// Missing quantities export as empty cells, not zeros
	assert.Equal(t, "", values[3][3])
	assert.Equal(t, "missing", values[3][4])
}

func TestWriter_WriteVOR_Formatting(t *testing.T) {
	fake := &fakeSheetsAPI{sheetTitle: DefaultVORSheet, sheetID: 42}
	writer := newTestWriter(t, fake)

	_, err := writer.WriteVOR(context.Background(), testVORDocument(), service.SheetTarget{SpreadsheetID: "ss1"})
	require.NoError(t, err)

	require.Len(t, fake.batchBodies, 1)
	requests := fake.batchBodies[0].Requests
	// header + 3 stripes + number format + 5 widths + frozen header
	require.Len(t, requests, 11)

	header := requests[0].RepeatCell
	require.NotNil(t, header)
	assert.Equal(t, int64(42), header.Range.SheetId)
	assert.InDelta(t, float64(0x15)/255.0, header.Cell.UserEnteredFormat.BackgroundColor.Red, 1e-9)
	assert.InDelta(t, float64(0x65)/255.0, header.Cell.UserEnteredFormat.BackgroundColor.Green, 1e-9)
	assert.InDelta(t, float64(0xC0)/255.0, header.Cell.UserEnteredFormat.BackgroundColor.Blue, 1e-9)
	assert.True(t, header.Cell.UserEnteredFormat.TextFormat.Bold)
	assert.Equal(t, "CENTER", header.Cell.UserEnteredFormat.HorizontalAlignment)

	// Second stripe carries the alternating fill
	stripe := requests[2].RepeatCell
	require.NotNil(t, stripe)
	assert.InDelta(t, float64(0xE8)/255.0, stripe.Cell.UserEnteredFormat.BackgroundColor.Red, 1e-9)

	numFmt := requests[4].RepeatCell
	require.NotNil(t, numFmt)
	assert.Equal(t, "0.00", numFmt.Cell.UserEnteredFormat.NumberFormat.Pattern)
	assert.Equal(t, int64(3), numFmt.Range.StartColumnIndex)

	frozen := requests[len(requests)-1].UpdateSheetProperties
	require.NotNil(t, frozen)
	assert.Equal(t, int64(1), frozen.Properties.GridProperties.FrozenRowCount)
}

func TestWriter_WriteVOR_AddsMissingTab(t *testing.T) {
	fake := &fakeSheetsAPI{sheetTitle: "Другая вкладка", sheetID: 99}
	writer := newTestWriter(t, fake)

	_, err := writer.WriteVOR(context.Background(), testVORDocument(), service.SheetTarget{SpreadsheetID: "ss1"})
	require.NoError(t, err)

	// First batchUpdate adds the tab, second applies formatting
	require.Len(t, fake.batchBodies, 2)
	addSheet := fake.batchBodies[0].Requests[0].AddSheet
	require.NotNil(t, addSheet)
	assert.Equal(t, DefaultVORSheet, addSheet.Properties.Title)

	// Formatting targets the id the add reply returned
	header := fake.batchBodies[1].Requests[0].RepeatCell
	require.NotNil(t, header)
	assert.Equal(t, int64(99), header.Range.SheetId)
}

func TestWriter_WriteVOR_CreatesSpreadsheet(t *testing.T) {
	fake := &fakeSheetsAPI{sheetTitle: DefaultVORSheet, sheetID: 7}
	writer := newTestWriter(t, fake)

	result, err := writer.WriteVOR(context.Background(), testVORDocument(), service.SheetTarget{})
	require.NoError(t, err)

	assert.Equal(t, "new-ss", result.SpreadsheetID)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/new-ss/edit", result.URL)
	assert.Equal(t, 0, fake.metaCalls, "creating a spreadsheet needs no metadata lookup")
}

func TestWriter_WriteVOR_EmptyDocument(t *testing.T) {
	fake := &fakeSheetsAPI{sheetTitle: DefaultVORSheet, sheetID: 42}
	writer := newTestWriter(t, fake)

	_, err := writer.WriteVOR(context.Background(), &model.VORDocument{}, service.SheetTarget{SpreadsheetID: "ss1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, fake.updates)
}

func TestWriter_WriteReconciliation(t *testing.T) {
	fake := &fakeSheetsAPI{sheetTitle: DefaultReconciliationSheet, sheetID: 5}
	writer := newTestWriter(t, fake)

	result, err := writer.WriteReconciliation(context.Background(), testReconciliationReport(), service.SheetTarget{SpreadsheetID: "ss1"})
	require.NoError(t, err)

	assert.Equal(t, DefaultReconciliationSheet, result.SheetName)
	assert.Equal(t, 3, result.RowsWritten)

	require.Len(t, fake.updates, 1)
	values := fake.updates[0].Values

	// Verdict table
	assert.Equal(t, "Откл., %", values[0][5])
	assert.Equal(t, "Кладка стен", values[1][1])
	assert.Equal(t, "OK", values[1][6])
	assert.Equal(t, "keyword", values[1][8])
	assert.Equal(t, "Расхождение", values[2][6])
	// Absent model quantities export as empty cells
	assert.Equal(t, "", values[3][4])
	assert.Equal(t, "", values[3][5])
	assert.Equal(t, "Нет соответствия в BIM", values[3][6])

	// Missing section and run summary follow the table
	flat := make([]string, 0, len(values))
	for _, row := range values {
		if len(row) > 0 {
			flat = append(flat, fmt.Sprint(row[0]))
		}
	}
	assert.Contains(t, flat, "Отсутствует в ВОР (есть в модели)")
	assert.Contains(t, flat, "Итого")
}

func TestWriter_WriteReconciliation_StatusFills(t *testing.T) {
	fake := &fakeSheetsAPI{sheetTitle: DefaultReconciliationSheet, sheetID: 5}
	writer := newTestWriter(t, fake)

	_, err := writer.WriteReconciliation(context.Background(), testReconciliationReport(), service.SheetTarget{SpreadsheetID: "ss1"})
	require.NoError(t, err)

	require.Len(t, fake.batchBodies, 1)

	var fills []*sheets.Color
	for _, req := range fake.batchBodies[0].Requests[1:4] {
		require.NotNil(t, req.RepeatCell)
		fills = append(fills, req.RepeatCell.Cell.UserEnteredFormat.BackgroundColor)
	}
	// ok row green, red flag row red, no-match row yellow
	assert.InDelta(t, float64(0xCC)/255.0, fills[0].Red, 1e-9)
	assert.InDelta(t, float64(0xFF)/255.0, fills[0].Green, 1e-9)
	assert.InDelta(t, float64(0xFF)/255.0, fills[1].Red, 1e-9)
	assert.InDelta(t, float64(0xCC)/255.0, fills[1].Green, 1e-9)
	assert.InDelta(t, float64(0xFF)/255.0, fills[2].Red, 1e-9)
	assert.InDelta(t, float64(0x99)/255.0, fills[2].Blue, 1e-9)
}

func TestWriter_prepareReconciliationData(t *testing.T) {
	layout := prepareReconciliationData(testReconciliationReport())

	assert.Equal(t, 3, layout.entryRows)
	require.Len(t, layout.statusRows, 3)
	assert.Equal(t, statusRow{row: 1, status: model.StatusOK}, layout.statusRows[0])
	assert.Equal(t, statusRow{row: 2, status: model.StatusRedFlag}, layout.statusRows[1])
	assert.Equal(t, statusRow{row: 3, status: model.StatusNoBIMMatch}, layout.statusRows[2])

	require.Len(t, layout.sectionRows, 2)
	assert.Equal(t, "Отсутствует в ВОР (есть в модели)", layout.values[layout.sectionRows[0]][0])
	assert.Equal(t, "Итого", layout.values[layout.sectionRows[1]][0])

	// Missing table rows carry the group quantity
	missingRow := layout.values[layout.sectionRows[0]+2]
	assert.Equal(t, "mep.duct", missingRow[0])
	assert.Equal(t, 320.7, missingRow[3])

	// Entries number sequentially across both lists
	assert.Equal(t, 1, layout.values[1][0])
	assert.Equal(t, 3, layout.values[3][0])
}

func TestWriter_prepareReconciliationData_NoMissing(t *testing.T) {
	report := testReconciliationReport()
	report.MissingInVOR = nil

	layout := prepareReconciliationData(report)
	require.Len(t, layout.sectionRows, 1)
	assert.Equal(t, "Итого", layout.values[layout.sectionRows[0]][0])
}

func TestWriter_prepareVORData(t *testing.T) {
	values := prepareVORData(testVORDocument())

	require.Len(t, values, 4)
	assert.Equal(t, vorHeaders, values[0])
	assert.Equal(t, []any{1, "Кладка наружных стен", "м3", 214.5, "BIM:structural.wall"}, values[1])
	assert.Equal(t, []any{3, "Монтаж витражей", "м2", "", "missing"}, values[3])
}

func TestWriter_prepareVORData_NumbersUnnumbered(t *testing.T) {
	doc := &model.VORDocument{Positions: []model.VORPosition{
		{Name: "Первая", Unit: "м3", Volume: 1, Group: "g", Source: model.SourceVolume},
		{Name: "Вторая", Unit: "м3", Volume: 2, Group: "g", Source: model.SourceVolume},
	}}

	values := prepareVORData(doc)
	assert.Equal(t, 1, values[1][0])
	assert.Equal(t, 2, values[2][0])
}

func TestHexColor(t *testing.T) {
	c := hexColor("#1565C0")
	assert.InDelta(t, 21.0/255.0, c.Red, 1e-9)
	assert.InDelta(t, 101.0/255.0, c.Green, 1e-9)
	assert.InDelta(t, 192.0/255.0, c.Blue, 1e-9)
	assert.Equal(t, 1.0, c.Alpha)

	malformed := hexColor("nope")
	assert.Equal(t, &sheets.Color{Alpha: 1}, malformed)
}
