package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/service"
)

// Writer implements the service.SheetWriter interface for Google Sheets.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a new Google Sheets writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Writer{
		config:  config,
		service: service,
		logger:  logger,
	}, nil
}

// WriteVOR exports a generated bill of quantities: one row per position,
// numbered, with the quantity provenance in the last column.
func (w *Writer) WriteVOR(ctx context.Context, doc *model.VORDocument, target service.SheetTarget) (*service.SheetExport, error) {
	if doc == nil || len(doc.Positions) == 0 {
		return nil, fmt.Errorf("%w: bill has no positions to export", common.ErrValidation)
	}

	sheetName := target.SheetName
	if sheetName == "" {
		sheetName = DefaultVORSheet
	}
	title := target.Title
	if title == "" {
		title = doc.Title
	}
	if title == "" {
		title = "ВОР " + w.today()
	}

	dest, err := w.resolveTarget(ctx, target.SpreadsheetID, sheetName, title)
	if err != nil {
		return nil, err
	}

	values := prepareVORData(doc)
	if err := w.export(ctx, dest, values, buildVORFormatRequests(dest.sheetID, len(doc.Positions))); err != nil {
		return nil, err
	}

	w.logger.Info("exported bill to Google Sheets",
		"spreadsheet_id", dest.spreadsheetID,
		"sheet", sheetName,
		"positions", len(doc.Positions))

	return &service.SheetExport{
		SpreadsheetID: dest.spreadsheetID,
		URL:           dest.url,
		SheetName:     sheetName,
		RowsWritten:   len(doc.Positions),
	}, nil
}

// WriteReconciliation exports a reconciliation report: the verdict table
// first, then the groups missing from the bill, then the run summary.
func (w *Writer) WriteReconciliation(ctx context.Context, report *model.ReconciliationReport, target service.SheetTarget) (*service.SheetExport, error) {
	if report == nil {
		return nil, fmt.Errorf("%w: no report to export", common.ErrValidation)
	}

	sheetName := target.SheetName
	if sheetName == "" {
		sheetName = DefaultReconciliationSheet
	}
	title := target.Title
	if title == "" {
		title = "Сверка ВОР " + w.today()
	}

	dest, err := w.resolveTarget(ctx, target.SpreadsheetID, sheetName, title)
	if err != nil {
		return nil, err
	}

	layout := prepareReconciliationData(report)
	if err := w.export(ctx, dest, layout.values, buildReconciliationFormatRequests(dest.sheetID, layout)); err != nil {
		return nil, err
	}

	w.logger.Info("exported reconciliation to Google Sheets",
		"spreadsheet_id", dest.spreadsheetID,
		"sheet", sheetName,
		"entries", layout.entryRows,
		"missing", len(report.MissingInVOR))

	return &service.SheetExport{
		SpreadsheetID: dest.spreadsheetID,
		URL:           dest.url,
		SheetName:     sheetName,
		RowsWritten:   layout.entryRows,
	}, nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	switch {
	case config.ServiceAccountPath != "":
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)

	case config.RefreshToken != "":
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = client.TokenSource(ctx, token)

	default:
		// Token file written by the interactive flow (`bimtally auth sheets`).
		token, err := LoadToken(config.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("unable to load saved token, run `bimtally auth sheets` first: %w", err)
		}

		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// sheetRef identifies one tab in one spreadsheet.
type sheetRef struct {
	spreadsheetID string
	url           string
	name          string
	sheetID       int64
}

// resolveTarget finds or creates the destination tab. A missing spreadsheet
// id falls back to the configured default; no id at all creates a new
// spreadsheet titled for today's export.
func (w *Writer) resolveTarget(ctx context.Context, spreadsheetID, sheetName, title string) (*sheetRef, error) {
	if spreadsheetID == "" {
		spreadsheetID = w.config.SpreadsheetID
	}
	if spreadsheetID == "" {
		return w.createSpreadsheet(ctx, title, sheetName)
	}

	sheetID, err := w.ensureSheet(ctx, spreadsheetID, sheetName)
	if err != nil {
		return nil, err
	}
	return &sheetRef{
		spreadsheetID: spreadsheetID,
		url:           spreadsheetURL(spreadsheetID),
		name:          sheetName,
		sheetID:       sheetID,
	}, nil
}

// createSpreadsheet creates a new spreadsheet with a single named tab.
func (w *Writer) createSpreadsheet(ctx context.Context, title, sheetName string) (*sheetRef, error) {
	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    title,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{
					Title: sheetName,
				},
			},
		},
	}

	created, err := w.service.Spreadsheets.Create(spreadsheet).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	ref := &sheetRef{
		spreadsheetID: created.SpreadsheetId,
		url:           created.SpreadsheetUrl,
		name:          sheetName,
	}
	if len(created.Sheets) > 0 && created.Sheets[0].Properties != nil {
		ref.sheetID = created.Sheets[0].Properties.SheetId
	}
	if ref.url == "" {
		ref.url = spreadsheetURL(ref.spreadsheetID)
	}
	return ref, nil
}

// ensureSheet returns the id of the named tab, adding the tab if the
// spreadsheet does not have it yet.
func (w *Writer) ensureSheet(ctx context.Context, spreadsheetID, sheetName string) (int64, error) {
	meta, err := w.service.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to access spreadsheet %s: %w", spreadsheetID, err)
	}

	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == sheetName {
			return sheet.Properties.SheetId, nil
		}
	}

	resp, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: sheetName},
				},
			},
		},
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to add sheet %q: %w", sheetName, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %q returned no properties", sheetName)
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// export runs the shared pipeline: clear the tab, write values in batches
// with retry, then apply formatting. Formatting failures are logged and
// swallowed; a plain report beats no report.
func (w *Writer) export(ctx context.Context, dest *sheetRef, values [][]any, formatRequests []*sheets.Request) error {
	if err := w.clearSheet(ctx, dest); err != nil {
		return fmt.Errorf("failed to clear sheet: %w", err)
	}

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err := common.WithRetry(ctx, func() error {
		return w.writeData(ctx, dest, values)
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting && len(formatRequests) > 0 {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, dest.spreadsheetID, formatRequests)
		}, retryOpts)
		if err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	return nil
}

// clearSheet clears all data from the destination tab.
func (w *Writer) clearSheet(ctx context.Context, dest *sheetRef) error {
	rangeStr := fmt.Sprintf("%s!A:Z", dest.name)
	_, err := w.service.Spreadsheets.Values.Clear(dest.spreadsheetID, rangeStr, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// writeData writes the values to the destination tab in batches.
func (w *Writer) writeData(ctx context.Context, dest *sheetRef, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := i + w.config.BatchSize
		if end > len(values) {
			end = len(values)
		}

		batch := values[i:end]
		valueRange := &sheets.ValueRange{
			Values: batch,
		}

		rangeStr := fmt.Sprintf("%s!A%d", dest.name, i+1)
		_, err := w.service.Spreadsheets.Values.Update(dest.spreadsheetID, rangeStr, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()

		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting sends the prepared formatting requests in one batch.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, requests []*sheets.Request) error {
	batchUpdate := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}
	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, batchUpdate).Context(ctx).Do()
	return err
}

// prepareVORData renders a bill as sheet rows: header plus one row per
// position. Positions with no quantity get an empty cell, not a zero.
func prepareVORData(doc *model.VORDocument) [][]any {
	values := make([][]any, 0, len(doc.Positions)+1)
	values = append(values, vorHeaders)

	for i, pos := range doc.Positions {
		num := pos.Num
		if num == 0 {
			num = i + 1
		}
		var volume any = pos.Volume
		if pos.Source == model.SourceMissing {
			volume = ""
		}
		values = append(values, []any{num, pos.Name, pos.Unit, volume, pos.SourceLabel()})
	}

	return values
}

// prepareReconciliationData renders a report as sheet rows and records the
// layout the formatting pass needs: the verdict table, the missing-in-bill
// section, and the run summary.
func prepareReconciliationData(report *model.ReconciliationReport) *reconciliationLayout {
	layout := &reconciliationLayout{}
	layout.values = append(layout.values, reconciliationHeaders)

	num := 0
	appendEntry := func(entry model.ReconciliationEntry) {
		num++
		var bim any = ""
		if entry.BIMVolume != nil {
			bim = *entry.BIMVolume
		}
		var diff any = ""
		if entry.DiffPct != nil {
			diff = *entry.DiffPct
		}
		layout.statusRows = append(layout.statusRows, statusRow{row: len(layout.values), status: entry.Status})
		layout.values = append(layout.values, []any{
			num, entry.Name, entry.Unit, entry.VORVolume, bim, diff,
			entry.Status.Label(), entry.MatchedPattern, string(entry.MatchMethod),
		})
	}

	for _, entry := range report.Matches {
		appendEntry(entry)
	}
	for _, entry := range report.RedFlags {
		appendEntry(entry)
	}
	layout.entryRows = num

	if len(report.MissingInVOR) > 0 {
		layout.values = append(layout.values, []any{})
		layout.sectionRows = append(layout.sectionRows, len(layout.values))
		layout.values = append(layout.values,
			[]any{"Отсутствует в ВОР (есть в модели)"},
			[]any{"Группа", "Метка", "Ед.изм.", "Объём"},
		)
		for _, missing := range report.MissingInVOR {
			layout.values = append(layout.values, []any{
				missing.Group, missing.Label, string(missing.Unit), missing.Quantity,
			})
		}
	}

	layout.values = append(layout.values, []any{})
	layout.sectionRows = append(layout.sectionRows, len(layout.values))
	layout.values = append(layout.values,
		[]any{"Итого"},
		[]any{"Позиций в ВОР", report.Summary.TotalVOR},
		[]any{"В допуске", report.Summary.OK},
		[]any{"Расхождений", report.Summary.RedFlags},
		[]any{"Без соответствия", report.Summary.NoMatch},
		[]any{"Отсутствует в ВОР", report.Summary.Missing},
		[]any{"Допуск, %", report.Summary.TolerancePct},
		[]any{"Загружено паттернов", report.Summary.PatternsLoaded},
	)

	return layout
}

// buildVORFormatRequests styles the bill tab: blue header, alternating row
// fills, 2-decimal quantities, fixed column widths, frozen header.
func buildVORFormatRequests(sheetID int64, numRows int) []*sheets.Request {
	requests := headerFormatRequests(sheetID, len(vorHeaders))

	// White stripes are written too so a re-export over an existing tab
	// resets stale fills: clearing values keeps cell formats.
	for i := 0; i < numRows; i++ {
		rowIdx := int64(i + 1)
		bg := colorWhite
		if i%2 == 1 {
			bg = colorAltRow
		}
		requests = append(requests, &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    rowIdx,
					EndRowIndex:      rowIdx + 1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(len(vorHeaders)),
				},
				Cell:   &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{BackgroundColor: bg}},
				Fields: "userEnteredFormat.backgroundColor",
			},
		})
	}

	if numRows > 0 {
		requests = append(requests, numberFormatRequest(sheetID, 1, int64(numRows+1), 3, 4))
	}

	requests = append(requests, columnWidthRequests(sheetID, vorColumnWidths)...)
	requests = append(requests, frozenHeaderRequest(sheetID))
	return requests
}

// buildReconciliationFormatRequests styles the reconciliation tab: blue
// header, verdict fills on the entry rows, bold section titles, 2-decimal
// quantity columns, fixed widths, frozen header.
func buildReconciliationFormatRequests(sheetID int64, layout *reconciliationLayout) []*sheets.Request {
	requests := headerFormatRequests(sheetID, len(reconciliationHeaders))

	// Verdict fills instead of alternating stripes: the color is the signal.
	for _, sr := range layout.statusRows {
		fill, ok := statusFills[sr.status]
		if !ok {
			fill = colorWhite
		}
		row := int64(sr.row)
		requests = append(requests, &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    row,
					EndRowIndex:      row + 1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(len(reconciliationHeaders)),
				},
				Cell:   &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{BackgroundColor: fill}},
				Fields: "userEnteredFormat.backgroundColor",
			},
		})
	}

	if layout.entryRows > 0 {
		requests = append(requests, numberFormatRequest(sheetID, 1, int64(layout.entryRows+1), 3, 6))
	}

	for _, row := range layout.sectionRows {
		r := int64(row)
		requests = append(requests, &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    r,
					EndRowIndex:      r + 1,
					StartColumnIndex: 0,
					EndColumnIndex:   1,
				},
				Cell:   &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}}},
				Fields: "userEnteredFormat.textFormat",
			},
		})
	}

	requests = append(requests, columnWidthRequests(sheetID, reconciliationColumnWidths)...)
	requests = append(requests, frozenHeaderRequest(sheetID))
	return requests
}

// headerFormatRequests styles row 0 as a bold white-on-blue centered header.
func headerFormatRequests(sheetID int64, columns int) []*sheets.Request {
	return []*sheets.Request{
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      1,
					StartColumnIndex: 0,
					EndColumnIndex:   int64(columns),
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						BackgroundColor:     colorHeaderBg,
						TextFormat:          &sheets.TextFormat{Bold: true, ForegroundColor: colorHeaderFg},
						HorizontalAlignment: "CENTER",
					},
				},
				Fields: "userEnteredFormat(backgroundColor,textFormat,horizontalAlignment)",
			},
		},
	}
}

// numberFormatRequest applies a 2-decimal number format to a column range.
func numberFormatRequest(sheetID, startRow, endRow, startCol, endCol int64) *sheets.Request {
	return &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    startRow,
				EndRowIndex:      endRow,
				StartColumnIndex: startCol,
				EndColumnIndex:   endCol,
			},
			Cell: &sheets.CellData{
				UserEnteredFormat: &sheets.CellFormat{
					NumberFormat: &sheets.NumberFormat{Type: "NUMBER", Pattern: "0.00"},
				},
			},
			Fields: "userEnteredFormat.numberFormat",
		},
	}
}

// columnWidthRequests pins each column to its configured pixel width.
func columnWidthRequests(sheetID int64, widths []int64) []*sheets.Request {
	requests := make([]*sheets.Request, 0, len(widths))
	for i, width := range widths {
		requests = append(requests, &sheets.Request{
			UpdateDimensionProperties: &sheets.UpdateDimensionPropertiesRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: int64(i),
					EndIndex:   int64(i + 1),
				},
				Properties: &sheets.DimensionProperties{PixelSize: width},
				Fields:     "pixelSize",
			},
		})
	}
	return requests
}

// frozenHeaderRequest freezes the header row.
func frozenHeaderRequest(sheetID int64) *sheets.Request {
	return &sheets.Request{
		UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{
				SheetId:        sheetID,
				GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
			},
			Fields: "gridProperties.frozenRowCount",
		},
	}
}

func (w *Writer) today() string {
	loc, err := time.LoadLocation(w.config.TimeZone)
	if err != nil {
		loc = time.Local
	}
	return time.Now().In(loc).Format("02.01.2006")
}

func spreadsheetURL(spreadsheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + spreadsheetID + "/edit"
}
