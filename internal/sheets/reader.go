package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/sheets/v4"

	"github.com/mbagrov/bimtally/internal/boq"
	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
)

// DefaultReadRange bounds the import when the caller gives no range.
const DefaultReadRange = "A1:Z1000"

// Reader imports bills of quantities from Google Sheets. It implements the
// service.SheetReader interface.
type Reader struct {
	service *sheets.Service
	logger  *slog.Logger
}

// NewReader creates a new Google Sheets reader.
func NewReader(ctx context.Context, config Config, logger *slog.Logger) (*Reader, error) {
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

	return &Reader{service: service, logger: logger}, nil
}

// ReadBoQ fetches the range and parses it as a bill of quantities with the
// shared header scan. Formatted cell values are requested on purpose: bills
// carry locale separators ("1 450,00") and the parser normalizes those.
func (r *Reader) ReadBoQ(ctx context.Context, spreadsheetID, readRange string) (*model.BoQDocument, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("%w: spreadsheet id is required", common.ErrValidation)
	}
	if readRange == "" {
		readRange = DefaultReadRange
	}

	resp, err := r.service.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to read range %s from spreadsheet %s: %w", readRange, spreadsheetID, err)
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = fmt.Sprint(cell)
		}
		rows[i] = cells
	}

	doc, err := boq.ParseTable(rows, "sheets:"+spreadsheetID)
	if err != nil {
		return nil, err
	}

	r.logger.Info("imported bill from spreadsheet",
		"spreadsheet_id", spreadsheetID,
		"range", readRange,
		"lines", len(doc.Lines),
		"warnings", len(doc.Warnings))

	return doc, nil
}
