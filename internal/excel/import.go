package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/mbagrov/bimtally/internal/boq"
	"github.com/mbagrov/bimtally/internal/model"
)

// ReadBoQ loads a bill of quantities from the first worksheet of an xlsx
// file, using the shared header scan to find the table.
func ReadBoQ(path string) (*model.BoQDocument, error) {
	return ReadBoQSheet(path, "")
}

// ReadBoQSheet loads a bill from a named worksheet, or the first worksheet
// when name is empty.
func ReadBoQSheet(path, sheetName string) (*model.BoQDocument, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}
	return boq.ParseTable(rows, path)
}
