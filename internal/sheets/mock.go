package sheets

import (
	"context"
	"sync"

	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/service"
)

// MockWriter is a mock implementation of service.SheetWriter for testing.
type MockWriter struct {
	WriteVORFunc            func(ctx context.Context, doc *model.VORDocument, target service.SheetTarget) (*service.SheetExport, error)
	WriteReconciliationFunc func(ctx context.Context, report *model.ReconciliationReport, target service.SheetTarget) (*service.SheetExport, error)
	LastVOR                 *model.VORDocument
	LastReport              *model.ReconciliationReport
	VORCalls                int
	ReconciliationCalls     int
	mu                      sync.Mutex
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// WriteVOR implements the service.SheetWriter interface.
func (m *MockWriter) WriteVOR(ctx context.Context, doc *model.VORDocument, target service.SheetTarget) (*service.SheetExport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.VORCalls++
	m.LastVOR = doc

	if m.WriteVORFunc != nil {
		return m.WriteVORFunc(ctx, doc, target)
	}
	return m.defaultExport(target, DefaultVORSheet, len(doc.Positions)), nil
}

// WriteReconciliation implements the service.SheetWriter interface.
func (m *MockWriter) WriteReconciliation(ctx context.Context, report *model.ReconciliationReport, target service.SheetTarget) (*service.SheetExport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReconciliationCalls++
	m.LastReport = report

	if m.WriteReconciliationFunc != nil {
		return m.WriteReconciliationFunc(ctx, report, target)
	}
	return m.defaultExport(target, DefaultReconciliationSheet, len(report.Matches)+len(report.RedFlags)), nil
}

// Reset clears all recorded calls.
func (m *MockWriter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.VORCalls = 0
	m.ReconciliationCalls = 0
	m.LastVOR = nil
	m.LastReport = nil
}

// SetError configures the mock to fail both write methods.
func (m *MockWriter) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteVORFunc = func(_ context.Context, _ *model.VORDocument, _ service.SheetTarget) (*service.SheetExport, error) {
		return nil, err
	}
	m.WriteReconciliationFunc = func(_ context.Context, _ *model.ReconciliationReport, _ service.SheetTarget) (*service.SheetExport, error) {
		return nil, err
	}
}

func (m *MockWriter) defaultExport(target service.SheetTarget, defaultSheet string, rows int) *service.SheetExport {
	spreadsheetID := target.SpreadsheetID
	if spreadsheetID == "" {
		spreadsheetID = "mock-spreadsheet"
	}
	sheetName := target.SheetName
	if sheetName == "" {
		sheetName = defaultSheet
	}
	return &service.SheetExport{
		SpreadsheetID: spreadsheetID,
		URL:           spreadsheetURL(spreadsheetID),
		SheetName:     sheetName,
		RowsWritten:   rows,
	}
}

// MockReader is a mock implementation of service.SheetReader for testing.
type MockReader struct {
	ReadBoQFunc func(ctx context.Context, spreadsheetID, readRange string) (*model.BoQDocument, error)
	ReadCalls   int
	mu          sync.Mutex
}

// ReadBoQ implements the service.SheetReader interface.
func (m *MockReader) ReadBoQ(ctx context.Context, spreadsheetID, readRange string) (*model.BoQDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReadCalls++
	if m.ReadBoQFunc != nil {
		return m.ReadBoQFunc(ctx, spreadsheetID, readRange)
	}
	return &model.BoQDocument{Source: "sheets:" + spreadsheetID}, nil
}
