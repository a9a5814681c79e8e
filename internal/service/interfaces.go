// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/mbagrov/bimtally/internal/model"
)

// CachedMatch is one persisted reconciler match: a BoQ line name resolved to
// a semantic-group label under a specific label set.
type CachedMatch struct {
	CreatedAt  time.Time
	Name       string
	LabelsKey  string
	Label      string
	Method     string
	Confidence float64
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Match cache operations
	GetCachedMatch(ctx context.Context, name, labelsKey string) (*CachedMatch, error)
	SaveCachedMatch(ctx context.Context, match *CachedMatch) error
	PruneMatchCache(ctx context.Context, olderThan time.Time) (int64, error)

	// Run history operations
	SaveRun(ctx context.Context, run *model.RunRecord) error
	GetRun(ctx context.Context, id string) (*model.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// SheetTarget selects the destination spreadsheet and tab for an export.
// An empty SpreadsheetID means create a new spreadsheet.
type SheetTarget struct {
	SpreadsheetID string
	SheetName     string
	Title         string
}

// SheetExport reports where an export landed.
type SheetExport struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	URL           string `json:"url"`
	SheetName     string `json:"sheet_name"`
	RowsWritten   int    `json:"rows_written"`
}

// SheetWriter exports generated bills and reconciliation reports to a
// spreadsheet.
type SheetWriter interface {
	WriteVOR(ctx context.Context, doc *model.VORDocument, target SheetTarget) (*SheetExport, error)
	WriteReconciliation(ctx context.Context, report *model.ReconciliationReport, target SheetTarget) (*SheetExport, error)
}

// SheetReader imports a bill of quantities from a spreadsheet range.
type SheetReader interface {
	ReadBoQ(ctx context.Context, spreadsheetID, readRange string) (*model.BoQDocument, error)
}
