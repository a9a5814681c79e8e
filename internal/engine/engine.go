// Package engine wires the pattern table, the host scanner, the reconciler
// and the export adapters behind the high-level operations both outer
// surfaces (CLI and MCP tool server) call. Every collaborator except the
// pattern table is optional: operations that need an absent one fail with a
// configuration error instead of panicking, so a partially configured
// installation still serves the rest of the tool set.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mbagrov/bimtally/internal/audit"
	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/excel"
	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/pattern"
	"github.com/mbagrov/bimtally/internal/query"
	"github.com/mbagrov/bimtally/internal/reconcile"
	"github.com/mbagrov/bimtally/internal/revit"
	"github.com/mbagrov/bimtally/internal/service"
)

// Config holds the engine's own settings; collaborators come separately
// through Dependencies.
type Config struct {
	// PatternsPath points at the pattern JSON. Empty loads the compiled-in
	// defaults.
	PatternsPath string
	// TolerancePct is the default red-flag threshold for reconciliations
	// that do not supply one.
	TolerancePct float64
	// ExportDir is where generated .xlsx files land when the caller gives
	// no path.
	ExportDir string
}

// Dependencies carries the engine's collaborators. Executor is needed for
// every operation that touches the model; the rest may be nil.
type Dependencies struct {
	Executor    revit.Executor
	Clash       ClashService
	AI          AIService
	Embedder    reconcile.Embedder
	Storage     service.Storage
	SheetWriter service.SheetWriter
	SheetReader service.SheetReader
	Logger      *slog.Logger
}

// Engine is the orchestrator: one instance per process, safe for the
// sequential call patterns of its two surfaces.
type Engine struct {
	cfg        Config
	store      *pattern.Store
	patterns   []model.Pattern
	problems   []string
	matcher    *pattern.Matcher
	scanner    *revit.Scanner
	auditor    *audit.Auditor
	parser     *query.Parser
	reconciler *reconcile.Reconciler
	exporter   *excel.Exporter
	deps       Dependencies
	logger     *slog.Logger
}

// New loads the pattern table and assembles the engine. Pattern loading
// fails soft: a missing or broken file leaves an empty table, which is a
// reportable condition on every classification result, not a startup error.
func New(cfg Config, deps Dependencies) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TolerancePct <= 0 {
		cfg.TolerancePct = reconcile.DefaultTolerancePct
	}

	store := pattern.Load(cfg.PatternsPath)
	valid, problems := pattern.Validate(store.Patterns())
	if len(problems) > 0 {
		logger.Warn("pattern table has problems", "dropped", len(problems), "source", store.Source())
	}

	recOpts := reconcile.Options{Storage: deps.Storage}
	if deps.AI != nil {
		recOpts.AI = deps.AI
	}
	if deps.Embedder != nil {
		recOpts.Embedder = deps.Embedder
	}

	e := &Engine{
		cfg:        cfg,
		store:      store,
		patterns:   valid,
		problems:   problems,
		matcher:    pattern.NewMatcher(valid),
		reconciler: reconcile.New(valid, recOpts),
		exporter:   excel.NewExporter(cfg.ExportDir, logger),
		deps:       deps,
		logger:     logger,
	}

	var ai query.Extractor
	if deps.AI != nil {
		ai = deps.AI
	}
	e.parser = query.NewParser(ai, valid, logger)

	if deps.Executor != nil {
		e.scanner = revit.NewScanner(deps.Executor, logger)
		e.auditor = audit.NewAuditor(deps.Executor, logger)
	}
	return e
}

// Patterns returns the validated pattern table.
func (e *Engine) Patterns() []model.Pattern {
	return e.patterns
}

// PatternsInfo reports where the table came from and what validation
// dropped.
type PatternsInfo struct {
	Source   string   `json:"source"`
	Loaded   int      `json:"loaded"`
	Problems []string `json:"problems,omitempty"`
}

// PatternsInfo describes the loaded pattern table.
func (e *Engine) PatternsInfo() PatternsInfo {
	return PatternsInfo{
		Source:   e.store.Source(),
		Loaded:   len(e.patterns),
		Problems: e.problems,
	}
}

// TolerancePct returns the configured default reconciliation tolerance.
func (e *Engine) TolerancePct() float64 {
	return e.cfg.TolerancePct
}

// ExecuteCode submits raw snippet source to the host and returns its
// captured output.
func (e *Engine) ExecuteCode(ctx context.Context, code, description string) (string, error) {
	if e.deps.Executor == nil {
		return "", e.hostNotConfigured()
	}
	return e.deps.Executor.ExecuteCode(ctx, code, description)
}

// Audit runs the requested modeling-quality checks.
func (e *Engine) Audit(ctx context.Context, checks []string) (*audit.Report, error) {
	if e.auditor == nil {
		return nil, e.hostNotConfigured()
	}
	return e.auditor.Run(ctx, checks)
}

func (e *Engine) hostNotConfigured() error {
	return fmt.Errorf("%w: revit host is not configured", common.ErrMissingConfig)
}

func (e *Engine) requireScanner() (*revit.Scanner, error) {
	if e.scanner == nil {
		return nil, e.hostNotConfigured()
	}
	return e.scanner, nil
}

func (e *Engine) requireClash() (ClashService, error) {
	if e.deps.Clash == nil {
		return nil, fmt.Errorf("%w: navisworks service is not configured", common.ErrMissingConfig)
	}
	return e.deps.Clash, nil
}
