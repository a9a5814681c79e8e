package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/mbagrov/bimtally/internal/config"
	"github.com/mbagrov/bimtally/internal/embedding"
	"github.com/mbagrov/bimtally/internal/engine"
	"github.com/mbagrov/bimtally/internal/llm"
	"github.com/mbagrov/bimtally/internal/navisworks"
	"github.com/mbagrov/bimtally/internal/revit"
	"github.com/mbagrov/bimtally/internal/service"
	"github.com/mbagrov/bimtally/internal/sheets"
	"github.com/mbagrov/bimtally/internal/storage"
)

// buildEngine assembles the engine from resolved settings. Optional
// collaborators (AI, embeddings, storage) degrade to nil with a warning;
// Google Sheets access is built only when a command asks for it, and its
// failure is then fatal. The returned cleanup closes whatever got opened.
func buildEngine(ctx context.Context, needSheets bool) (*engine.Engine, func(), error) {
	settings := config.Load()
	logger := slog.Default()

	deps := engine.Dependencies{
		Executor: revit.NewClient(revit.Config{Host: settings.RevitHost, Port: settings.RevitPort}, logger),
		Clash:    navisworks.NewClient(navisworks.Config{Host: settings.NavisworksHost, Port: settings.NavisworksPort}, logger),
		Logger:   logger,
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if settings.AI.Configured() {
		matcher, err := llm.NewMatcher(settings.AI, logger)
		if err != nil {
			logger.Warn("AI match service unavailable", "error", err)
		} else {
			deps.AI = matcher
			cleanups = append(cleanups, func() { _ = matcher.Close() })
		}
	}

	if settings.EmbeddingModel != "" {
		embedder, err := embedding.NewOllamaEmbedder(settings.EmbeddingHost, settings.EmbeddingModel)
		if err != nil {
			logger.Warn("embedding service unavailable", "error", err)
		} else {
			deps.Embedder = embedder
		}
	}

	if store, err := initStorage(ctx, settings.DatabasePath); err != nil {
		logger.Warn("run history storage unavailable", "error", err)
	} else {
		deps.Storage = store
		cleanups = append(cleanups, func() { _ = store.Close() })
	}

	if needSheets {
		writer, reader, err := initSheets(ctx)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.SheetWriter = writer
		deps.SheetReader = reader
	}

	eng := engine.New(engine.Config{
		PatternsPath: settings.PatternsPath,
		TolerancePct: settings.TolerancePct,
		ExportDir:    settings.ExportDir,
	}, deps)
	return eng, cleanup, nil
}

// initStorage opens the SQLite cache and run history, applying migrations.
func initStorage(ctx context.Context, dbPath string) (service.Storage, error) {
	if dbPath == "" {
		dbPath = config.ExpandPath("~/.local/share/bimtally/bimtally.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func initSheets(ctx context.Context) (service.SheetWriter, service.SheetReader, error) {
	cfg, err := config.LoadSheetsConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("google sheets access is not configured: %w", err)
	}

	writer, err := sheets.NewWriter(ctx, *cfg, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create sheets writer: %w", err)
	}
	reader, err := sheets.NewReader(ctx, *cfg, slog.Default())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create sheets reader: %w", err)
	}
	return writer, reader, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// newSpinner shows an indeterminate spinner on stderr while a model scan or
// an external call runs.
func newSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription(description),
		progressbar.OptionClearOnFinish(),
	)
}

func finishSpinner(bar *progressbar.ProgressBar) {
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
}
