package engine

import (
	"context"

	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/query"
	"github.com/mbagrov/bimtally/internal/revit"
)

// QueryResult pairs a natural-language interpretation with the elements it
// found.
type QueryResult struct {
	Interpretation *query.Interpretation `json:"interpretation"`
	Result         *revit.SearchResult   `json:"result"`
}

// Query interprets free text into a search spec and executes it.
func (e *Engine) Query(ctx context.Context, text string, colorize bool, limit int) (*QueryResult, error) {
	scanner, err := e.requireScanner()
	if err != nil {
		return nil, err
	}

	interp, err := e.parser.Parse(ctx, text)
	if err != nil {
		return nil, err
	}
	spec := interp.Spec
	if limit > 0 {
		spec.Limit = limit
	}
	spec.Colorize = colorize

	result, err := scanner.Search(ctx, spec)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Interpretation: interp, Result: result}, nil
}

// Search executes a structured element search.
func (e *Engine) Search(ctx context.Context, spec model.QuerySpec) (*revit.SearchResult, error) {
	scanner, err := e.requireScanner()
	if err != nil {
		return nil, err
	}
	return scanner.Search(ctx, spec)
}

// Inspect dumps one element's parameters.
func (e *Engine) Inspect(ctx context.Context, elementID int64, maxParams int) (*revit.ElementInfo, error) {
	scanner, err := e.requireScanner()
	if err != nil {
		return nil, err
	}
	return scanner.InspectElement(ctx, elementID, maxParams)
}

// Volumes reports per-type or per-level quantity totals for the given
// categories.
func (e *Engine) Volumes(ctx context.Context, categories []string, groupBy string) (map[string][]revit.VolumeGroup, error) {
	scanner, err := e.requireScanner()
	if err != nil {
		return nil, err
	}
	return scanner.Volumes(ctx, categories, groupBy)
}
