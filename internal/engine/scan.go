package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/revit"
	"github.com/mbagrov/bimtally/internal/summary"
)

// SummaryOptions controls a model summary build.
type SummaryOptions struct {
	// Mode filters the retained domains: full, structural, mep or
	// architectural. Empty means full.
	Mode string
	// Categories limits the scan; empty means the whole registry.
	Categories []string
	// IncludeLinks merges summaries of loaded linked models into the host
	// summary.
	IncludeLinks bool
	// ByLevel attaches per-level aggregates to every semantic group.
	ByLevel bool
}

// CatalogOptions controls a raw catalog scan.
type CatalogOptions struct {
	Categories    []string
	IncludeParams bool
	IncludeLinks  bool
}

// CatalogResult is a scanned catalog plus scan bookkeeping.
type CatalogResult struct {
	Catalog model.Catalog `json:"catalog"`
	Meta    CatalogMeta   `json:"meta"`
}

// CatalogMeta counts what a catalog scan covered.
type CatalogMeta struct {
	Categories        int    `json:"categories"`
	FailedBatches     int    `json:"failed_batches"`
	LinkedFilesFound  int    `json:"linked_files_found,omitempty"`
	LinkedFilesLoaded int    `json:"linked_files_loaded,omitempty"`
	LinksError        string `json:"links_error,omitempty"`
}

// BuildSummary scans the model and aggregates the catalog into a semantic
// summary. Linked-model and level failures degrade to warning fields on the
// summary; only a completely impossible scan is an error.
func (e *Engine) BuildSummary(ctx context.Context, opts SummaryOptions) (*model.Summary, error) {
	scanner, err := e.requireScanner()
	if err != nil {
		return nil, err
	}
	mode, err := resolveMode(opts.Mode)
	if err != nil {
		return nil, err
	}

	catalog, err := scanner.ScanCategories(ctx, revit.ScanOptions{Categories: opts.Categories})
	if err != nil {
		return nil, err
	}
	sum := summary.Build(catalog, e.matcher, mode)

	if opts.IncludeLinks {
		e.mergeLinkedSummaries(ctx, sum, scanner, opts, mode)
	}

	if opts.ByLevel {
		levelCatalogs, err := scanner.ScanLevels(ctx, opts.Categories)
		if err != nil {
			sum.LevelWarning = fmt.Sprintf("level data unavailable: %v", err)
			e.logger.Warn("level enrichment failed", "error", err)
		} else {
			summary.ApplyLevels(sum, levelCatalogs, e.matcher)
		}
	}
	return sum, nil
}

// mergeLinkedSummaries scans every loaded link and merges its summary into
// the host summary, tagging contributions with the link title. Discovery or
// per-link failures are recorded on the summary and never abort the build.
func (e *Engine) mergeLinkedSummaries(ctx context.Context, sum *model.Summary, scanner *revit.Scanner, opts SummaryOptions, mode summary.Mode) {
	links, err := scanner.ListLinks(ctx)
	if err != nil {
		sum.LinksError = fmt.Sprintf("link discovery failed: %v", err)
		e.logger.Warn("link discovery failed", "error", err)
		return
	}

	sum.Meta.LinkedFilesFound = len(links)
	var failures []string
	for _, link := range links {
		if !link.Loaded {
			continue
		}
		linkCatalog, err := scanner.ScanLink(ctx, link.Name, opts.Categories)
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", link.Name, err))
			e.logger.Warn("linked model scan failed", "link", link.Name, "error", err)
			continue
		}
		linkSummary := summary.Build(linkCatalog, e.matcher, mode)
		summary.TagSource(linkSummary, link.Name)
		summary.Merge(sum, linkSummary)
		sum.Meta.LinkedFilesLoaded++
	}
	if len(failures) > 0 {
		sum.LinksError = strings.Join(failures, "; ")
	}
}

// Catalog scans the raw per-type catalog without classification.
func (e *Engine) Catalog(ctx context.Context, opts CatalogOptions) (*CatalogResult, error) {
	scanner, err := e.requireScanner()
	if err != nil {
		return nil, err
	}

	catalog, err := scanner.ScanCategories(ctx, revit.ScanOptions{
		Categories:    opts.Categories,
		IncludeParams: opts.IncludeParams,
	})
	if err != nil {
		return nil, err
	}

	result := &CatalogResult{Catalog: catalog}
	if opts.IncludeLinks {
		links, err := scanner.ListLinks(ctx)
		if err != nil {
			result.Meta.LinksError = fmt.Sprintf("link discovery failed: %v", err)
		} else {
			result.Meta.LinkedFilesFound = len(links)
			var failures []string
			for _, link := range links {
				if !link.Loaded {
					continue
				}
				linkCatalog, err := scanner.ScanLink(ctx, link.Name, opts.Categories)
				if err != nil {
					failures = append(failures, fmt.Sprintf("%s: %v", link.Name, err))
					continue
				}
				for category, totals := range linkCatalog {
					catalog[link.Name+":"+category] = totals
				}
				result.Meta.LinkedFilesLoaded++
			}
			if len(failures) > 0 {
				result.Meta.LinksError = strings.Join(failures, "; ")
			}
		}
	}

	for key := range catalog {
		if strings.HasPrefix(key, model.ErrorBatchPrefix) {
			result.Meta.FailedBatches++
		} else {
			result.Meta.Categories++
		}
	}
	return result, nil
}

// Links lists the link instances in the host document.
func (e *Engine) Links(ctx context.Context) ([]revit.LinkInfo, error) {
	scanner, err := e.requireScanner()
	if err != nil {
		return nil, err
	}
	return scanner.ListLinks(ctx)
}

func resolveMode(mode string) (summary.Mode, error) {
	if mode == "" {
		return summary.ModeFull, nil
	}
	m := summary.Mode(strings.ToLower(strings.TrimSpace(mode)))
	if !summary.ValidMode(m) {
		return "", fmt.Errorf("%w: unknown summary mode %q (use full, structural, mep or architectural)", common.ErrValidation, mode)
	}
	return m, nil
}
