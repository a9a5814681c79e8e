package model

import (
	"sort"
	"strings"
)

// CatalogEntry is one raw element-type aggregate scanned from the model:
// every element of one type within one category, with pre-converted metric
// quantities.
type CatalogEntry struct {
	Category     string         `json:"category,omitempty"`
	TypeName     string         `json:"name"`
	Count        int            `json:"count"`
	VolumeM3     float64        `json:"volume_m3"`
	AreaM2       float64        `json:"area_m2"`
	LengthM      float64        `json:"length_m"`
	TypeID       int64          `json:"type_id,omitempty"`
	SampleParams map[string]any `json:"sample_params,omitempty"`
}

// CategoryTotals is the per-category rollup the scanner emits alongside the
// per-type list.
type CategoryTotals struct {
	TotalCount    int            `json:"total_count"`
	TotalVolumeM3 float64        `json:"total_volume_m3"`
	TotalAreaM2   float64        `json:"total_area_m2"`
	TotalLengthM  float64        `json:"total_length_m"`
	Types         []CatalogEntry `json:"types"`
	Error         string         `json:"error,omitempty"`
}

// Catalog maps a source category name to its scanned type aggregates.
// Failed scan batches appear under ErrorBatchPrefix-keyed entries carrying
// only an Error string; consumers skip those keys when aggregating.
type Catalog map[string]CategoryTotals

// ErrorBatchPrefix marks catalog keys that record a failed scan batch
// instead of real category data.
const ErrorBatchPrefix = "_error_batch_"

// Entries flattens the catalog into input for the aggregator, tagging each
// entry with its category and skipping error markers. Categories are walked
// in sorted order so repeated runs accumulate identically.
func (c Catalog) Entries() []CatalogEntry {
	keys := make([]string, 0, len(c))
	for category := range c {
		if strings.HasPrefix(category, ErrorBatchPrefix) {
			continue
		}
		keys = append(keys, category)
	}
	sort.Strings(keys)

	var out []CatalogEntry
	for _, category := range keys {
		for _, e := range c[category].Types {
			e.Category = category
			out = append(out, e)
		}
	}
	return out
}
