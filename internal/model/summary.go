package model

import "sort"

// BreakdownItem records one catalog entry's contribution to a semantic
// group. Source is empty for the host model and carries the link title for
// entries merged in from a linked model.
type BreakdownItem struct {
	Category string  `json:"category"`
	TypeName string  `json:"type"`
	Count    int     `json:"count"`
	VolumeM3 float64 `json:"volume_m3"`
	AreaM2   float64 `json:"area_m2"`
	LengthM  float64 `json:"length_m"`
	Source   string  `json:"source,omitempty"`
}

// LevelTotals holds the per-level aggregates attached by the level
// enrichment pass.
type LevelTotals struct {
	Count    int     `json:"count"`
	VolumeM3 float64 `json:"volume_m3"`
	AreaM2   float64 `json:"area_m2"`
	LengthM  float64 `json:"length_m"`
}

// GroupEntry is the running aggregate for one semantic group, keyed in the
// summary by (top, sub) from the owning pattern's group.
type GroupEntry struct {
	Label         string                 `json:"label"`
	PatternID     string                 `json:"pattern_id"`
	TotalCount    int                    `json:"total_count"`
	TotalVolumeM3 float64                `json:"total_volume_m3"`
	TotalAreaM2   float64                `json:"total_area_m2"`
	TotalLengthM  float64                `json:"total_length_m"`
	Breakdown     []BreakdownItem        `json:"breakdown"`
	Levels        map[string]LevelTotals `json:"levels,omitempty"`
}

// PrimaryQuantity picks the group total matching the given canonical unit.
func (g *GroupEntry) PrimaryQuantity(unit Unit) float64 {
	switch unit {
	case UnitArea:
		return g.TotalAreaM2
	case UnitLength:
		return g.TotalLengthM
	case UnitCount:
		return float64(g.TotalCount)
	default:
		return g.TotalVolumeM3
	}
}

// UnrecognizedItem is a catalog entry no pattern claimed. These are kept and
// reported rather than dropped.
type UnrecognizedItem struct {
	Category string  `json:"category"`
	TypeName string  `json:"type"`
	Count    int     `json:"count"`
	VolumeM3 float64 `json:"volume_m3"`
	Source   string  `json:"source,omitempty"`
}

// SummaryMeta carries bookkeeping counters alongside the semantic groups.
type SummaryMeta struct {
	PatternsLoaded    int    `json:"patterns_loaded"`
	UnrecognizedCount int    `json:"unrecognized_count"`
	Mode              string `json:"mode"`
	LinkedFilesFound  int    `json:"linked_files_found,omitempty"`
	LinkedFilesLoaded int    `json:"linked_files_loaded,omitempty"`
}

// Summary is the aggregator's output: semantic groups keyed by top-level
// domain then subgroup, plus the unrecognized remainder and metadata.
type Summary struct {
	Groups       map[string]map[string]*GroupEntry `json:"groups"`
	Unrecognized []UnrecognizedItem                `json:"unrecognized"`
	Meta         SummaryMeta                       `json:"meta"`
	LevelWarning string                            `json:"level_warning,omitempty"`
	LinksError   string                            `json:"links_error,omitempty"`
}

// NewSummary returns an empty summary ready for accumulation.
func NewSummary() *Summary {
	return &Summary{Groups: make(map[string]map[string]*GroupEntry)}
}

// Group returns the entry at (top, sub), or nil.
func (s *Summary) Group(top, sub string) *GroupEntry {
	if s == nil || s.Groups == nil {
		return nil
	}
	subs, ok := s.Groups[top]
	if !ok {
		return nil
	}
	return subs[sub]
}

// EnsureGroup returns the entry at (top, sub), creating it on first use.
func (s *Summary) EnsureGroup(top, sub string) *GroupEntry {
	subs, ok := s.Groups[top]
	if !ok {
		subs = make(map[string]*GroupEntry)
		s.Groups[top] = subs
	}
	entry, ok := subs[sub]
	if !ok {
		entry = &GroupEntry{}
		subs[sub] = entry
	}
	return entry
}

// GroupCount reports how many semantic groups the summary holds.
func (s *Summary) GroupCount() int {
	n := 0
	for _, subs := range s.Groups {
		n += len(subs)
	}
	return n
}

// Labels returns the distinct non-empty group labels present in the summary,
// sorted for deterministic downstream matching.
func (s *Summary) Labels() []string {
	seen := make(map[string]struct{})
	for _, subs := range s.Groups {
		for _, entry := range subs {
			if entry.Label != "" {
				seen[entry.Label] = struct{}{}
			}
		}
	}
	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
