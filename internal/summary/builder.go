// Package summary aggregates a scanned model catalog into hierarchical
// semantic quantity summaries.
package summary

import (
	"math"
	"sort"

	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/pattern"
)

// Mode restricts which top-level domains a built summary retains.
type Mode string

const (
	// ModeFull keeps every group.
	ModeFull Mode = "full"
	// ModeStructural keeps structural groups only.
	ModeStructural Mode = "structural"
	// ModeMEP keeps mechanical/electrical/plumbing groups only.
	ModeMEP Mode = "mep"
	// ModeArchitectural keeps architectural and generic groups.
	ModeArchitectural Mode = "architectural"
)

// modeTopKeys maps a restricted mode to the top-level keys it retains.
// Generic models ride with architectural: they are usually fit-out content
// that an architectural take-off wants to see.
var modeTopKeys = map[Mode][]string{
	ModeStructural:    {"structural"},
	ModeMEP:           {"mep"},
	ModeArchitectural: {"architectural", "generic"},
}

// ValidMode reports whether m names a known summary mode.
func ValidMode(m Mode) bool {
	if m == ModeFull {
		return true
	}
	_, ok := modeTopKeys[m]
	return ok
}

// Build classifies every catalog entry against the matcher's pattern set
// (restricted to the entry's category) and accumulates per-group totals.
// Unclassified entries land in the unrecognized list, never on the floor.
// The mode filter is applied after accumulation, so a full build is always
// a superset of any restricted build. Build has no side effects and is
// safely re-invokable.
func Build(catalog model.Catalog, matcher *pattern.Matcher, mode Mode) *model.Summary {
	s := model.NewSummary()
	s.Meta.PatternsLoaded = len(matcher.Patterns())
	s.Meta.Mode = string(mode)

	for _, entry := range catalog.Entries() {
		p, ok := matcher.Match(entry.TypeName, entry.Category)
		if !ok {
			s.Unrecognized = append(s.Unrecognized, model.UnrecognizedItem{
				Category: entry.Category,
				TypeName: entry.TypeName,
				Count:    entry.Count,
				VolumeM3: entry.VolumeM3,
			})
			continue
		}
		accumulate(s, p, entry)
	}

	sortBreakdowns(s)
	sort.SliceStable(s.Unrecognized, func(i, j int) bool {
		return s.Unrecognized[i].Count > s.Unrecognized[j].Count
	})
	s.Meta.UnrecognizedCount = len(s.Unrecognized)

	applyMode(s, mode)
	return s
}

func accumulate(s *model.Summary, p *model.Pattern, entry model.CatalogEntry) {
	top, sub := p.GroupKeys()
	g := s.EnsureGroup(top, sub)

	if g.Label == "" {
		g.Label = p.DisplayLabel()
	}
	if g.PatternID == "" {
		g.PatternID = p.ID
	}

	g.TotalCount += entry.Count
	// Round after every addition to bound floating point drift across
	// thousands of accumulations.
	g.TotalVolumeM3 = Round3(g.TotalVolumeM3 + entry.VolumeM3)
	g.TotalAreaM2 = Round3(g.TotalAreaM2 + entry.AreaM2)
	g.TotalLengthM = Round3(g.TotalLengthM + entry.LengthM)

	g.Breakdown = append(g.Breakdown, model.BreakdownItem{
		Category: entry.Category,
		TypeName: entry.TypeName,
		Count:    entry.Count,
		VolumeM3: entry.VolumeM3,
		AreaM2:   entry.AreaM2,
		LengthM:  entry.LengthM,
	})
}

func sortBreakdowns(s *model.Summary) {
	for _, subs := range s.Groups {
		for _, g := range subs {
			sort.SliceStable(g.Breakdown, func(i, j int) bool {
				return g.Breakdown[i].Count > g.Breakdown[j].Count
			})
		}
	}
}

func applyMode(s *model.Summary, mode Mode) {
	keep, restricted := modeTopKeys[mode]
	if !restricted {
		return
	}
	allowed := make(map[string]bool, len(keep))
	for _, k := range keep {
		allowed[k] = true
	}
	for top := range s.Groups {
		if !allowed[top] {
			delete(s.Groups, top)
		}
	}
}

// Round3 rounds to three decimal places, the fixed precision used for all
// metric quantities in summaries.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
