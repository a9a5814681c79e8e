// Package vor turns semantic summaries into bill-of-quantities positions,
// either automatically per group or through an explicit mapping file.
package vor

import (
	"fmt"
	"math"
	"sort"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
)

// groupFilters maps a filter name to the top-level group keys it admits.
// An empty list means every group passes.
var groupFilters = map[string][]string{
	"all":           {},
	"structural":    {"structural"},
	"architectural": {"architectural", "generic"},
	"mep":           {"mep"},
}

// unitLabels carries the Russian unit labels printed on positions.
var unitLabels = map[model.Unit]string{
	model.UnitVolume: "м3",
	model.UnitArea:   "м2",
	model.UnitLength: "пог.м",
	model.UnitCount:  "шт",
}

// groupOrder ranks top-level domains for position ordering. Unknown
// domains sort last.
var groupOrder = map[string]int{
	"structural":    0,
	"architectural": 1,
	"mep":           2,
}

// Options tunes generation. The zero value emits every group.
type Options struct {
	// GroupFilter keeps only the named domain: all, structural,
	// architectural or mep. Empty means all.
	GroupFilter string
	// MinVolume drops positions whose quantity falls below it.
	MinVolume float64
	// Title is carried onto the generated document verbatim.
	Title string
}

// Generate builds one bill position per semantic group that passes the
// filter, quantified in the group's canonical unit. The unit comes from the
// pattern behind the group, found by the group's recorded pattern id or,
// failing that, by group key; groups with no pattern count pieces.
// Positions come out ordered by domain then descending quantity and are
// numbered from 1.
func Generate(summary *model.Summary, patterns []model.Pattern, opts Options) (*model.VORDocument, error) {
	if summary == nil {
		return nil, fmt.Errorf("%w: no summary to generate from", common.ErrValidation)
	}

	filter := opts.GroupFilter
	if filter == "" {
		filter = "all"
	}
	allowedTops, ok := groupFilters[filter]
	if !ok {
		return nil, fmt.Errorf("%w: unknown group filter %q, use all, structural, architectural or mep",
			common.ErrValidation, opts.GroupFilter)
	}
	allowed := make(map[string]bool, len(allowedTops))
	for _, top := range allowedTops {
		allowed[top] = true
	}

	byID := make(map[string]model.Pattern, len(patterns))
	byGroup := make(map[string]model.Pattern, len(patterns))
	for _, p := range patterns {
		byID[p.ID] = p
		if _, seen := byGroup[p.Group]; !seen {
			byGroup[p.Group] = p
		}
	}

	tops := make([]string, 0, len(summary.Groups))
	for top := range summary.Groups {
		tops = append(tops, top)
	}
	sort.Strings(tops)

	var positions []model.VORPosition
	for _, top := range tops {
		if len(allowed) > 0 && !allowed[top] {
			continue
		}
		subs := summary.Groups[top]
		subKeys := make([]string, 0, len(subs))
		for sub := range subs {
			subKeys = append(subKeys, sub)
		}
		sort.Strings(subKeys)

		for _, sub := range subKeys {
			entry := subs[sub]
			key := top + "." + sub

			unit := model.UnitCount
			patternID := entry.PatternID
			var pat model.Pattern
			var found bool
			if patternID != "" {
				pat, found = byID[patternID]
			}
			if !found {
				pat, found = byGroup[key]
			}
			if found {
				patternID = pat.ID
				if pat.CanonicalUnit != "" {
					unit = pat.CanonicalUnit
				}
			}

			qty := entry.PrimaryQuantity(unit)
			if qty < opts.MinVolume {
				continue
			}

			name := entry.Label
			if name == "" {
				name = sub
			}
			positions = append(positions, model.VORPosition{
				Name:      name,
				Unit:      unitLabel(unit),
				Volume:    round3(qty),
				Group:     key,
				PatternID: patternID,
				Source:    quantitySource(unit),
			})
		}
	}

	sort.SliceStable(positions, func(i, j int) bool {
		oi, oj := domainRank(positions[i].Group), domainRank(positions[j].Group)
		if oi != oj {
			return oi < oj
		}
		return positions[i].Volume > positions[j].Volume
	})
	for i := range positions {
		positions[i].Num = i + 1
	}

	seen := summary.GroupCount()
	return &model.VORDocument{
		Title:      opts.Title,
		Positions:  positions,
		TotalCount: len(positions),
		ModelStats: model.VORModelStats{
			GroupsSeen:  seen,
			Positions:   len(positions),
			FilteredOut: seen - len(positions),
		},
	}, nil
}

// unitLabel localizes a canonical unit, falling back to the raw value for
// units the table does not know.
func unitLabel(unit model.Unit) string {
	if label, ok := unitLabels[unit]; ok {
		return label
	}
	return string(unit)
}

// quantitySource names the aggregate a unit reads, mirroring
// GroupEntry.PrimaryQuantity.
func quantitySource(unit model.Unit) model.QuantitySource {
	switch unit {
	case model.UnitArea:
		return model.SourceArea
	case model.UnitLength:
		return model.SourceLength
	case model.UnitCount:
		return model.SourceCount
	default:
		return model.SourceVolume
	}
}

func domainRank(group string) int {
	top, _ := model.SplitGroup(group)
	if rank, ok := groupOrder[top]; ok {
		return rank
	}
	return 3
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
