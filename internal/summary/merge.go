package summary

import (
	"sort"

	"github.com/mbagrov/bimtally/internal/model"
)

// Merge folds extra into base in place. Group totals add up with the same
// three-decimal rounding used during accumulation, breakdowns and
// unrecognized lists concatenate, and groups present only in extra are
// copied over. Merge order never changes the resulting totals.
func Merge(base, extra *model.Summary) {
	if base == nil || extra == nil {
		return
	}
	for top, subs := range extra.Groups {
		for sub, g := range subs {
			mergeGroup(base.EnsureGroup(top, sub), g)
		}
	}
	base.Unrecognized = append(base.Unrecognized, extra.Unrecognized...)
	sort.SliceStable(base.Unrecognized, func(i, j int) bool {
		return base.Unrecognized[i].Count > base.Unrecognized[j].Count
	})
	base.Meta.UnrecognizedCount = len(base.Unrecognized)
}

func mergeGroup(dst, src *model.GroupEntry) {
	if dst.Label == "" {
		dst.Label = src.Label
	}
	if dst.PatternID == "" {
		dst.PatternID = src.PatternID
	}
	dst.TotalCount += src.TotalCount
	dst.TotalVolumeM3 = Round3(dst.TotalVolumeM3 + src.TotalVolumeM3)
	dst.TotalAreaM2 = Round3(dst.TotalAreaM2 + src.TotalAreaM2)
	dst.TotalLengthM = Round3(dst.TotalLengthM + src.TotalLengthM)
	dst.Breakdown = append(dst.Breakdown, src.Breakdown...)

	for level, lt := range src.Levels {
		if dst.Levels == nil {
			dst.Levels = make(map[string]model.LevelTotals)
		}
		cur := dst.Levels[level]
		cur.Count += lt.Count
		cur.VolumeM3 = Round3(cur.VolumeM3 + lt.VolumeM3)
		cur.AreaM2 = Round3(cur.AreaM2 + lt.AreaM2)
		cur.LengthM = Round3(cur.LengthM + lt.LengthM)
		dst.Levels[level] = cur
	}
}

// TagSource stamps every breakdown and unrecognized item that does not
// already carry a source with the given origin, so merged summaries stay
// traceable back to the model each entry came from.
func TagSource(s *model.Summary, source string) {
	if s == nil || source == "" {
		return
	}
	for _, subs := range s.Groups {
		for _, g := range subs {
			for i := range g.Breakdown {
				if g.Breakdown[i].Source == "" {
					g.Breakdown[i].Source = source
				}
			}
		}
	}
	for i := range s.Unrecognized {
		if s.Unrecognized[i].Source == "" {
			s.Unrecognized[i].Source = source
		}
	}
}
