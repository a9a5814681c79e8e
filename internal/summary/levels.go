package summary

import (
	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/pattern"
)

// ApplyLevels enriches an already built summary with per-level aggregates.
// Each level catalog is classified with the same matcher that built the
// summary, and contributions land under the owning group's Levels map.
// Entries that classify into a group the summary does not contain are
// ignored: level data annotates the summary, it never grows it.
func ApplyLevels(s *model.Summary, levelCatalogs map[string]model.Catalog, matcher *pattern.Matcher) {
	if s == nil {
		return
	}
	for level, catalog := range levelCatalogs {
		for _, entry := range catalog.Entries() {
			p, ok := matcher.Match(entry.TypeName, entry.Category)
			if !ok {
				continue
			}
			top, sub := p.GroupKeys()
			g := s.Group(top, sub)
			if g == nil {
				continue
			}
			if g.Levels == nil {
				g.Levels = make(map[string]model.LevelTotals)
			}
			lt := g.Levels[level]
			lt.Count += entry.Count
			lt.VolumeM3 = Round3(lt.VolumeM3 + entry.VolumeM3)
			lt.AreaM2 = Round3(lt.AreaM2 + entry.AreaM2)
			lt.LengthM = Round3(lt.LengthM + entry.LengthM)
			g.Levels[level] = lt
		}
	}
}
