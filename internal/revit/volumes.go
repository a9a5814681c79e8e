package revit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mbagrov/bimtally/internal/common"
)

// VolumeGroup aggregates elements of one category under a grouping key
// (type name or level name).
type VolumeGroup struct {
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	VolumeM3 float64 `json:"volume_m3"`
	AreaM2   float64 `json:"area_m2"`
}

// defaultVolumeCategories are scanned when the caller does not name any.
var defaultVolumeCategories = []string{"Walls", "Floors", "Roofs"}

// Volumes extracts per-category volume groups. groupBy selects the grouping
// key, "type" or "level". Unknown category names are logged and skipped.
func (s *Scanner) Volumes(ctx context.Context, categories []string, groupBy string) (map[string][]VolumeGroup, error) {
	switch groupBy {
	case "":
		groupBy = "type"
	case "type", "level":
	default:
		return nil, fmt.Errorf("%w: group_by must be type or level, got %q", common.ErrValidation, groupBy)
	}
	if len(categories) == 0 {
		categories = defaultVolumeCategories
	}

	batches, unknown := BatchesFor(categories)
	if len(unknown) > 0 {
		s.logger.Warn("skipping unknown categories", "categories", unknown)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("%w: no valid categories to extract", common.ErrValidation)
	}

	result := make(map[string][]VolumeGroup)
	for _, batch := range batches {
		out, err := s.exec.ExecuteCode(ctx, buildVolumesSnippet(batch, groupBy), "Extract volumes for "+batchLabel(batch))
		if err != nil {
			return nil, fmt.Errorf("extract volumes: %w", err)
		}
		var parsed map[string][]VolumeGroup
		if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &parsed); err != nil {
			return nil, fmt.Errorf("parse volumes output: %w", err)
		}
		for cat, groups := range parsed {
			sort.Slice(groups, func(i, j int) bool {
				if groups[i].VolumeM3 != groups[j].VolumeM3 {
					return groups[i].VolumeM3 > groups[j].VolumeM3
				}
				return groups[i].Name < groups[j].Name
			})
			result[cat] = groups
		}
	}
	return result, nil
}

func buildVolumesSnippet(batch []CategorySpec, groupBy string) string {
	var b strings.Builder
	b.WriteString("import json\n")
	writeCatMap(&b, batch, "")
	fmt.Fprintf(&b, "group_by = '%s'\n", groupBy)
	fmt.Fprintf(&b, "FT3_TO_M3 = %v\n", FT3ToM3)
	fmt.Fprintf(&b, "FT2_TO_M2 = %v\n", FT2ToM2)
	b.WriteString(`result = {}
for cat_name, (bic, has_vol, has_area, has_len) in CAT_MAP.items():
    elems = DB.FilteredElementCollector(doc).OfCategory(bic).WhereElementIsNotElementType().ToElements()
    groups = {}
    for elem in elems:
        try:
            if group_by == 'level':
                lvl_id = getattr(elem, 'LevelId', None)
                lvl = doc.GetElement(lvl_id) if (lvl_id and lvl_id != DB.ElementId.InvalidElementId) else None
                key = lvl.Name if lvl else 'No Level'
            else:
                te = doc.GetElement(elem.GetTypeId())
                key = te.Name if te else 'Unknown'
            vp = elem.get_Parameter(DB.BuiltInParameter.HOST_VOLUME_COMPUTED)
            ap = elem.get_Parameter(DB.BuiltInParameter.HOST_AREA_COMPUTED)
            vol = vp.AsDouble() if (vp and vp.HasValue) else 0.0
            area = ap.AsDouble() if (ap and ap.HasValue) else 0.0
            if key not in groups:
                groups[key] = {'name': key, 'count': 0, 'volume_m3': 0.0, 'area_m2': 0.0}
            groups[key]['count'] += 1
            groups[key]['volume_m3'] += vol * FT3_TO_M3
            groups[key]['area_m2'] += area * FT2_TO_M2
        except Exception:
            continue
    result[cat_name] = [{'name': g['name'], 'count': g['count'],
                         'volume_m3': round(g['volume_m3'], 3),
                         'area_m2': round(g['area_m2'], 3)} for g in groups.values()]
print(json.dumps(result))
`)
	return b.String()
}
