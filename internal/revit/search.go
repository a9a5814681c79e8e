package revit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
)

// DefaultSearchLimit caps search results when the query does not set one.
const DefaultSearchLimit = 500

var validOps = map[string]bool{
	"eq": true, "ne": true,
	"gt": true, "ge": true, "lt": true, "le": true,
	"contains": true,
}

var numericOps = map[string]bool{"gt": true, "ge": true, "lt": true, "le": true}

// specialParams are resolved from precomputed element data instead of a
// parameter lookup.
var specialParams = map[string]bool{
	"type_name": true, "level": true,
	"volume": true, "area": true, "width": true, "length": true,
}

var colorRGB = map[string][3]int{
	"red":    {255, 0, 0},
	"blue":   {0, 0, 255},
	"green":  {0, 200, 0},
	"yellow": {255, 255, 0},
	"orange": {255, 128, 0},
	"purple": {128, 0, 255},
}

// SearchHit is one element matching a search.
type SearchHit struct {
	ID       int64   `json:"id"`
	TypeName string  `json:"type_name"`
	Level    string  `json:"level"`
	VolumeM3 float64 `json:"volume_m3"`
	AreaM2   float64 `json:"area_m2"`
	LengthM  float64 `json:"length_m"`
}

// SearchResult is the host's answer to an element search.
type SearchResult struct {
	Count         int         `json:"count"`
	TotalVolumeM3 float64     `json:"total_volume_m3"`
	TotalAreaM2   float64     `json:"total_area_m2"`
	Elements      []SearchHit `json:"elements"`
	Colorized     bool        `json:"colorized"`
}

// ValidateQuery checks a query spec before any snippet is built: the
// category must be known, operators legal, and comparison values numeric.
func ValidateQuery(spec model.QuerySpec) error {
	if spec.Category == "" {
		return fmt.Errorf("%w: category is required", common.ErrValidation)
	}
	if _, ok := LookupCategory(spec.Category); !ok {
		return fmt.Errorf("%w: unknown category %q", common.ErrValidation, spec.Category)
	}
	for i, f := range spec.Filters {
		if strings.TrimSpace(f.Param) == "" {
			return fmt.Errorf("%w: filter[%d] missing param", common.ErrValidation, i)
		}
		if !validOps[f.Op] {
			return fmt.Errorf("%w: filter[%d] invalid op %q (valid: eq, ne, gt, ge, lt, le, contains)", common.ErrValidation, i, f.Op)
		}
		if numericOps[f.Op] {
			if _, err := strconv.ParseFloat(f.Value, 64); err != nil {
				return fmt.Errorf("%w: filter[%d] op %q needs a numeric value, got %q", common.ErrValidation, i, f.Op, f.Value)
			}
		}
	}
	if spec.Color != "" {
		if _, ok := colorRGB[strings.ToLower(spec.Color)]; !ok {
			return fmt.Errorf("%w: unknown color %q", common.ErrValidation, spec.Color)
		}
	}
	return nil
}

// Search finds elements matching the spec. With Colorize set, matching
// elements are additionally highlighted in the host's active view; a
// highlight failure is logged but does not fail the search.
func (s *Scanner) Search(ctx context.Context, spec model.QuerySpec) (*SearchResult, error) {
	if err := ValidateQuery(spec); err != nil {
		return nil, err
	}

	cat, _ := LookupCategory(spec.Category)
	filters := spec.Filters
	if spec.Level != "" {
		filters = append(append([]model.SearchFilter{}, filters...), model.SearchFilter{
			Param: "level",
			Op:    "contains",
			Value: spec.Level,
		})
	}
	limit := spec.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	code := buildSearchSnippet(cat.OST, filters, limit)
	out, err := s.exec.ExecuteCode(ctx, code, "Search "+spec.Category)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", spec.Category, err)
	}

	var result SearchResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &result); err != nil {
		return nil, fmt.Errorf("parse search output: %w", err)
	}

	if spec.Colorize && len(result.Elements) > 0 {
		ids := make([]int64, len(result.Elements))
		for i, hit := range result.Elements {
			ids[i] = hit.ID
		}
		rgb := colorRGB["red"]
		if c, ok := colorRGB[strings.ToLower(spec.Color)]; ok {
			rgb = c
		}
		if _, err := s.exec.ExecuteCode(ctx, buildColorizeSnippet(ids, rgb), "Colorize search results"); err != nil {
			s.logger.Warn("colorize failed", "error", err)
		} else {
			result.Colorized = true
		}
	}

	return &result, nil
}

// pyFilters renders validated filters as a Python literal. Values for
// comparison operators are re-emitted from their parsed numeric form so no
// raw input ever reaches the snippet.
func pyFilters(filters []model.SearchFilter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		value := pyStr(f.Value)
		if numericOps[f.Op] {
			n, _ := strconv.ParseFloat(f.Value, 64)
			value = strconv.FormatFloat(n, 'g', -1, 64)
		}
		parts = append(parts, fmt.Sprintf("{'param': %s, 'op': '%s', 'value': %s}", pyStr(f.Param), f.Op, value))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func buildSearchSnippet(ost string, filters []model.SearchFilter, limit int) string {
	var b strings.Builder
	b.WriteString("import json\n")
	fmt.Fprintf(&b, "FT3_TO_M3 = %v\n", FT3ToM3)
	fmt.Fprintf(&b, "FT2_TO_M2 = %v\n", FT2ToM2)
	fmt.Fprintf(&b, "FT_TO_M = %v\n", FTToM)
	fmt.Fprintf(&b, "filters = %s\n", pyFilters(filters))
	fmt.Fprintf(&b, "limit = %d\n", limit)
	b.WriteString("SPECIAL = {'type_name', 'level', 'volume', 'area', 'width', 'length'}\n")
	fmt.Fprintf(&b, "bic = DB.BuiltInCategory.%s\n", ost)
	b.WriteString(`elems = DB.FilteredElementCollector(doc).OfCategory(bic).WhereElementIsNotElementType().ToElements()
results = []
total_vol = 0.0
total_area = 0.0
for elem in elems:
    if len(results) >= limit:
        break
    try:
        te = doc.GetElement(elem.GetTypeId())
        _p = te.get_Parameter(DB.BuiltInParameter.SYMBOL_NAME_PARAM) if te else None
        type_name = _p.AsString() if (_p and _p.HasValue) else 'Unknown'
        lvl_id = getattr(elem, 'LevelId', None)
        level_name = ''
        if lvl_id and lvl_id != DB.ElementId.InvalidElementId:
            lvl = doc.GetElement(lvl_id)
            try:
                level_name = lvl.Name if lvl else ''
            except Exception:
                level_name = ''
        vp = elem.get_Parameter(DB.BuiltInParameter.HOST_VOLUME_COMPUTED)
        ap = elem.get_Parameter(DB.BuiltInParameter.HOST_AREA_COMPUTED)
        wp = te.get_Parameter(DB.BuiltInParameter.WALL_ATTR_WIDTH_PARAM) if te else None
        lp = elem.get_Parameter(DB.BuiltInParameter.CURVE_ELEM_LENGTH)
        volume = (vp.AsDouble() * FT3_TO_M3) if (vp and vp.HasValue) else 0.0
        area = (ap.AsDouble() * FT2_TO_M2) if (ap and ap.HasValue) else 0.0
        width = (wp.AsDouble() * FT_TO_M) if (wp and wp.HasValue) else 0.0
        length = (lp.AsDouble() * FT_TO_M) if (lp and lp.HasValue) else 0.0
        def get_special(pname):
            pn = pname.lower()
            if pn == 'type_name': return type_name
            if pn == 'level': return level_name
            if pn == 'volume': return volume
            if pn == 'area': return area
            if pn == 'width': return width
            if pn == 'length': return length
            return None
        def get_param_val(pname):
            p = elem.LookupParameter(pname)
            if not p:
                p = te.LookupParameter(pname) if te else None
            if not p or not p.HasValue: return None
            st = p.StorageType.ToString()
            if st == 'Double': return p.AsDouble()
            if st == 'String': return p.AsString()
            if st == 'Integer': return p.AsInteger()
            return None
        def check_filter(f):
            pn = f.get('param', '')
            op = f.get('op', 'eq')
            v = f.get('value', None)
            if pn.lower() in SPECIAL:
                pv = get_special(pn)
            else:
                pv = get_param_val(pn)
            if op == 'contains':
                return isinstance(pv, basestring) and isinstance(v, basestring) and v.lower() in pv.lower()
            if op == 'eq': return unicode(pv).lower() == unicode(v).lower()
            if op == 'ne': return unicode(pv).lower() != unicode(v).lower()
            if op == 'gt': return isinstance(pv, (int, float)) and pv > v
            if op == 'ge': return isinstance(pv, (int, float)) and pv >= v
            if op == 'lt': return isinstance(pv, (int, float)) and pv < v
            if op == 'le': return isinstance(pv, (int, float)) and pv <= v
            return False
        passes = all(check_filter(f) for f in filters)
        if passes:
            row = {'id': elem.Id.IntegerValue, 'type_name': type_name,
                   'level': level_name,
                   'volume_m3': round(volume, 3),
                   'area_m2': round(area, 3),
                   'length_m': round(length, 3)}
            results.append(row)
            total_vol += volume
            total_area += area
    except: pass
out = {'count': len(results),
       'total_volume_m3': round(total_vol, 3),
       'total_area_m2': round(total_area, 3),
       'elements': results,
       'colorized': False}
print(json.dumps(out))
`)
	return b.String()
}

func buildColorizeSnippet(ids []int64, rgb [3]int) string {
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = strconv.FormatInt(id, 10)
	}

	var b strings.Builder
	b.WriteString("import json\n")
	fmt.Fprintf(&b, "ids = [%s]\n", strings.Join(idStrs, ", "))
	fmt.Fprintf(&b, "c = DB.Color(%d, %d, %d)\n", rgb[0], rgb[1], rgb[2])
	b.WriteString(`ogs = DB.OverrideGraphicSettings()
ogs.SetSurfaceForegroundPatternColor(c)
ogs.SetProjectionLineColor(c)
view = doc.ActiveView
t = DB.Transaction(doc, 'Search colorize')
colored = 0
t.Start()
try:
    for eid in ids:
        try:
            view.SetElementOverrides(DB.ElementId(eid), ogs)
            colored += 1
        except: pass
    t.Commit()
except Exception as ex:
    if t.HasStarted():
        t.RollBack()
    raise
print(json.dumps({'colorized': colored}))
`)
	return b.String()
}
