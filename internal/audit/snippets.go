package audit

import (
	"fmt"
	"strings"

	"github.com/mbagrov/bimtally/internal/revit"
)

// writeCatMap writes a name -> built-in-category map literal shared by the
// category-scoped check snippets.
func writeCatMap(b *strings.Builder, specs []revit.CategorySpec) {
	b.WriteString("CAT_MAP = {\n")
	for _, spec := range specs {
		fmt.Fprintf(b, "    '%s': DB.BuiltInCategory.%s,\n", spec.Name, spec.OST)
	}
	b.WriteString("}\n")
}

// buildZeroVolumeSnippet emits IronPython that flags elements of
// volume-bearing categories whose computed volume is absent or zero.
func buildZeroVolumeSnippet(specs []revit.CategorySpec) string {
	var b strings.Builder
	b.WriteString("import json\n")
	writeCatMap(&b, specs)
	b.WriteString(`issues = []
for cat_name, bic in CAT_MAP.items():
    try:
        elems = DB.FilteredElementCollector(doc).OfCategory(bic).WhereElementIsNotElementType().ToElements()
        for elem in elems:
            try:
                vp = elem.get_Parameter(DB.BuiltInParameter.HOST_VOLUME_COMPUTED)
                vol = vp.AsDouble() if vp and vp.HasValue else -1
                if vol <= 0:
                    issues.append({'type': 'zero_volume', 'category': cat_name, 'element_id': elem.Id.IntegerValue, 'description': 'Element has zero or no volume computed'})
            except: pass
    except: pass
print(json.dumps(issues))
`)
	return b.String()
}

// buildMissingLevelSnippet emits IronPython that flags elements without a
// level assignment.
func buildMissingLevelSnippet(specs []revit.CategorySpec) string {
	var b strings.Builder
	b.WriteString("import json\n")
	writeCatMap(&b, specs)
	b.WriteString(`issues = []
for cat_name, bic in CAT_MAP.items():
    try:
        elems = DB.FilteredElementCollector(doc).OfCategory(bic).WhereElementIsNotElementType().ToElements()
        for elem in elems:
            try:
                has_level = hasattr(elem, 'LevelId') and elem.LevelId != DB.ElementId.InvalidElementId
                if not has_level:
                    issues.append({'type': 'missing_level', 'category': cat_name, 'element_id': elem.Id.IntegerValue, 'description': 'Element has no associated level'})
            except: pass
    except: pass
print(json.dumps(issues))
`)
	return b.String()
}

// buildDuplicateSnippet emits IronPython that keys point-located elements
// by type and rounded location and reports repeats. Output is capped at 50
// findings; a model with more has a systemic problem a longer list would
// not clarify.
func buildDuplicateSnippet() string {
	return `import json
elems = DB.FilteredElementCollector(doc).WhereElementIsNotElementType().ToElements()
seen = {}
issues = []
for elem in elems:
    try:
        loc = elem.Location
        if not loc or not hasattr(loc, 'Point'):
            continue
        pt = loc.Point
        key = (elem.GetTypeId().IntegerValue, round(pt.X, 2), round(pt.Y, 2), round(pt.Z, 2))
        if key in seen:
            issues.append({'type': 'duplicate_elements', 'element_id': elem.Id.IntegerValue, 'duplicate_of': seen[key], 'description': 'Possible duplicate element at same location and type'})
        else:
            seen[key] = elem.Id.IntegerValue
    except: pass
print(json.dumps(issues[:50]))
`
}
