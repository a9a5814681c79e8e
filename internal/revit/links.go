package revit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
)

// LinkInfo describes one Revit link instance in the host document.
type LinkInfo struct {
	Name         string `json:"name"`
	Loaded       bool   `json:"loaded"`
	Path         string `json:"path,omitempty"`
	ElementCount int    `json:"element_count"`
}

const listLinksSnippet = `import json
results = []
links = DB.FilteredElementCollector(doc).OfClass(DB.RevitLinkInstance).ToElements()
for link in links:
    link_doc = link.GetLinkDocument()
    if link_doc is None:
        results.append({'name': link.Name, 'loaded': False, 'path': '', 'element_count': 0})
        continue
    results.append({
        'name': link_doc.Title,
        'loaded': True,
        'path': link_doc.PathName,
        'element_count': DB.FilteredElementCollector(link_doc).WhereElementIsNotElementType().GetElementCount()
    })
print(json.dumps(results))
`

// ListLinks discovers all link instances and whether their documents are
// loaded.
func (s *Scanner) ListLinks(ctx context.Context) ([]LinkInfo, error) {
	out, err := s.exec.ExecuteCode(ctx, listLinksSnippet, "List linked files")
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	var links []LinkInfo
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &links); err != nil {
		return nil, fmt.Errorf("parse links output: %w", err)
	}
	return links, nil
}

// ScanLink scans a loaded linked document by title. An empty category list
// means the full registry. A missing or unloaded link fails the whole call
// with common.ErrNotFound; a failed batch only records an error marker, same
// as ScanCategories.
func (s *Scanner) ScanLink(ctx context.Context, title string, categories []string) (model.Catalog, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: link title is empty", common.ErrValidation)
	}
	batches, unknown := s.resolveBatches(categories)
	if len(unknown) > 0 {
		s.logger.Warn("ignoring unknown categories", "link", title, "categories", unknown)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("%w: no valid categories to scan", common.ErrValidation)
	}

	catalog := make(model.Catalog)
	for _, batch := range batches {
		code := buildLinkedBatchSnippet(batch, title)
		out, err := s.exec.ExecuteCode(ctx, code, "Scan link "+title)
		if err != nil {
			s.recordBatchError(catalog, batch, err)
			continue
		}

		raw := []byte(strings.TrimSpace(out))
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil {
			s.recordBatchError(catalog, batch, fmt.Errorf("parse linked batch output: %w", err))
			continue
		}
		if msg, ok := probe["_error"]; ok {
			var text string
			_ = json.Unmarshal(msg, &text)
			return nil, fmt.Errorf("%w: %s", common.ErrNotFound, text)
		}

		var result map[string]model.CategoryTotals
		if err := json.Unmarshal(raw, &result); err != nil {
			s.recordBatchError(catalog, batch, fmt.Errorf("parse linked batch output: %w", err))
			continue
		}
		for category, totals := range result {
			catalog[category] = totals
		}
	}
	return catalog, nil
}

// buildLinkedBatchSnippet is the batch scan against a linked document,
// located by title. Output format matches buildBatchSnippet so one parser
// serves both.
func buildLinkedBatchSnippet(batch []CategorySpec, title string) string {
	var b strings.Builder
	b.WriteString("import json\n")
	fmt.Fprintf(&b, "FT3_TO_M3 = %v\n", FT3ToM3)
	fmt.Fprintf(&b, "FT2_TO_M2 = %v\n", FT2ToM2)
	fmt.Fprintf(&b, "FT_TO_M = %v\n", FTToM)
	fmt.Fprintf(&b, "target_title = %s\n", pyStr(title))
	b.WriteString(`result = {}
link_doc = None
for _link in DB.FilteredElementCollector(doc).OfClass(DB.RevitLinkInstance).ToElements():
    _ld = _link.GetLinkDocument()
    if _ld is not None and _ld.Title == target_title:
        link_doc = _ld
        break
if link_doc is None:
    print(json.dumps({'_error': 'Link not found: ' + target_title}))
else:
`)
	writeCatMap(&b, batch, "    ")
	b.WriteString(`    for cat_name, (bic, has_vol, has_area, has_len) in CAT_MAP.items():
        try:
            elems = DB.FilteredElementCollector(link_doc).OfCategory(bic).WhereElementIsNotElementType().ToElements()
            groups = {}
            for elem in elems:
                try:
                    te = link_doc.GetElement(elem.GetTypeId())
                    key = getattr(te, 'Name', None) or 'Unknown'
                    vp = elem.get_Parameter(DB.BuiltInParameter.HOST_VOLUME_COMPUTED)
                    ap = elem.get_Parameter(DB.BuiltInParameter.HOST_AREA_COMPUTED)
                    lp = elem.get_Parameter(DB.BuiltInParameter.CURVE_ELEM_LENGTH)
                    vol = vp.AsDouble() * FT3_TO_M3 if (vp and vp.HasValue and has_vol) else 0.0
                    area = ap.AsDouble() * FT2_TO_M2 if (ap and ap.HasValue and has_area) else 0.0
                    length = lp.AsDouble() * FT_TO_M if (lp and lp.HasValue and has_len) else 0.0
                    if key not in groups:
                        groups[key] = {'name': key, 'count': 0, 'volume_m3': 0.0, 'area_m2': 0.0, 'length_m': 0.0, 'type_id': te.Id.IntegerValue if te else 0}
                    groups[key]['count'] += 1
                    groups[key]['volume_m3'] += vol
                    groups[key]['area_m2'] += area
                    groups[key]['length_m'] += length
                except: pass
            if groups:
                types_list = []
                for v in groups.values():
                    types_list.append({'name': v['name'], 'count': v['count'],
                        'volume_m3': round(v['volume_m3'], 3),
                        'area_m2': round(v['area_m2'], 3),
                        'length_m': round(v['length_m'], 3),
                        'type_id': v['type_id']})
                total_count = sum(t['count'] for t in types_list)
                result[cat_name] = {
                    'total_count': total_count,
                    'total_volume_m3': round(sum(t['volume_m3'] for t in types_list), 3),
                    'total_area_m2': round(sum(t['area_m2'] for t in types_list), 3),
                    'total_length_m': round(sum(t['length_m'] for t in types_list), 3),
                    'types': sorted(types_list, key=lambda x: -x['count'])
                }
        except: pass
    print(json.dumps(result))
`)
	return b.String()
}
