package revit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
)

// Unit conversion coefficients applied at the host boundary. Everything
// downstream of the scanner works in metric.
const (
	FT3ToM3 = 0.028316846592
	FT2ToM2 = 0.09290304
	FTToM   = 0.3048
)

// Executor runs IronPython snippets on the host. *Client implements it;
// tests substitute fakes.
type Executor interface {
	ExecuteCode(ctx context.Context, code, description string) (string, error)
}

// ScanOptions controls a category scan.
type ScanOptions struct {
	// Categories limits the scan; empty means the full registry.
	Categories []string
	// IncludeParams samples type parameters into each catalog entry.
	IncludeParams bool
}

// Scanner builds host snippets and parses their JSON output into catalogs.
type Scanner struct {
	exec   Executor
	logger *slog.Logger
}

// NewScanner creates a scanner on top of an executor.
func NewScanner(exec Executor, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{exec: exec, logger: logger}
}

// ScanCategories scans the requested categories batch by batch and merges
// the per-batch JSON into one catalog. A failed batch records an error
// marker under its first category and never aborts the scan.
func (s *Scanner) ScanCategories(ctx context.Context, opts ScanOptions) (model.Catalog, error) {
	batches, unknown := s.resolveBatches(opts.Categories)
	if len(unknown) > 0 {
		s.logger.Warn("ignoring unknown categories", "categories", unknown)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("%w: no valid categories to scan", common.ErrValidation)
	}

	catalog := make(model.Catalog)
	for _, batch := range batches {
		code := buildBatchSnippet(batch, opts.IncludeParams)
		out, err := s.exec.ExecuteCode(ctx, code, "Scan categories "+batchLabel(batch))
		if err != nil {
			s.recordBatchError(catalog, batch, err)
			continue
		}

		var result map[string]model.CategoryTotals
		if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &result); err != nil {
			s.recordBatchError(catalog, batch, fmt.Errorf("parse batch output: %w", err))
			continue
		}
		for category, totals := range result {
			catalog[category] = totals
		}
	}
	return catalog, nil
}

// ScanLevels scans the same categories grouped by level and returns one
// catalog per level name, ready for summary enrichment.
func (s *Scanner) ScanLevels(ctx context.Context, categories []string) (map[string]model.Catalog, error) {
	batches, unknown := s.resolveBatches(categories)
	if len(unknown) > 0 {
		s.logger.Warn("ignoring unknown categories", "categories", unknown)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("%w: no valid categories to scan", common.ErrValidation)
	}

	// category -> type -> level -> aggregates
	merged := make(map[string]map[string]map[string]levelAggregates)
	failed := 0
	for _, batch := range batches {
		code := buildLevelSnippet(batch)
		out, err := s.exec.ExecuteCode(ctx, code, "Scan levels "+batchLabel(batch))
		if err != nil {
			s.logger.Warn("level batch failed", "batch", batchLabel(batch), "error", err)
			failed++
			continue
		}

		var result map[string]map[string]map[string]levelAggregates
		if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &result); err != nil {
			s.logger.Warn("level batch unparseable", "batch", batchLabel(batch), "error", err)
			failed++
			continue
		}
		for category, types := range result {
			merged[category] = types
		}
	}

	if len(merged) == 0 && failed > 0 {
		return nil, fmt.Errorf("level scan produced no data (%d batches failed)", failed)
	}

	byLevel := make(map[string]model.Catalog)
	for category, types := range merged {
		for typeName, levels := range types {
			for level, agg := range levels {
				catalog, ok := byLevel[level]
				if !ok {
					catalog = make(model.Catalog)
					byLevel[level] = catalog
				}
				totals := catalog[category]
				totals.TotalCount += agg.Count
				totals.TotalVolumeM3 += agg.VolumeM3
				totals.TotalAreaM2 += agg.AreaM2
				totals.TotalLengthM += agg.LengthM
				totals.Types = append(totals.Types, model.CatalogEntry{
					TypeName: typeName,
					Count:    agg.Count,
					VolumeM3: agg.VolumeM3,
					AreaM2:   agg.AreaM2,
					LengthM:  agg.LengthM,
				})
				catalog[category] = totals
			}
		}
	}
	return byLevel, nil
}

type levelAggregates struct {
	Count    int     `json:"count"`
	VolumeM3 float64 `json:"volume_m3"`
	AreaM2   float64 `json:"area_m2"`
	LengthM  float64 `json:"length_m"`
}

func (s *Scanner) resolveBatches(categories []string) ([][]CategorySpec, []string) {
	if len(categories) == 0 {
		return Batches(), nil
	}
	return BatchesFor(categories)
}

func (s *Scanner) recordBatchError(catalog model.Catalog, batch []CategorySpec, err error) {
	s.logger.Warn("category batch failed", "batch", batchLabel(batch), "error", err)
	catalog[model.ErrorBatchPrefix+batch[0].Name] = model.CategoryTotals{Error: err.Error()}
}

func batchLabel(batch []CategorySpec) string {
	names := make([]string, len(batch))
	for i, spec := range batch {
		names[i] = spec.Name
	}
	return strings.Join(names, ", ")
}

// buildBatchSnippet emits IronPython that scans a batch of categories and
// prints one JSON object keyed by category, quantities already metric.
// IronPython 2 has no f-strings, so the snippet sticks to plain literals.
func buildBatchSnippet(batch []CategorySpec, includeParams bool) string {
	ip := pyBool(includeParams)

	var b strings.Builder
	b.WriteString("import json\n")
	fmt.Fprintf(&b, "FT3_TO_M3 = %v\n", FT3ToM3)
	fmt.Fprintf(&b, "FT2_TO_M2 = %v\n", FT2ToM2)
	fmt.Fprintf(&b, "FT_TO_M = %v\n", FTToM)
	b.WriteString("result = {}\n")
	writeCatMap(&b, batch, "")
	b.WriteString(`for cat_name, (bic, has_vol, has_area, has_len) in CAT_MAP.items():
    try:
        elems = DB.FilteredElementCollector(doc).OfCategory(bic).WhereElementIsNotElementType().ToElements()
        groups = {}
        for elem in elems:
            try:
                te = doc.GetElement(elem.GetTypeId())
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
`)
	fmt.Fprintf(&b, "                if %s and te:\n", ip)
	b.WriteString(`                    if 'sample_params' not in groups[key]:
                        sp = {}
                        for p in te.Parameters:
                            try:
                                if p and p.HasValue:
                                    pn = p.Definition.Name
                                    if p.StorageType.ToString() == 'Double':
                                        sp[pn] = round(p.AsDouble(), 4)
                                    elif p.StorageType.ToString() == 'String':
                                        sv = p.AsString()
                                        if sv: sp[pn] = sv
                                    elif p.StorageType.ToString() == 'Integer':
                                        sp[pn] = p.AsInteger()
                            except: pass
                        groups[key]['sample_params'] = sp
            except: pass
        if groups:
            types_list = []
            for v in groups.values():
                t = {'name': v['name'], 'count': v['count'],
                     'volume_m3': round(v['volume_m3'], 3),
                     'area_m2': round(v['area_m2'], 3),
                     'length_m': round(v['length_m'], 3),
                     'type_id': v['type_id']}
`)
	fmt.Fprintf(&b, "                if %s and 'sample_params' in v:\n", ip)
	b.WriteString(`                    t['sample_params'] = v['sample_params']
                types_list.append(t)
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

// buildLevelSnippet emits IronPython that scans a batch of categories
// grouped by (type name, level name). Output JSON:
// {category: {type: {level: {count, volume_m3, area_m2, length_m}}}}.
func buildLevelSnippet(batch []CategorySpec) string {
	var b strings.Builder
	b.WriteString("import json\n")
	fmt.Fprintf(&b, "FT3_TO_M3 = %v\n", FT3ToM3)
	fmt.Fprintf(&b, "FT2_TO_M2 = %v\n", FT2ToM2)
	fmt.Fprintf(&b, "FT_TO_M = %v\n", FTToM)
	b.WriteString("result = {}\n")
	writeCatMap(&b, batch, "")
	b.WriteString(`for cat_name, (bic, has_vol, has_area, has_len) in CAT_MAP.items():
    try:
        elems = DB.FilteredElementCollector(doc).OfCategory(bic).WhereElementIsNotElementType().ToElements()
        by_type = {}
        for elem in elems:
            try:
                te = doc.GetElement(elem.GetTypeId())
                type_name = getattr(te, 'Name', None) or 'Unknown'
                lp = elem.get_Parameter(DB.BuiltInParameter.LEVEL_PARAM)
                if not lp or not lp.HasValue:
                    lp = elem.get_Parameter(DB.BuiltInParameter.FAMILY_LEVEL_PARAM)
                level_name = ''
                if lp and lp.HasValue:
                    level_el = doc.GetElement(lp.AsElementId())
                    if level_el: level_name = level_el.Name
                if not level_name:
                    lvl_id = getattr(elem, 'LevelId', None)
                    if lvl_id and lvl_id != DB.ElementId.InvalidElementId:
                        lvl = doc.GetElement(lvl_id)
                        if lvl: level_name = lvl.Name
                if not level_name: level_name = 'Unknown'
                vp = elem.get_Parameter(DB.BuiltInParameter.HOST_VOLUME_COMPUTED)
                ap = elem.get_Parameter(DB.BuiltInParameter.HOST_AREA_COMPUTED)
                lcp = elem.get_Parameter(DB.BuiltInParameter.CURVE_ELEM_LENGTH)
                vol = vp.AsDouble() * FT3_TO_M3 if (vp and vp.HasValue and has_vol) else 0.0
                area = ap.AsDouble() * FT2_TO_M2 if (ap and ap.HasValue and has_area) else 0.0
                length = lcp.AsDouble() * FT_TO_M if (lcp and lcp.HasValue and has_len) else 0.0
                if type_name not in by_type: by_type[type_name] = {}
                if level_name not in by_type[type_name]:
                    by_type[type_name][level_name] = {'count': 0, 'volume_m3': 0.0, 'area_m2': 0.0, 'length_m': 0.0}
                by_type[type_name][level_name]['count'] += 1
                by_type[type_name][level_name]['volume_m3'] = round(by_type[type_name][level_name]['volume_m3'] + vol, 3)
                by_type[type_name][level_name]['area_m2'] = round(by_type[type_name][level_name]['area_m2'] + area, 3)
                by_type[type_name][level_name]['length_m'] = round(by_type[type_name][level_name]['length_m'] + length, 3)
            except: pass
        result[cat_name] = by_type
    except: pass
print(json.dumps(result))
`)
	return b.String()
}

// writeCatMap writes the CAT_MAP literal shared by scan snippets. indent
// prefixes every line for snippets that nest the map inside a block.
func writeCatMap(b *strings.Builder, batch []CategorySpec, indent string) {
	b.WriteString(indent + "CAT_MAP = {\n")
	for _, spec := range batch {
		fmt.Fprintf(b, "%s    '%s': (DB.BuiltInCategory.%s, %s, %s, %s),\n",
			indent, spec.Name, spec.OST,
			pyBool(spec.HasVolume), pyBool(spec.HasArea), pyBool(spec.HasLength))
	}
	b.WriteString(indent + "}\n")
}

func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// pyStr renders s as an IronPython unicode literal, escaping non-ASCII
// characters so snippets stay 7-bit clean regardless of model language.
func pyStr(s string) string {
	var b strings.Builder
	b.WriteString("u'")
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\'':
			b.WriteString(`\'`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r > 0x7e:
			if r > 0xffff {
				fmt.Fprintf(&b, `\U%08x`, r)
			} else {
				fmt.Fprintf(&b, `\u%04x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString("'")
	return b.String()
}
