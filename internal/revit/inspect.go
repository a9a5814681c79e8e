package revit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mbagrov/bimtally/internal/common"
)

// DefaultMaxParams bounds how many parameters an element dump includes per
// parameter group.
const DefaultMaxParams = 200

// ElementInfo is a full dump of one model element.
type ElementInfo struct {
	ElementID      int64          `json:"element_id"`
	TypeName       string         `json:"type_name"`
	TypeID         int64          `json:"type_id"`
	Category       string         `json:"category"`
	Level          string         `json:"level"`
	Location       map[string]any `json:"location,omitempty"`
	InstanceParams map[string]any `json:"instance_params"`
	TypeParams     map[string]any `json:"type_params"`
}

// InspectElement dumps one element by id, converting its location to meters.
// A missing element reports common.ErrNotFound.
func (s *Scanner) InspectElement(ctx context.Context, elementID int64, maxParams int) (*ElementInfo, error) {
	if elementID <= 0 {
		return nil, fmt.Errorf("%w: element id must be positive, got %d", common.ErrValidation, elementID)
	}
	if maxParams <= 0 {
		maxParams = DefaultMaxParams
	}

	out, err := s.exec.ExecuteCode(ctx, buildInspectSnippet(elementID, maxParams), fmt.Sprintf("Inspect element %d", elementID))
	if err != nil {
		return nil, fmt.Errorf("inspect element %d: %w", elementID, err)
	}

	trimmed := strings.TrimSpace(out)
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &probe); err != nil {
		return nil, fmt.Errorf("parse inspect output: %w", err)
	}
	if raw, ok := probe["error"]; ok {
		var msg string
		_ = json.Unmarshal(raw, &msg)
		return nil, fmt.Errorf("%w: %s", common.ErrNotFound, msg)
	}

	var info ElementInfo
	if err := json.Unmarshal([]byte(trimmed), &info); err != nil {
		return nil, fmt.Errorf("parse inspect output: %w", err)
	}
	return &info, nil
}

func buildInspectSnippet(elementID int64, maxParams int) string {
	var b strings.Builder
	b.WriteString("import json\n")
	fmt.Fprintf(&b, "FT_TO_M = %v\n", FTToM)
	fmt.Fprintf(&b, "eid = %d\n", elementID)
	fmt.Fprintf(&b, "max_params = %d\n", maxParams)
	b.WriteString(`elem = doc.GetElement(DB.ElementId(eid))
if elem is None:
    print(json.dumps({'error': 'Element not found: ' + str(eid)}))
else:
    def read_params(obj, cap):
        vals = {}
        for p in obj.Parameters:
            if len(vals) >= cap:
                break
            try:
                name = p.Definition.Name
                if not p.HasValue:
                    continue
                st = p.StorageType.ToString()
                if st == 'Double':
                    vals[name] = round(p.AsDouble(), 6)
                elif st == 'String':
                    vals[name] = p.AsString()
                elif st == 'Integer':
                    vals[name] = p.AsInteger()
                elif st == 'ElementId':
                    vals[name] = p.AsElementId().IntegerValue
            except Exception:
                continue
        return vals
    te = doc.GetElement(elem.GetTypeId())
    _p = te.get_Parameter(DB.BuiltInParameter.SYMBOL_NAME_PARAM) if te else None
    type_name = _p.AsString() if (_p and _p.HasValue) else 'Unknown'
    cat_name = elem.Category.Name if elem.Category else 'Unknown'
    level_name = ''
    lvl_id = getattr(elem, 'LevelId', None)
    if lvl_id and lvl_id != DB.ElementId.InvalidElementId:
        lvl = doc.GetElement(lvl_id)
        try:
            level_name = lvl.Name if lvl else ''
        except Exception:
            level_name = ''
    location = None
    loc = elem.Location
    if loc is not None:
        if isinstance(loc, DB.LocationPoint):
            pt = loc.Point
            location = {'type': 'point',
                        'x': round(pt.X * FT_TO_M, 3),
                        'y': round(pt.Y * FT_TO_M, 3),
                        'z': round(pt.Z * FT_TO_M, 3)}
        elif isinstance(loc, DB.LocationCurve):
            cv = loc.Curve
            sp = cv.GetEndPoint(0)
            ep = cv.GetEndPoint(1)
            location = {'type': 'curve',
                        'start': [round(sp.X * FT_TO_M, 3), round(sp.Y * FT_TO_M, 3), round(sp.Z * FT_TO_M, 3)],
                        'end': [round(ep.X * FT_TO_M, 3), round(ep.Y * FT_TO_M, 3), round(ep.Z * FT_TO_M, 3)],
                        'length_m': round(cv.Length * FT_TO_M, 3)}
    out = {'element_id': elem.Id.IntegerValue,
           'type_name': type_name,
           'type_id': elem.GetTypeId().IntegerValue,
           'category': cat_name,
           'level': level_name,
           'location': location,
           'instance_params': read_params(elem, max_params),
           'type_params': read_params(te, max_params) if te else {}}
    print(json.dumps(out))
`)
	return b.String()
}
