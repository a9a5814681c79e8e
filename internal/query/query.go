// Package query turns natural-language element queries, Russian or
// English, into structured search specs. An AI extractor interprets the
// text when configured; keyword tables and regexes carry the load
// otherwise, and dimensional filters always come from the regexes.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
	"github.com/mbagrov/bimtally/internal/pattern"
	"github.com/mbagrov/bimtally/internal/revit"
)

// Interpretation methods.
const (
	MethodAI      = "ai"
	MethodKeyword = "keyword"
)

// DefaultCategory is assumed when nothing in the query names one.
const DefaultCategory = "Walls"

// categoryRule maps query fragments to a registry category. First match
// wins, so more specific fragments sit higher.
type categoryRule struct {
	fragments []string
	category  string
}

var categoryRules = []categoryRule{
	{[]string{"стен", "wall", "кладк", "газобетон", "кирпич"}, "Walls"},
	{[]string{"перекрыти", "плит", "пол", "floor", "slab"}, "Floors"},
	{[]string{"кровл", "roof", "крыш"}, "Roofs"},
	{[]string{"потолок", "ceiling"}, "Ceilings"},
	{[]string{"колонн", "column", "стойк"}, "Columns"},
	{[]string{"балк", "beam", "прогон", "ригел", "framing"}, "StructuralFraming"},
	{[]string{"фундамент", "foundation", "подошв"}, "StructuralFoundation"},
	{[]string{"дверь", "двери", "door"}, "Doors"},
	{[]string{"окн", "window"}, "Windows"},
	{[]string{"лестниц", "марш", "ступен", "stair"}, "Stairs"},
	{[]string{"пандус", "ramp"}, "Ramps"},
	{[]string{"труб", "pipe", "гвс", "хвс", "канализ"}, "Pipes"},
	{[]string{"воздуховод", "duct", "вентил"}, "Ducts"},
	{[]string{"кабельн", "кабель", "лоток", "cable"}, "CableTray"},
	{[]string{"мебель", "furniture"}, "Furniture"},
	{[]string{"оборудован", "mechanic", "механич"}, "MechanicalEquipment"},
	{[]string{"светильник", "lighting"}, "LightingFixtures"},
	{[]string{"электр", "electrical"}, "ElectricalEquipment"},
}

// levelPatterns pull a storey number out of the query. First match wins.
var levelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`на\s+(\d+)\s*[-егом]+\s*этаж`),
	regexp.MustCompile(`(\d+)\s*[-й]?\s*этаж`),
	regexp.MustCompile(`уровень\s*[:\s]\s*(\d+)`),
	regexp.MustCompile(`level\s*[:\s]\s*(\d+)`),
	regexp.MustCompile(`(\d+)\s+floor`),
}

// heightPatterns pair a comparison phrase with its operator.
var heightPatterns = []struct {
	re *regexp.Regexp
	op string
}{
	{regexp.MustCompile(`выше\s+(\d+(?:\.\d+)?)\s*м`), "gt"},
	{regexp.MustCompile(`ниже\s+(\d+(?:\.\d+)?)\s*м`), "lt"},
	{regexp.MustCompile(`больше\s+(\d+(?:\.\d+)?)\s*м`), "gt"},
	{regexp.MustCompile(`меньше\s+(\d+(?:\.\d+)?)\s*м`), "lt"},
	{regexp.MustCompile(`above\s+(\d+(?:\.\d+)?)\s*m`), "gt"},
	{regexp.MustCompile(`below\s+(\d+(?:\.\d+)?)\s*m`), "lt"},
}

var diameterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`диаметр[а-я]*\s+(\d+)\s*мм`),
	regexp.MustCompile(`dn\s*(\d+)`),
	regexp.MustCompile(`(\d+)\s*mm`),
}

// Extractor turns natural-language text into a structured query spec.
// *llm.Matcher implements it.
type Extractor interface {
	ExtractQuery(ctx context.Context, text string) (model.QuerySpec, error)
}

// Interpretation is a parsed query plus how the parser arrived at it.
type Interpretation struct {
	Spec         model.QuerySpec `json:"spec"`
	Method       string          `json:"method"`
	PatternID    string          `json:"pattern_id,omitempty"`
	PatternLabel string          `json:"pattern_label,omitempty"`
}

// Parser builds search specs from free text.
type Parser struct {
	ai      Extractor
	matcher *pattern.Matcher
	logger  *slog.Logger
}

// NewParser creates a parser. ai may be nil; parsing then runs on the
// keyword tables alone.
func NewParser(ai Extractor, patterns []model.Pattern, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		ai:      ai,
		matcher: pattern.NewMatcher(patterns),
		logger:  logger,
	}
}

// Parse interprets the query text. The AI layer is consulted first when
// present; a failed call, an empty category or one the registry does not
// know all fall back to the keyword tables. Height and diameter filters
// come from the regexes in either path.
func (p *Parser) Parse(ctx context.Context, text string) (*Interpretation, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty query text", common.ErrValidation)
	}
	lower := strings.ToLower(text)

	interp := &Interpretation{Method: MethodKeyword}
	var spec model.QuerySpec

	if p.ai != nil {
		aiSpec, err := p.ai.ExtractQuery(ctx, text)
		switch {
		case err != nil:
			p.logger.Warn("AI query extraction failed, using keyword fallback", "error", err)
		case aiSpec.Category == "":
			p.logger.Debug("AI extraction returned no category, using keyword fallback")
		default:
			if _, ok := revit.LookupCategory(aiSpec.Category); !ok {
				p.logger.Warn("AI extraction returned unknown category, using keyword fallback",
					"category", aiSpec.Category)
			} else {
				spec = aiSpec
				interp.Method = MethodAI
			}
		}
	}

	if interp.Method == MethodKeyword {
		spec.Category = categoryFromQuery(lower)
		spec.Level = levelFromQuery(lower)
	}

	// A matched pattern narrows the type name unless the AI already did.
	if pat, ok := p.matcher.Match(lower, ""); ok {
		interp.PatternID = pat.ID
		interp.PatternLabel = pat.DisplayLabel()
		if kw := longestKeyword(pat.Keywords); kw != "" && !hasParam(spec.Filters, "type_name") {
			spec.Filters = append(spec.Filters, model.SearchFilter{
				Param: "type_name", Op: "contains", Value: kw,
			})
		}
	}

	if op, value, ok := heightFromQuery(lower); ok && !hasParam(spec.Filters, "length") {
		spec.Filters = append(spec.Filters, model.SearchFilter{
			Param: "length", Op: op, Value: value,
		})
	}
	if diameter, ok := diameterFromQuery(lower); ok && spec.Category == "Pipes" {
		spec.Filters = append(spec.Filters, model.SearchFilter{
			Param: "type_name", Op: "contains", Value: diameter,
		})
	}

	interp.Spec = spec
	return interp, nil
}

func categoryFromQuery(lower string) string {
	for _, rule := range categoryRules {
		for _, fragment := range rule.fragments {
			if strings.Contains(lower, fragment) {
				return rule.category
			}
		}
	}
	return DefaultCategory
}

func levelFromQuery(lower string) string {
	for _, re := range levelPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			return m[1]
		}
	}
	return ""
}

func heightFromQuery(lower string) (op, value string, ok bool) {
	for _, hp := range heightPatterns {
		if m := hp.re.FindStringSubmatch(lower); m != nil {
			return hp.op, m[1], true
		}
	}
	return "", "", false
}

func diameterFromQuery(lower string) (string, bool) {
	for _, re := range diameterPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func hasParam(filters []model.SearchFilter, param string) bool {
	for _, f := range filters {
		if f.Param == param {
			return true
		}
	}
	return false
}

// longestKeyword picks the most specific keyword, counting runes so
// Cyrillic and Latin compare on the same scale.
func longestKeyword(keywords []string) string {
	best := ""
	bestLen := 0
	for _, kw := range keywords {
		if n := utf8.RuneCountInString(kw); n > bestLen {
			best = kw
			bestLen = n
		}
	}
	return best
}
