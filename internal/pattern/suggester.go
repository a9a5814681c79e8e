package pattern

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/mbagrov/bimtally/internal/model"
)

// Suggestion is a draft pattern proposed for a cluster of unrecognized
// catalog entries, ready for an engineer to review and add to the pattern
// file.
type Suggestion struct {
	Draft    model.Pattern `json:"draft"`
	Examples []string      `json:"examples"`
	Count    int           `json:"count"`
	Reason   string        `json:"reason"`
}

// Suggester derives draft patterns from unrecognized catalog entries by
// clustering their type names on shared significant tokens.
type Suggester struct {
	minToken int
	existing map[string]bool
}

// NewSuggester creates a suggester aware of the already-loaded pattern set,
// so it never proposes a keyword an existing pattern carries.
func NewSuggester(patterns []model.Pattern) *Suggester {
	existing := make(map[string]bool)
	for _, p := range patterns {
		for _, kw := range p.Keywords {
			existing[strings.ToLower(kw)] = true
		}
	}
	return &Suggester{minToken: 4, existing: existing}
}

// Suggest clusters unrecognized entries on their most common significant
// token and proposes one draft pattern per cluster, strongest first.
func (s *Suggester) Suggest(items []model.UnrecognizedItem) []Suggestion {
	type cluster struct {
		examples []string
		category string
		count    int
	}
	clusters := make(map[string]*cluster)

	for _, item := range items {
		for _, token := range s.tokens(item.TypeName) {
			c, ok := clusters[token]
			if !ok {
				c = &cluster{category: item.Category}
				clusters[token] = c
			}
			c.count += item.Count
			if len(c.examples) < 3 {
				c.examples = append(c.examples, item.TypeName)
			}
		}
	}

	suggestions := make([]Suggestion, 0, len(clusters))
	for token, c := range clusters {
		if c.count < 2 {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Draft: model.Pattern{
				ID:         "suggested_" + sanitizeID(token),
				Label:      upperFirst(token),
				Group:      "unclassified." + sanitizeID(token),
				Keywords:   []string{token},
				Categories: []string{c.category},
				Priority:   model.DefaultPatternPriority,
			},
			Examples: c.examples,
			Count:    c.count,
			Reason:   fmt.Sprintf("%d unrecognized elements share token %q", c.count, token),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Count != suggestions[j].Count {
			return suggestions[i].Count > suggestions[j].Count
		}
		return suggestions[i].Draft.ID < suggestions[j].Draft.ID
	})

	return suggestions
}

// tokens extracts lowercase significant tokens from a type name: letters
// only, at least minToken runes, not already covered by a loaded pattern.
func (s *Suggester) tokens(name string) []string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	var out []string
	for _, f := range fields {
		if len([]rune(f)) < s.minToken {
			continue
		}
		if s.existing[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func sanitizeID(token string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, token)
}

func upperFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
