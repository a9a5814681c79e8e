// Package pattern provides loading, validation, and priority-aware matching
// of semantic classification patterns.
package pattern

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mbagrov/bimtally/internal/model"
)

// Score orders match candidates: priority first, then the length of the
// longest matched keyword. A regex-only hit scores keyword length 0, weaker
// than any keyword match at the same priority.
type Score struct {
	Priority      int
	KeywordLength int
}

// Beats reports whether s strictly outranks other. Equal scores do not beat
// each other, which keeps selection stable in pattern input order.
func (s Score) Beats(other Score) bool {
	if s.Priority != other.Priority {
		return s.Priority > other.Priority
	}
	return s.KeywordLength > other.KeywordLength
}

// Matcher classifies free-text names against a fixed pattern set.
type Matcher struct {
	compiledRegex map[string][]*regexp.Regexp
	patterns      []model.Pattern
}

// NewMatcher creates a matcher over the given patterns. Regexes are compiled
// once up front; patterns whose regexes fail to compile keep their keyword
// matching and lose only the broken expression.
func NewMatcher(patterns []model.Pattern) *Matcher {
	m := &Matcher{
		patterns:      patterns,
		compiledRegex: make(map[string][]*regexp.Regexp),
	}

	for _, p := range patterns {
		for _, expr := range p.Regex {
			if re, err := regexp.Compile(expr); err == nil {
				m.compiledRegex[p.ID] = append(m.compiledRegex[p.ID], re)
			}
		}
	}

	return m
}

// Patterns returns the pattern set the matcher was built over.
func (m *Matcher) Patterns() []model.Pattern {
	return m.patterns
}

// Match finds the best pattern for a candidate name. allowedCategory
// restricts category-scoped patterns; pass "" for category-agnostic
// matching (BoQ lines carry no category tag, so reconciliation always
// matches unrestricted).
//
// Selection: negative keywords veto outright; otherwise the candidate with
// the highest (priority, matched keyword length) wins, ties resolved by
// pattern input order.
func (m *Matcher) Match(name, allowedCategory string) (*model.Pattern, bool) {
	lower := strings.ToLower(name)
	if strings.TrimSpace(lower) == "" {
		return nil, false
	}

	var (
		best      *model.Pattern
		bestScore Score
		found     bool
	)

	for i := range m.patterns {
		p := &m.patterns[i]

		if !categoryAllowed(p, allowedCategory) {
			continue
		}
		if vetoed(p, lower) {
			continue
		}

		score, ok := m.score(p, lower)
		if !ok {
			continue
		}
		if !found || score.Beats(bestScore) {
			best = p
			bestScore = score
			found = true
		}
	}

	return best, found
}

// score computes the match strength of one pattern against the lowercased
// candidate, reporting whether the pattern qualifies at all.
func (m *Matcher) score(p *model.Pattern, lower string) (Score, bool) {
	// Keyword length counts runes, not bytes, so Cyrillic and Latin
	// keywords tie-break on the same scale.
	longest := 0
	for _, kw := range p.Keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			if n := utf8.RuneCountInString(kw); n > longest {
				longest = n
			}
		}
	}

	if longest > 0 {
		return Score{Priority: p.EffectivePriority(), KeywordLength: longest}, true
	}

	for _, re := range m.compiledRegex[p.ID] {
		if re.MatchString(lower) {
			return Score{Priority: p.EffectivePriority(), KeywordLength: 0}, true
		}
	}

	return Score{}, false
}

func categoryAllowed(p *model.Pattern, category string) bool {
	if len(p.Categories) == 0 || category == "" {
		return true
	}
	for _, c := range p.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

func vetoed(p *model.Pattern, lower string) bool {
	for _, neg := range p.NegativeKeywords {
		neg = strings.ToLower(neg)
		if neg != "" && strings.Contains(lower, neg) {
			return true
		}
	}
	return false
}
