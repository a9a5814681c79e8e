package pattern

import (
	"fmt"
	"regexp"

	"github.com/mbagrov/bimtally/internal/model"
)

var validUnits = map[model.Unit]bool{
	"":               true,
	model.UnitVolume: true,
	model.UnitArea:   true,
	model.UnitLength: true,
	model.UnitCount:  true,
}

// Validate filters a pattern set down to usable patterns. Patterns missing
// an id, group, or keywords are dropped, as are duplicates of an already
// seen id; broken regexes drop only the expression, not the pattern. The
// returned problems list describes every drop for logging.
func Validate(patterns []model.Pattern) (valid []model.Pattern, problems []string) {
	seen := make(map[string]bool, len(patterns))

	for i, p := range patterns {
		switch {
		case p.ID == "":
			problems = append(problems, fmt.Sprintf("pattern %d: missing id", i))
			continue
		case seen[p.ID]:
			problems = append(problems, fmt.Sprintf("pattern %q: duplicate id", p.ID))
			continue
		case p.Group == "":
			problems = append(problems, fmt.Sprintf("pattern %q: missing group", p.ID))
			continue
		case len(p.Keywords) == 0 && len(p.Regex) == 0:
			problems = append(problems, fmt.Sprintf("pattern %q: no keywords or regex", p.ID))
			continue
		case !validUnits[p.CanonicalUnit]:
			problems = append(problems, fmt.Sprintf("pattern %q: unknown unit %q", p.ID, p.CanonicalUnit))
			continue
		}

		var exprs []string
		for _, expr := range p.Regex {
			if _, err := regexp.Compile(expr); err != nil {
				problems = append(problems, fmt.Sprintf("pattern %q: bad regex %q: %v", p.ID, expr, err))
				continue
			}
			exprs = append(exprs, expr)
		}
		p.Regex = exprs

		seen[p.ID] = true
		valid = append(valid, p)
	}

	return valid, problems
}
