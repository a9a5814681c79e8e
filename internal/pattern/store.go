package pattern

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/mbagrov/bimtally/internal/model"
)

// Store holds one loaded, validated pattern set. Patterns are immutable
// after load; reloading means building a new Store.
type Store struct {
	patterns []model.Pattern
	source   string
}

// Load reads patterns from the given JSON file. An empty path loads the
// compiled-in default set. Load fails soft: any read or parse problem logs
// a warning and yields an empty store, because "no patterns" is a
// reportable condition for callers, not a crash.
func Load(path string) *Store {
	if path == "" {
		return &Store{patterns: validateAndLog(DefaultPatterns()), source: "builtin"}
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		slog.Warn("pattern file unreadable, continuing with no patterns",
			"path", path, "error", err)
		return &Store{source: path}
	}

	patterns, err := Parse(data)
	if err != nil {
		slog.Warn("pattern file malformed, continuing with no patterns",
			"path", path, "error", err)
		return &Store{source: path}
	}

	return &Store{patterns: validateAndLog(patterns), source: path}
}

// Parse decodes a pattern document: either a bare JSON list of patterns or
// an object carrying them under a "patterns" key.
func Parse(data []byte) ([]model.Pattern, error) {
	var bare []model.Pattern
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}

	var wrapped struct {
		Patterns []model.Pattern `json:"patterns"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Patterns, nil
}

func validateAndLog(patterns []model.Pattern) []model.Pattern {
	valid, problems := Validate(patterns)
	for _, p := range problems {
		slog.Warn("pattern dropped", "reason", p)
	}
	return valid
}

// Patterns returns the loaded pattern set.
func (s *Store) Patterns() []model.Pattern {
	return s.patterns
}

// Len reports how many patterns survived validation.
func (s *Store) Len() int {
	return len(s.patterns)
}

// Source names where the patterns came from ("builtin" or a file path).
func (s *Store) Source() string {
	return s.source
}
