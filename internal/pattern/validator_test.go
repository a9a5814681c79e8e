package pattern

import (
	"testing"

	"github.com/mbagrov/bimtally/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name         string
		patterns     []model.Pattern
		wantIDs      []string
		wantProblems int
	}{
		{
			name: "valid pattern passes",
			patterns: []model.Pattern{
				{ID: "a", Group: "structural.wall", Keywords: []string{"стена"}},
			},
			wantIDs: []string{"a"},
		},
		{
			name: "missing id dropped",
			patterns: []model.Pattern{
				{Group: "structural.wall", Keywords: []string{"стена"}},
			},
			wantIDs:      nil,
			wantProblems: 1,
		},
		{
			name: "duplicate id dropped",
			patterns: []model.Pattern{
				{ID: "a", Group: "structural.wall", Keywords: []string{"стена"}},
				{ID: "a", Group: "structural.slab", Keywords: []string{"плита"}},
			},
			wantIDs:      []string{"a"},
			wantProblems: 1,
		},
		{
			name: "missing group dropped",
			patterns: []model.Pattern{
				{ID: "a", Keywords: []string{"стена"}},
			},
			wantIDs:      nil,
			wantProblems: 1,
		},
		{
			name: "no keywords and no regex dropped",
			patterns: []model.Pattern{
				{ID: "a", Group: "structural.wall"},
			},
			wantIDs:      nil,
			wantProblems: 1,
		},
		{
			name: "regex only is enough",
			patterns: []model.Pattern{
				{ID: "a", Group: "structural.slab", Regex: []string{`перекрыти[ея]`}},
			},
			wantIDs: []string{"a"},
		},
		{
			name: "unknown unit dropped",
			patterns: []model.Pattern{
				{ID: "a", Group: "structural.wall", Keywords: []string{"стена"}, CanonicalUnit: "furlongs"},
			},
			wantIDs:      nil,
			wantProblems: 1,
		},
		{
			name: "broken regex drops expression not pattern",
			patterns: []model.Pattern{
				{ID: "a", Group: "structural.wall", Keywords: []string{"стена"}, Regex: []string{"(("}},
			},
			wantIDs:      []string{"a"},
			wantProblems: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, problems := Validate(tt.patterns)

			var ids []string
			for _, p := range valid {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Len(t, problems, tt.wantProblems)
		})
	}
}

func TestValidate_BrokenRegexRemovedFromPattern(t *testing.T) {
	valid, _ := Validate([]model.Pattern{
		{ID: "a", Group: "g.s", Keywords: []string{"k"}, Regex: []string{"((", `ok[ае]`}},
	})

	require.Len(t, valid, 1)
	assert.Equal(t, []string{`ok[ае]`}, valid[0].Regex)
}
