// Package model defines the core data structures for the bimtally application.
package model

import "strings"

// Unit identifies the physical quantity a semantic group is measured in.
type Unit string

const (
	// UnitVolume is cubic meters.
	UnitVolume Unit = "m3"
	// UnitArea is square meters.
	UnitArea Unit = "m2"
	// UnitLength is linear meters.
	UnitLength Unit = "m"
	// UnitCount is piece count.
	UnitCount Unit = "count"
)

// DefaultPatternPriority is assumed when a pattern carries no priority.
const DefaultPatternPriority = 10

// Pattern is one classification rule: a set of case-insensitive keyword
// substrings (plus optional regexes) that map a raw element type name or a
// bill-of-quantities line onto a semantic group.
type Pattern struct {
	ID               string   `json:"id"`
	Label            string   `json:"label,omitempty"`
	Group            string   `json:"group"`
	Keywords         []string `json:"keywords"`
	NegativeKeywords []string `json:"negative_keywords,omitempty"`
	Regex            []string `json:"regex,omitempty"`
	Categories       []string `json:"categories,omitempty"`
	Priority         int      `json:"priority,omitempty"`
	CanonicalUnit    Unit     `json:"unit,omitempty"`
}

// GroupKeys splits the dotted group into its top-level domain and subgroup.
// "structural.monolith" yields ("structural", "monolith"); a group without a
// dot lands entirely in the top key with an empty subgroup.
func (p Pattern) GroupKeys() (top, sub string) {
	return SplitGroup(p.Group)
}

// SplitGroup splits a dotted group key on the first dot.
func SplitGroup(group string) (top, sub string) {
	if i := strings.Index(group, "."); i >= 0 {
		return group[:i], group[i+1:]
	}
	return group, ""
}

// EffectivePriority returns the pattern priority, substituting the default
// for an unset (zero) value.
func (p Pattern) EffectivePriority() int {
	if p.Priority == 0 {
		return DefaultPatternPriority
	}
	return p.Priority
}

// DisplayLabel returns the label, falling back to the group key when the
// pattern was authored without one.
func (p Pattern) DisplayLabel() string {
	if p.Label != "" {
		return p.Label
	}
	return p.Group
}
