package model

// SearchFilter is one parameter condition in an element search. Op is one of
// eq, ne, gt, ge, lt, le, contains; Value stays a string until the host
// snippet decides whether to compare numerically.
type SearchFilter struct {
	Param string `json:"param"`
	Op    string `json:"op"`
	Value string `json:"value"`
}

// QuerySpec is a structured element query, either extracted from natural
// language or assembled directly by a caller. Colorize asks the host to
// highlight the matching elements in the active view.
type QuerySpec struct {
	Category string         `json:"category,omitempty"`
	Level    string         `json:"level,omitempty"`
	Filters  []SearchFilter `json:"filters,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Colorize bool           `json:"colorize,omitempty"`
	Color    string         `json:"color,omitempty"`
}

// Empty reports whether the spec carries no usable constraints at all.
func (q QuerySpec) Empty() bool {
	return q.Category == "" && q.Level == "" && len(q.Filters) == 0
}
