package model

// QuantitySource says where a generated VOR position's quantity came from.
type QuantitySource string

const (
	// SourceVolume means the group's volume total was used.
	SourceVolume QuantitySource = "volume"
	// SourceArea means the area total was used.
	SourceArea QuantitySource = "area"
	// SourceLength means the length total was used.
	SourceLength QuantitySource = "length"
	// SourceCount means the element count was used.
	SourceCount QuantitySource = "count"
	// SourceManual means a mapping file supplied the quantity directly.
	SourceManual QuantitySource = "manual"
	// SourceMissing means the mapping names a group the summary lacks.
	SourceMissing QuantitySource = "missing"
)

// VORPosition is one generated bill line.
type VORPosition struct {
	Num       int            `json:"num"`
	Name      string         `json:"name"`
	Unit      string         `json:"unit"`
	Volume    float64        `json:"volume"`
	Group     string         `json:"group"`
	PatternID string         `json:"pattern_id,omitempty"`
	Source    QuantitySource `json:"source"`
}

// SourceLabel renders the position's quantity provenance for report
// columns. BIM-derived quantities name their semantic group.
func (p VORPosition) SourceLabel() string {
	switch p.Source {
	case SourceVolume, SourceArea, SourceLength, SourceCount:
		return "BIM:" + p.Group
	default:
		return string(p.Source)
	}
}

// VORModelStats reports what the generator saw and kept.
type VORModelStats struct {
	GroupsSeen  int `json:"groups_seen"`
	Positions   int `json:"positions"`
	FilteredOut int `json:"filtered_out"`
}

// VORDocument is a generated bill of quantities.
type VORDocument struct {
	Title      string        `json:"title,omitempty"`
	Positions  []VORPosition `json:"positions"`
	TotalCount int           `json:"total_positions"`
	ModelStats VORModelStats `json:"model_stats"`
}

// VORMappingEntry overrides how one semantic group converts to a position.
type VORMappingEntry struct {
	Group        string   `json:"group"`
	Name         string   `json:"name,omitempty"`
	Unit         string   `json:"unit,omitempty"`
	UseArea      bool     `json:"use_area,omitempty"`
	UseCount     bool     `json:"use_count,omitempty"`
	ManualVolume *float64 `json:"manual_volume,omitempty"`
}
