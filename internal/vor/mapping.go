package vor

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mbagrov/bimtally/internal/common"
	"github.com/mbagrov/bimtally/internal/model"
)

// LoadMapping reads a mapping document from disk.
func LoadMapping(path string) ([]model.VORMappingEntry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the caller's request
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}
	entries, err := ParseMapping(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping file %s: %w", path, err)
	}
	return entries, nil
}

// ParseMapping decodes a mapping document: either a bare JSON list of
// entries or an object carrying them under a "positions" key.
func ParseMapping(data []byte) ([]model.VORMappingEntry, error) {
	var bare []model.VORMappingEntry
	if err := json.Unmarshal(data, &bare); err == nil {
		return bare, nil
	}

	var wrapped struct {
		Positions []model.VORMappingEntry `json:"positions"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Positions, nil
}

// Convert walks the mapping in order and pulls each position's quantity
// from the named semantic group. Entries keep their mapping order and are
// numbered from 1. Groups the summary lacks fall back to the entry's
// manual quantity when it carries one and come out marked missing
// otherwise.
func Convert(summary *model.Summary, mapping []model.VORMappingEntry, title string) (*model.VORDocument, error) {
	if summary == nil {
		return nil, fmt.Errorf("%w: no summary to convert from", common.ErrValidation)
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("%w: mapping has no positions", common.ErrValidation)
	}

	positions := make([]model.VORPosition, 0, len(mapping))
	for i, entry := range mapping {
		top, sub := model.SplitGroup(entry.Group)
		grp := summary.Group(top, sub)

		pos := model.VORPosition{
			Num:   i + 1,
			Name:  entry.Name,
			Unit:  entry.Unit,
			Group: entry.Group,
		}

		switch {
		case grp != nil:
			pos.PatternID = grp.PatternID
			if pos.Name == "" {
				pos.Name = grp.Label
			}
			switch {
			case entry.UseCount:
				pos.Volume = float64(grp.TotalCount)
				pos.Source = model.SourceCount
				pos.Unit = unitOr(pos.Unit, "шт")
			case entry.UseArea:
				pos.Volume = round3(grp.TotalAreaM2)
				pos.Source = model.SourceArea
				pos.Unit = unitOr(pos.Unit, "м2")
			default:
				pos.Volume = round3(grp.TotalVolumeM3)
				pos.Source = model.SourceVolume
				pos.Unit = unitOr(pos.Unit, "м3")
			}
		case entry.ManualVolume != nil:
			pos.Volume = *entry.ManualVolume
			pos.Source = model.SourceManual
			pos.Unit = unitOr(pos.Unit, "м3")
		default:
			pos.Source = model.SourceMissing
		}

		if pos.Name == "" {
			pos.Name = entry.Group
		}
		positions = append(positions, pos)
	}

	return &model.VORDocument{
		Title:      title,
		Positions:  positions,
		TotalCount: len(positions),
		ModelStats: model.VORModelStats{
			GroupsSeen: summary.GroupCount(),
			Positions:  len(positions),
		},
	}, nil
}

func unitOr(unit, fallback string) string {
	if unit != "" {
		return unit
	}
	return fallback
}
