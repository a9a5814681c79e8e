package testutil

import "github.com/mbagrov/bimtally/internal/model"

// Patterns returns a small pattern table covering the structural,
// architectural and MEP domains, enough to classify the fixture catalogs.
func Patterns() []model.Pattern {
	return []model.Pattern{
		{
			ID:               "structural_wall",
			Label:            "Стены",
			Group:            "structural.wall",
			Keywords:         []string{"стена", "кладка"},
			NegativeKeywords: []string{"перегородка"},
			CanonicalUnit: model.UnitVolume,
		},
		{
			ID:       "structural_slab",
			Label:    "Перекрытия",
			Group:    "structural.slab",
			Keywords: []string{"перекрытие", "плита"},
			CanonicalUnit: model.UnitVolume,
		},
		{
			ID:       "arch_partition",
			Label:    "Перегородки",
			Group:    "architectural.partition",
			Keywords: []string{"перегородка"},
			CanonicalUnit: model.UnitArea,
		},
		{
			ID:       "arch_door",
			Label:    "Двери",
			Group:    "architectural.door",
			Keywords: []string{"дверь"},
			CanonicalUnit: model.UnitCount,
		},
		{
			ID:       "mep_duct",
			Label:    "Воздуховоды",
			Group:    "mep.duct",
			Keywords: []string{"воздуховод"},
			CanonicalUnit: model.UnitArea,
		},
	}
}

// WallCatalog returns a scanned-catalog fixture with recognizable and
// unrecognizable types.
func WallCatalog() model.Catalog {
	return model.Catalog{
		"Walls": {
			TotalCount:    15,
			TotalVolumeM3: 52.5,
			Types: []model.CatalogEntry{
				{TypeName: "Стена монолитная 200мм", Count: 10, VolumeM3: 40.0},
				{TypeName: "Кладка газобетон 300мм", Count: 3, VolumeM3: 12.5},
				{TypeName: "Экран декоративный", Count: 2, VolumeM3: 0},
			},
		},
		"Doors": {
			TotalCount: 8,
			Types: []model.CatalogEntry{
				{TypeName: "Дверь ДГ 21-9", Count: 8},
			},
		},
	}
}

// WallSummary returns a pre-built summary matching WallCatalog's
// recognizable content.
func WallSummary() *model.Summary {
	s := model.NewSummary()
	wall := s.EnsureGroup("structural", "wall")
	wall.Label = "Стены"
	wall.PatternID = "structural_wall"
	wall.TotalCount = 13
	wall.TotalVolumeM3 = 52.5
	door := s.EnsureGroup("architectural", "door")
	door.Label = "Двери"
	door.PatternID = "arch_door"
	door.TotalCount = 8
	s.Meta.PatternsLoaded = len(Patterns())
	return s
}

// BoQLines returns bill lines exercising every reconciliation status
// against WallSummary: within tolerance, far outside it, a zero quantity
// and a line the model knows nothing about.
func BoQLines() []model.BoQLine {
	return []model.BoQLine{
		{Name: "Кладка стен из газобетона", Unit: "м3", Volume: 52.5},
		{Name: "Стена подпорная бетонная", Unit: "м3", Volume: 40.0},
		{Name: "Дверь противопожарная", Unit: "шт", Volume: 0},
		{Name: "Рытье котлована", Unit: "м3", Volume: 1200},
	}
}
