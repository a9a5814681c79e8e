package pattern

import "github.com/mbagrov/bimtally/internal/model"

// DefaultPatterns returns the compiled-in classification pattern set, used
// when no pattern file is configured. Curated, specific patterns carry
// higher priority than the generic catch-alls so that e.g. a masonry wall
// never lands in the monolith group just because both mention walls.
func DefaultPatterns() []model.Pattern {
	return []model.Pattern{
		// Structural
		{
			ID:               "structural_monolith_wall",
			Label:            "Монолитные стены",
			Group:            "structural.monolith_wall",
			Keywords:         []string{"монолитная стена", "стена железобетон", "стена жб", "стена ж/б"},
			NegativeKeywords: []string{"кладка", "кирпич", "перегородка"},
			Categories:       []string{"Walls"},
			Priority:         20,
			CanonicalUnit:    model.UnitVolume,
		},
		{
			ID:               "structural_masonry_wall",
			Label:            "Кладка стен",
			Group:            "structural.masonry_wall",
			Keywords:         []string{"кладка", "кирпичная стена", "стена кирпич", "газобетон", "газоблок", "пеноблок", "керамзитоблок"},
			NegativeKeywords: []string{"перегородка"},
			Categories:       []string{"Walls"},
			Priority:         18,
			CanonicalUnit:    model.UnitVolume,
		},
		{
			ID:               "structural_wall",
			Label:            "Стены несущие",
			Group:            "structural.wall",
			Keywords:         []string{"несущая стена", "стена"},
			NegativeKeywords: []string{"перегородка", "витраж", "навесная"},
			Categories:       []string{"Walls"},
			Priority:         10,
			CanonicalUnit:    model.UnitVolume,
		},
		{
			ID:            "structural_slab",
			Label:         "Плиты перекрытий",
			Group:         "structural.slab",
			Keywords:      []string{"плита перекрытия", "монолитная плита", "перекрытие"},
			Regex:         []string{`перекрыти[ея]`},
			Categories:    []string{"Floors"},
			Priority:      16,
			CanonicalUnit: model.UnitVolume,
		},
		{
			ID:            "structural_column",
			Label:         "Колонны",
			Group:         "structural.column",
			Keywords:      []string{"колонна", "пилон"},
			Categories:    []string{"Columns", "StructuralFraming"},
			Priority:      15,
			CanonicalUnit: model.UnitVolume,
		},
		{
			ID:            "structural_beam",
			Label:         "Балки и ригели",
			Group:         "structural.beam",
			Keywords:      []string{"балка", "ригель", "прогон"},
			Categories:    []string{"StructuralFraming"},
			Priority:      15,
			CanonicalUnit: model.UnitVolume,
		},
		{
			ID:            "structural_foundation",
			Label:         "Фундаменты",
			Group:         "structural.foundation",
			Keywords:      []string{"фундамент", "ростверк", "свая", "подбетонка", "фундаментная плита"},
			Categories:    []string{"StructuralFoundation", "Floors", "Walls"},
			Priority:      18,
			CanonicalUnit: model.UnitVolume,
		},
		{
			ID:            "structural_stairs",
			Label:         "Лестницы",
			Group:         "structural.stairs",
			Keywords:      []string{"лестничный марш", "лестница"},
			Categories:    []string{"Stairs"},
			Priority:      12,
			CanonicalUnit: model.UnitVolume,
		},
		{
			ID:            "structural_ramp",
			Label:         "Пандусы",
			Group:         "structural.ramp",
			Keywords:      []string{"пандус", "рампа"},
			Categories:    []string{"Ramps"},
			Priority:      12,
			CanonicalUnit: model.UnitVolume,
		},

		// Architectural
		{
			ID:            "arch_partition",
			Label:         "Перегородки",
			Group:         "architectural.partition",
			Keywords:      []string{"перегородка", "гипсокартон", "гкл", "пазогребн"},
			Categories:    []string{"Walls"},
			Priority:      18,
			CanonicalUnit: model.UnitArea,
		},
		{
			ID:            "arch_facade",
			Label:         "Фасадные конструкции",
			Group:         "architectural.facade",
			Keywords:      []string{"витраж", "фасад", "навесная стена"},
			Categories:    []string{"Walls", "CurtainWallPanels"},
			Priority:      15,
			CanonicalUnit: model.UnitArea,
		},
		{
			ID:            "arch_door",
			Label:         "Двери",
			Group:         "architectural.door",
			Keywords:      []string{"дверь", "дверной блок", "ворота"},
			Categories:    []string{"Doors"},
			Priority:      12,
			CanonicalUnit: model.UnitCount,
		},
		{
			ID:            "arch_window",
			Label:         "Окна",
			Group:         "architectural.window",
			Keywords:      []string{"окно", "оконный блок"},
			Categories:    []string{"Windows"},
			Priority:      12,
			CanonicalUnit: model.UnitCount,
		},
		{
			ID:            "arch_ceiling",
			Label:         "Потолки",
			Group:         "architectural.ceiling",
			Keywords:      []string{"потолок", "подвесной"},
			Categories:    []string{"Ceilings"},
			Priority:      12,
			CanonicalUnit: model.UnitArea,
		},
		{
			ID:            "arch_roof",
			Label:         "Кровля",
			Group:         "architectural.roof",
			Keywords:      []string{"кровля", "крыша"},
			Categories:    []string{"Roofs"},
			Priority:      12,
			CanonicalUnit: model.UnitArea,
		},
		{
			ID:            "arch_railing",
			Label:         "Ограждения",
			Group:         "architectural.railing",
			Keywords:      []string{"ограждение", "перила", "поручень"},
			Categories:    []string{"StairsRailing"},
			Priority:      12,
			CanonicalUnit: model.UnitLength,
		},
		{
			ID:            "arch_finish",
			Label:         "Отделочные работы",
			Group:         "architectural.finish",
			Keywords:      []string{"штукатурка", "окраска", "облицовка", "стяжка", "плитка"},
			Categories:    []string{"Walls", "Ceilings", "Floors"},
			Priority:      14,
			CanonicalUnit: model.UnitArea,
		},
		{
			ID:            "arch_furniture",
			Label:         "Мебель и оборудование",
			Group:         "architectural.furniture",
			Keywords:      []string{"мебель", "шкаф", "стеллаж"},
			Categories:    []string{"Furniture", "FurnitureSystems", "Casework"},
			Priority:      10,
			CanonicalUnit: model.UnitCount,
		},

		// Generic models that resist finer classification
		{
			ID:            "generic_model",
			Label:         "Обобщённые модели",
			Group:         "generic.model",
			Keywords:      []string{"обобщенная модель", "обобщённая модель"},
			Regex:         []string{`generic\s*model`},
			Categories:    []string{"GenericModel"},
			Priority:      5,
			CanonicalUnit: model.UnitCount,
		},

		// MEP
		{
			ID:            "mep_duct",
			Label:         "Воздуховоды",
			Group:         "mep.duct",
			Keywords:      []string{"воздуховод"},
			Categories:    []string{"Ducts", "FlexDucts"},
			Priority:      12,
			CanonicalUnit: model.UnitLength,
		},
		{
			ID:            "mep_duct_accessory",
			Label:         "Арматура воздуховодов",
			Group:         "mep.duct_accessory",
			Keywords:      []string{"клапан", "решетка", "решётка", "заслонка", "диффузор"},
			Categories:    []string{"DuctAccessory"},
			Priority:      12,
			CanonicalUnit: model.UnitCount,
		},
		{
			ID:            "mep_pipe",
			Label:         "Трубопроводы",
			Group:         "mep.pipe",
			Keywords:      []string{"трубопровод", "труба"},
			Regex:         []string{`труб[аы]\s*d?\s*\d+`},
			Categories:    []string{"Pipes", "FlexPipes"},
			Priority:      12,
			CanonicalUnit: model.UnitLength,
		},
		{
			ID:            "mep_pipe_accessory",
			Label:         "Трубопроводная арматура",
			Group:         "mep.pipe_accessory",
			Keywords:      []string{"кран", "вентиль", "задвижка", "фильтр"},
			Categories:    []string{"PipeAccessory"},
			Priority:      12,
			CanonicalUnit: model.UnitCount,
		},
		{
			ID:            "mep_mech_equipment",
			Label:         "Механическое оборудование",
			Group:         "mep.mech_equipment",
			Keywords:      []string{"вентустановка", "вентилятор", "насос", "чиллер", "калорифер", "агрегат"},
			Categories:    []string{"MechanicalEquipment"},
			Priority:      12,
			CanonicalUnit: model.UnitCount,
		},
		{
			ID:            "mep_plumbing",
			Label:         "Сантехнические приборы",
			Group:         "mep.plumbing",
			Keywords:      []string{"унитаз", "раковина", "смеситель", "мойка", "душ", "ванна"},
			Categories:    []string{"PlumbingFixtures"},
			Priority:      12,
			CanonicalUnit: model.UnitCount,
		},
		{
			ID:            "mep_electrical",
			Label:         "Электрооборудование",
			Group:         "mep.electrical",
			Keywords:      []string{"щит", "шкаф управления", "розетка", "выключатель"},
			Categories:    []string{"ElectricalEquipment", "ElectricalFixtures"},
			Priority:      12,
			CanonicalUnit: model.UnitCount,
		},
		{
			ID:            "mep_lighting",
			Label:         "Светильники",
			Group:         "mep.lighting",
			Keywords:      []string{"светильник", "прожектор", "лампа"},
			Categories:    []string{"LightingFixtures"},
			Priority:      12,
			CanonicalUnit: model.UnitCount,
		},
		{
			ID:            "mep_cable_tray",
			Label:         "Кабельные лотки",
			Group:         "mep.cable_tray",
			Keywords:      []string{"лоток", "кабельный лоток"},
			Categories:    []string{"CableTray"},
			Priority:      12,
			CanonicalUnit: model.UnitLength,
		},
		{
			ID:            "mep_conduit",
			Label:         "Кабелепроводы",
			Group:         "mep.conduit",
			Keywords:      []string{"кабелепровод", "гофротруба"},
			Categories:    []string{"Conduit"},
			Priority:      12,
			CanonicalUnit: model.UnitLength,
		},
	}
}
