package revit

// CategorySpec is one registry row for the scanner: the exported category
// name, the host's built-in category enum, and which quantities the host can
// compute for elements of this category.
type CategorySpec struct {
	Name      string
	OST       string
	HasVolume bool
	HasArea   bool
	HasLength bool
}

// MaxBatchSize caps how many categories one host snippet may scan. Larger
// batches risk tripping the host's execution timeout on big models.
const MaxBatchSize = 5

// Registry is the single source for scannable categories, in scan batch
// order: structural first, then architectural, then MEP and electrical.
var Registry = []CategorySpec{
	// Structural
	{Name: "Walls", OST: "OST_Walls", HasVolume: true, HasArea: true},
	{Name: "Floors", OST: "OST_Floors", HasVolume: true, HasArea: true},
	{Name: "Roofs", OST: "OST_Roofs", HasVolume: true, HasArea: true},
	{Name: "Ceilings", OST: "OST_Ceilings", HasArea: true},
	{Name: "Columns", OST: "OST_StructuralColumns", HasVolume: true},
	{Name: "StructuralFraming", OST: "OST_StructuralFraming", HasVolume: true, HasLength: true},
	{Name: "StructuralFoundation", OST: "OST_StructuralFoundation", HasVolume: true, HasArea: true},
	{Name: "Ramps", OST: "OST_Ramps", HasArea: true},
	{Name: "Stairs", OST: "OST_Stairs"},
	{Name: "StairsRailing", OST: "OST_StairsRailing", HasLength: true},
	// Architectural
	{Name: "Doors", OST: "OST_Doors"},
	{Name: "Windows", OST: "OST_Windows"},
	{Name: "Furniture", OST: "OST_Furniture"},
	{Name: "FurnitureSystems", OST: "OST_FurnitureSystems"},
	{Name: "CurtainWallPanels", OST: "OST_CurtainWallPanels", HasArea: true},
	{Name: "GenericModel", OST: "OST_GenericModel"},
	{Name: "Casework", OST: "OST_Casework"},
	// MEP
	{Name: "Ducts", OST: "OST_DuctCurves", HasLength: true},
	{Name: "Pipes", OST: "OST_PipeCurves", HasLength: true},
	{Name: "MechanicalEquipment", OST: "OST_MechanicalEquipment"},
	{Name: "PlumbingFixtures", OST: "OST_PlumbingFixtures"},
	{Name: "FlexDucts", OST: "OST_FlexDuctCurves", HasLength: true},
	{Name: "FlexPipes", OST: "OST_FlexPipeCurves", HasLength: true},
	{Name: "DuctAccessory", OST: "OST_DuctAccessory"},
	{Name: "PipeAccessory", OST: "OST_PipeAccessory"},
	// Electrical
	{Name: "ElectricalEquipment", OST: "OST_ElectricalEquipment"},
	{Name: "ElectricalFixtures", OST: "OST_ElectricalFixtures"},
	{Name: "LightingFixtures", OST: "OST_LightingFixtures"},
	{Name: "CableTray", OST: "OST_CableTray", HasLength: true},
	{Name: "Conduit", OST: "OST_Conduit", HasLength: true},
}

var registryByName = func() map[string]CategorySpec {
	m := make(map[string]CategorySpec, len(Registry))
	for _, spec := range Registry {
		m[spec.Name] = spec
	}
	return m
}()

// LookupCategory returns the spec for an exported category name.
func LookupCategory(name string) (CategorySpec, bool) {
	spec, ok := registryByName[name]
	return spec, ok
}

// CategoryNames returns all registry names in scan order.
func CategoryNames() []string {
	names := make([]string, len(Registry))
	for i, spec := range Registry {
		names[i] = spec.Name
	}
	return names
}

// Batches partitions the full registry into scan batches.
func Batches() [][]CategorySpec {
	return batchSpecs(Registry)
}

// BatchesFor resolves the given category names against the registry and
// partitions them into scan batches. Unknown names are returned separately
// so callers can report them without failing the scan.
func BatchesFor(names []string) (batches [][]CategorySpec, unknown []string) {
	var specs []CategorySpec
	for _, name := range names {
		spec, ok := registryByName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		specs = append(specs, spec)
	}
	return batchSpecs(specs), unknown
}

func batchSpecs(specs []CategorySpec) [][]CategorySpec {
	var batches [][]CategorySpec
	for start := 0; start < len(specs); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(specs) {
			end = len(specs)
		}
		batches = append(batches, specs[start:end])
	}
	return batches
}
