package docmodel

import "strings"

// BuiltInParameter is an entry of the fixed built-in parameter vocabulary.
type BuiltInParameter struct {
	Name string
	ID   int64
}

// builtInParameters is the host's enumerated vocabulary of well-known
// parameter slots. Lookup is by exact symbolic name.
var builtInParameters = []BuiltInParameter{
	{"ALL_MODEL_INSTANCE_COMMENTS", -1010106},
	{"ALL_MODEL_MARK", -1001203},
	{"ALL_MODEL_TYPE_COMMENTS", -1010103},
	{"ALL_MODEL_TYPE_MARK", -1002002},
	{"ALL_MODEL_DESCRIPTION", -1010104},
	{"ALL_MODEL_COST", -1001205},
	{"WALL_USER_HEIGHT_PARAM", -1001300},
	{"WALL_BASE_CONSTRAINT", -1001107},
	{"WALL_BASE_OFFSET", -1001108},
	{"WALL_STRUCTURAL_SIGNIFICANT", -1001128},
	{"WALL_ATTR_WIDTH_PARAM", -1001000},
	{"FUNCTION_PARAM", -1001101},
	{"CURVE_ELEM_LENGTH", -1004005},
	{"HOST_AREA_COMPUTED", -1012805},
	{"HOST_VOLUME_COMPUTED", -1012806},
	{"LEVEL_ELEV", -1007000},
	{"LEVEL_IS_BUILDING_STORY", -1007003},
	{"DATUM_TEXT", -1002503},
	{"VIEW_SCALE", -1005500},
	{"VIEW_DETAIL_LEVEL", -1005503},
	{"VIEW_DISCIPLINE", -1005507},
	{"VIEW_DESCRIPTION", -1005508},
	{"FLOOR_HEIGHTABOVELEVEL_PARAM", -1001516},
	{"FLOOR_ATTR_THICKNESS_PARAM", -1001500},
	{"FAMILY_LEVEL_PARAM", -1001352},
	{"INSTANCE_SILL_HEIGHT_PARAM", -1001364},
	{"DOOR_WIDTH", -1001701},
	{"DOOR_HEIGHT", -1001702},
	{"RBS_START_LEVEL_PARAM", -1140350},
	{"RBS_CURVE_DIAMETER_PARAM", -1140220},
	{"RBS_OFFSET_PARAM", -1140144},
}

var builtInIndex = func() map[string]BuiltInParameter {
	m := make(map[string]BuiltInParameter, len(builtInParameters))
	for _, p := range builtInParameters {
		m[p.Name] = p
	}
	return m
}()

// LookupBuiltIn resolves a built-in parameter by exact symbolic name.
func LookupBuiltIn(name string) (BuiltInParameter, bool) {
	p, ok := builtInIndex[name]
	return p, ok
}

// BuiltInParameters returns the vocabulary in declaration order.
func BuiltInParameters() []BuiltInParameter {
	return append([]BuiltInParameter(nil), builtInParameters...)
}

// BuiltInCategories is the host's fixed category catalog. Every document
// starts with these entries.
var BuiltInCategories = []Category{
	{ID: -2000011, BuiltIn: "OST_Walls", Name: "Walls"},
	{ID: -2000014, BuiltIn: "OST_Windows", Name: "Windows"},
	{ID: -2000023, BuiltIn: "OST_Doors", Name: "Doors"},
	{ID: -2000032, BuiltIn: "OST_Floors", Name: "Floors"},
	{ID: -2000080, BuiltIn: "OST_Furniture", Name: "Furniture"},
	{ID: -2000151, BuiltIn: "OST_GenericModel", Name: "Generic Models"},
	{ID: -2000160, BuiltIn: "OST_Rooms", Name: "Rooms"},
	{ID: -2000220, BuiltIn: "OST_Grids", Name: "Grids"},
	{ID: -2000240, BuiltIn: "OST_Levels", Name: "Levels"},
	{ID: -2000279, BuiltIn: "OST_Views", Name: "Views"},
	{ID: -2001330, BuiltIn: "OST_StructuralColumns", Name: "Structural Columns"},
	{ID: -2008000, BuiltIn: "OST_DuctCurves", Name: "Ducts"},
	{ID: -2008044, BuiltIn: "OST_PipeCurves", Name: "Pipes"},
}

// LookupBuiltInCategory resolves a system category identifier. The OST_
// prefix is optional and case is ignored, as the host's enum parse does.
func LookupBuiltInCategory(token string) (Category, bool) {
	t := strings.TrimSpace(token)
	for _, c := range BuiltInCategories {
		if strings.EqualFold(c.BuiltIn, t) || strings.EqualFold(strings.TrimPrefix(c.BuiltIn, "OST_"), t) {
			return c, true
		}
	}
	return Category{}, false
}
