package docmodel

import "github.com/roach88/cadbridge/internal/units"

// classCategory is the built-in category a class lands in when the caller
// does not name one.
var classCategory = map[Class]string{
	ClassWall:         "OST_Walls",
	ClassWallType:     "OST_Walls",
	ClassFloor:        "OST_Floors",
	ClassFloorType:    "OST_Floors",
	ClassLevel:        "OST_Levels",
	ClassGrid:         "OST_Grids",
	ClassView:         "OST_Views",
	ClassMEPCurve:     "OST_DuctCurves",
	ClassMEPCurveType: "OST_DuctCurves",
}

// DefaultCategory returns the category id for class, or InvalidElementID.
func DefaultCategory(class Class) ElementID {
	if c, ok := LookupBuiltInCategory(classCategory[class]); ok {
		return c.ID
	}
	return InvalidElementID
}

// IsTypeClass reports whether class is an element type.
func IsTypeClass(class Class) bool {
	switch class {
	case ClassWallType, ClassFloorType, ClassFamilySymbol, ClassMEPCurveType:
		return true
	}
	return false
}

// KnownClass reports whether class has a template.
func KnownClass(class Class) bool {
	_, ok := templates[class]
	return ok
}

func text(name, builtIn string, readOnly bool) Parameter {
	return Parameter{Name: name, BuiltIn: builtIn, Storage: StorageString, ReadOnly: readOnly, Value: ParamValue{Ref: InvalidElementID}}
}

func integer(name, builtIn string, readOnly bool) Parameter {
	return Parameter{Name: name, BuiltIn: builtIn, Storage: StorageInteger, ReadOnly: readOnly, Value: IntValue(0)}
}

func double(name, builtIn string, unit units.Kind, readOnly bool) Parameter {
	return Parameter{Name: name, BuiltIn: builtIn, Storage: StorageDouble, Unit: unit, ReadOnly: readOnly, Value: DoubleValue(0)}
}

func ref(name, builtIn string, readOnly bool) Parameter {
	return Parameter{Name: name, BuiltIn: builtIn, Storage: StorageElementID, ReadOnly: readOnly, Value: RefValue(InvalidElementID)}
}

var templates = map[Class][]Parameter{
	ClassWall: {
		text("Comments", "ALL_MODEL_INSTANCE_COMMENTS", false),
		text("Mark", "ALL_MODEL_MARK", false),
		ref("Base Constraint", "WALL_BASE_CONSTRAINT", false),
		double("Base Offset", "WALL_BASE_OFFSET", units.Length, false),
		double("Unconnected Height", "WALL_USER_HEIGHT_PARAM", units.Length, false),
		integer("Structural", "WALL_STRUCTURAL_SIGNIFICANT", false),
		double("Length", "CURVE_ELEM_LENGTH", units.Length, true),
		double("Area", "HOST_AREA_COMPUTED", units.Area, true),
	},
	ClassWallType: {
		text("Type Comments", "ALL_MODEL_TYPE_COMMENTS", false),
		text("Type Mark", "ALL_MODEL_TYPE_MARK", false),
		text("Description", "ALL_MODEL_DESCRIPTION", false),
		double("Width", "WALL_ATTR_WIDTH_PARAM", units.Length, true),
		integer("Function", "FUNCTION_PARAM", false),
		double("Cost", "ALL_MODEL_COST", units.None, false),
	},
	ClassFloor: {
		text("Comments", "ALL_MODEL_INSTANCE_COMMENTS", false),
		text("Mark", "ALL_MODEL_MARK", false),
		double("Height Offset From Level", "FLOOR_HEIGHTABOVELEVEL_PARAM", units.Length, false),
		double("Area", "HOST_AREA_COMPUTED", units.Area, true),
		double("Volume", "HOST_VOLUME_COMPUTED", units.Volume, true),
	},
	ClassFloorType: {
		text("Type Comments", "ALL_MODEL_TYPE_COMMENTS", false),
		double("Default Thickness", "FLOOR_ATTR_THICKNESS_PARAM", units.Length, true),
	},
	ClassLevel: {
		double("Elevation", "LEVEL_ELEV", units.Length, false),
		integer("Building Story", "LEVEL_IS_BUILDING_STORY", false),
	},
	ClassGrid: {
		text("Name", "DATUM_TEXT", false),
	},
	ClassView: {
		integer("View Scale", "VIEW_SCALE", false),
		integer("Detail Level", "VIEW_DETAIL_LEVEL", false),
		integer("Discipline", "VIEW_DISCIPLINE", false),
		text("Title on Sheet", "VIEW_DESCRIPTION", false),
	},
	ClassFamilySymbol: {
		text("Type Comments", "ALL_MODEL_TYPE_COMMENTS", false),
		text("Type Mark", "ALL_MODEL_TYPE_MARK", false),
		double("Width", "DOOR_WIDTH", units.Length, false),
		double("Height", "DOOR_HEIGHT", units.Length, false),
		double("Cost", "ALL_MODEL_COST", units.None, false),
	},
	ClassFamilyInstance: {
		text("Comments", "ALL_MODEL_INSTANCE_COMMENTS", false),
		text("Mark", "ALL_MODEL_MARK", false),
		ref("Level", "FAMILY_LEVEL_PARAM", true),
		double("Sill Height", "INSTANCE_SILL_HEIGHT_PARAM", units.Length, false),
	},
	ClassMEPCurve: {
		text("Comments", "ALL_MODEL_INSTANCE_COMMENTS", false),
		text("Mark", "ALL_MODEL_MARK", false),
		ref("Reference Level", "RBS_START_LEVEL_PARAM", false),
		double("Offset", "RBS_OFFSET_PARAM", units.Length, false),
		double("Diameter", "RBS_CURVE_DIAMETER_PARAM", units.Length, false),
		double("Length", "CURVE_ELEM_LENGTH", units.Length, true),
	},
	ClassMEPCurveType: {
		text("Type Comments", "ALL_MODEL_TYPE_COMMENTS", false),
	},
}

// DefaultParameters returns a fresh copy of the parameters a new element of
// class carries, in display order.
func DefaultParameters(class Class) []Parameter {
	src := templates[class]
	out := make([]Parameter, len(src))
	copy(out, src)
	return out
}

// MergeParameters overlays extra onto base by name. A matching name keeps
// its definition and takes extra's value; anything new is appended.
func MergeParameters(base, extra []Parameter) []Parameter {
	out := append([]Parameter(nil), base...)
	for _, p := range extra {
		replaced := false
		for i := range out {
			if out[i].Name == p.Name {
				if p.Storage == out[i].Storage || p.Storage == StorageNone {
					out[i].Value = p.Value
				} else {
					out[i] = p
				}
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return out
}
