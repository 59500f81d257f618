package docmodel

import (
	"fmt"

	"github.com/roach88/cadbridge/internal/units"
)

// ElementID identifies an element, a category or a view. Built-in
// categories use negative ids; model elements are positive.
type ElementID int64

// InvalidElementID marks an unset reference.
const InvalidElementID ElementID = -1

// IsValid reports whether id refers to something.
func (id ElementID) IsValid() bool {
	return id != InvalidElementID && id != 0
}

// Class is the host class of an element.
type Class string

const (
	ClassWall           Class = "Wall"
	ClassWallType       Class = "WallType"
	ClassFloor          Class = "Floor"
	ClassFloorType      Class = "FloorType"
	ClassLevel          Class = "Level"
	ClassGrid           Class = "Grid"
	ClassView           Class = "View"
	ClassFamilySymbol   Class = "FamilySymbol"
	ClassFamilyInstance Class = "FamilyInstance"
	ClassMEPCurve       Class = "MEPCurve"
	ClassMEPCurveType   Class = "MEPCurveType"
)

// Element is one addressable object in the document.
type Element struct {
	ID         ElementID
	Class      Class
	Name       string
	CategoryID ElementID // InvalidElementID when uncategorized
	TypeID     ElementID // defining type, InvalidElementID for types
	LevelID    ElementID // InvalidElementID when not level-hosted
	FamilyName string
	IsType     bool
}

// Category is an entry of the document's category catalog.
type Category struct {
	ID      ElementID
	BuiltIn string // system identifier, e.g. OST_Walls
	Name    string // display name
}

// StorageKind is how a parameter stores its value.
type StorageKind int

const (
	StorageNone StorageKind = iota
	StorageString
	StorageInteger
	StorageDouble
	StorageElementID
)

var storageNames = [...]string{"None", "String", "Integer", "Double", "ElementId"}

// String returns the host name of the storage kind.
func (k StorageKind) String() string {
	if k < 0 || int(k) >= len(storageNames) {
		return fmt.Sprintf("StorageKind(%d)", int(k))
	}
	return storageNames[k]
}

// ParseStorageKind maps a host storage name back to a StorageKind.
func ParseStorageKind(s string) (StorageKind, error) {
	for i, n := range storageNames {
		if n == s {
			return StorageKind(i), nil
		}
	}
	return StorageNone, fmt.Errorf("unknown storage kind %q", s)
}

// ParamValue is the payload of a parameter. Which field is meaningful is
// decided by the owning parameter's StorageKind.
type ParamValue struct {
	Text   *string // nil means cleared
	Int    int64
	Double float64
	Ref    ElementID
}

// TextValue wraps s for a String parameter.
func TextValue(s string) ParamValue {
	return ParamValue{Text: &s, Ref: InvalidElementID}
}

// IntValue wraps n for an Integer parameter.
func IntValue(n int64) ParamValue {
	return ParamValue{Int: n, Ref: InvalidElementID}
}

// DoubleValue wraps f (internal units) for a Double parameter.
func DoubleValue(f float64) ParamValue {
	return ParamValue{Double: f, Ref: InvalidElementID}
}

// RefValue wraps id for an ElementId parameter.
func RefValue(id ElementID) ParamValue {
	return ParamValue{Ref: id}
}

// Parameter is a named, typed slot on an element or its type.
type Parameter struct {
	Name     string
	BuiltIn  string // built-in identifier, "" when not built-in
	SharedID string // shared GUID (lowercase canonical), "" when not shared
	Storage  StorageKind
	Unit     units.Kind // Double only
	ReadOnly bool
	Value    ParamValue
}

// Raw returns the stored value as a plain Go value for the wire.
func (p Parameter) Raw() any {
	switch p.Storage {
	case StorageString:
		if p.Value.Text == nil {
			return nil
		}
		return *p.Value.Text
	case StorageInteger:
		return p.Value.Int
	case StorageDouble:
		return p.Value.Double
	case StorageElementID:
		return int64(p.Value.Ref)
	default:
		return nil
	}
}

// ValueString renders the value the way the host UI shows it.
func (p Parameter) ValueString() string {
	switch p.Storage {
	case StorageString:
		if p.Value.Text == nil {
			return ""
		}
		return *p.Value.Text
	case StorageInteger:
		return fmt.Sprintf("%d", p.Value.Int)
	case StorageDouble:
		return units.Format(p.Unit, p.Value.Double)
	case StorageElementID:
		if !p.Value.Ref.IsValid() {
			return ""
		}
		return fmt.Sprintf("%d", int64(p.Value.Ref))
	default:
		return ""
	}
}
