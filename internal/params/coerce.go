package params

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/units"
	"github.com/roach88/cadbridge/internal/wire"
)

// Coerce converts a dynamic value to p's storage kind.
//
//	String:    text verbatim, numbers and booleans as their literal, null clears
//	Integer:   boolean -> 1/0, null -> 0, otherwise an integral number
//	Double:    text via display-unit parse then raw parse, number as is, null -> 0
//	ElementId: null clears, otherwise an integral id
func Coerce(p docmodel.Parameter, v wire.Value) (docmodel.ParamValue, error) {
	if v == nil {
		v = wire.Null{}
	}

	switch p.Storage {
	case docmodel.StorageString:
		switch val := v.(type) {
		case wire.Null:
			return docmodel.ParamValue{Ref: docmodel.InvalidElementID}, nil
		case wire.String:
			return docmodel.TextValue(string(val)), nil
		case wire.Number:
			return docmodel.TextValue(string(val)), nil
		case wire.Bool:
			return docmodel.TextValue(strconv.FormatBool(bool(val))), nil
		}

	case docmodel.StorageInteger:
		switch val := v.(type) {
		case wire.Null:
			return docmodel.IntValue(0), nil
		case wire.Bool:
			if val {
				return docmodel.IntValue(1), nil
			}
			return docmodel.IntValue(0), nil
		case wire.Number:
			if n, ok := val.Int64(); ok {
				return docmodel.IntValue(n), nil
			}
			return docmodel.ParamValue{}, wire.Errorf(wire.KindValueParse, "Cannot convert '%s' to an integer.", string(val))
		case wire.String:
			return docmodel.ParamValue{}, wire.Errorf(wire.KindValueParse, "Cannot convert '%s' to an integer.", string(val))
		}

	case docmodel.StorageDouble:
		switch val := v.(type) {
		case wire.Null:
			return docmodel.DoubleValue(0), nil
		case wire.Number:
			f, err := val.Float64()
			if err != nil {
				return docmodel.ParamValue{}, wire.Errorf(wire.KindValueParse, "Cannot parse numeric value '%s'.", string(val))
			}
			return docmodel.DoubleValue(f), nil
		case wire.String:
			return parseDouble(p.Unit, string(val))
		case wire.Bool:
			return docmodel.ParamValue{}, wire.Errorf(wire.KindValueParse, "Cannot parse numeric value '%t'.", bool(val))
		}

	case docmodel.StorageElementID:
		switch val := v.(type) {
		case wire.Null:
			return docmodel.RefValue(docmodel.InvalidElementID), nil
		case wire.Number:
			if n, ok := val.Int64(); ok {
				return docmodel.RefValue(docmodel.ElementID(n)), nil
			}
			return docmodel.ParamValue{}, wire.Errorf(wire.KindValueParse, "Element id must be an integer, got '%s'.", string(val))
		default:
			return docmodel.ParamValue{}, wire.Errorf(wire.KindValueParse, "Element id must be an integer, got %s.", wire.TypeName(v))
		}

	default:
		return docmodel.ParamValue{}, wire.Errorf(wire.KindUnsupportedStorageKind, "Unsupported storage type: %s", p.Storage)
	}

	return docmodel.ParamValue{}, wire.Errorf(wire.KindValueParse, "Cannot assign %s to a %s parameter.", wire.TypeName(v), p.Storage)
}

// parseDouble reads display text first with units, then as a raw
// invariant-culture number in internal units.
// Non-finite results are rejected on both paths.
func parseDouble(unit units.Kind, s string) (docmodel.ParamValue, error) {
	if f, err := units.Parse(unit, s); err == nil && finite(f) {
		return docmodel.DoubleValue(f), nil
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && finite(f) {
		return docmodel.DoubleValue(f), nil
	}
	return docmodel.ParamValue{}, wire.Errorf(wire.KindValueParse, "Cannot parse numeric value '%s'.", s)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
