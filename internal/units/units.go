// Package units converts between the document's internal units and the
// display units callers type.
//
// Internal storage follows the host: lengths in decimal feet, areas in
// square feet, volumes in cubic feet, angles in radians. Display units are
// metric (m, m², m³) and degrees. A bare number in a display string is read
// in display units; an explicit suffix ("350 mm", "12 ft", 11' 6") wins.
package units

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the measurement a Double parameter stores.
type Kind string

const (
	None   Kind = ""
	Length Kind = "length"
	Area   Kind = "area"
	Volume Kind = "volume"
	Angle  Kind = "angle"
)

const (
	metersPerFoot = 0.3048
	feetPerMeter  = 1 / metersPerFoot
)

// ParseKind maps a stored kind name back to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case None, Length, Area, Volume, Angle:
		return k, nil
	default:
		return None, fmt.Errorf("unknown unit kind %q", s)
	}
}

// suffixes maps a unit suffix to the factor that converts it to internal
// units, per kind. The empty suffix is the display unit.
var suffixes = map[Kind]map[string]float64{
	None: {"": 1},
	Length: {
		"":       feetPerMeter,
		"m":      feetPerMeter,
		"cm":     feetPerMeter / 100,
		"mm":     feetPerMeter / 1000,
		"ft":     1,
		"feet":   1,
		"'":      1,
		"in":     1.0 / 12,
		"inch":   1.0 / 12,
		"inches": 1.0 / 12,
		`"`:      1.0 / 12,
	},
	Area: {
		"":    feetPerMeter * feetPerMeter,
		"m2":  feetPerMeter * feetPerMeter,
		"m²":  feetPerMeter * feetPerMeter,
		"ft2": 1,
		"ft²": 1,
		"sf":  1,
	},
	Volume: {
		"":    feetPerMeter * feetPerMeter * feetPerMeter,
		"m3":  feetPerMeter * feetPerMeter * feetPerMeter,
		"m³":  feetPerMeter * feetPerMeter * feetPerMeter,
		"ft3": 1,
		"ft³": 1,
		"cf":  1,
	},
	Angle: {
		"":    math.Pi / 180,
		"°":   math.Pi / 180,
		"deg": math.Pi / 180,
		"rad": 1,
	},
}

var (
	quantityRe   = regexp.MustCompile(`^([-+]?(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][-+]?\d+)?)\s*(\S*)$`)
	feetInchesRe = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*'\s*-?\s*(?:(\d+(?:\.\d+)?)\s*"?)?$`)
)

// Parse reads a display string for kind and returns the internal value.
// A comma is accepted as the decimal separator when no dot is present.
func Parse(kind Kind, s string) (float64, error) {
	in := strings.TrimSpace(s)
	if in == "" {
		return 0, fmt.Errorf("empty value")
	}
	if strings.Contains(in, ",") && !strings.Contains(in, ".") {
		in = strings.ReplaceAll(in, ",", ".")
	}

	table, ok := suffixes[kind]
	if !ok {
		return 0, fmt.Errorf("unknown unit kind %q", kind)
	}

	if kind == Length {
		if m := feetInchesRe.FindStringSubmatch(in); m != nil && strings.Contains(in, "'") {
			return parseFeetInches(m[1], m[2])
		}
	}

	m := quantityRe.FindStringSubmatch(in)
	if m == nil {
		return 0, fmt.Errorf("cannot read %q as a %s", s, kindLabel(kind))
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, err
	}
	factor, ok := table[strings.ToLower(m[2])]
	if !ok {
		return 0, fmt.Errorf("unknown unit %q for %s", m[2], kindLabel(kind))
	}
	v := n * factor
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%q is out of range for %s", s, kindLabel(kind))
	}
	return v, nil
}

func parseFeetInches(feet, inches string) (float64, error) {
	ft, err := strconv.ParseFloat(feet, 64)
	if err != nil {
		return 0, err
	}
	var in float64
	if inches != "" {
		if in, err = strconv.ParseFloat(inches, 64); err != nil {
			return 0, err
		}
	}
	if ft < 0 || strings.HasPrefix(feet, "-") {
		return ft - in/12, nil
	}
	return ft + in/12, nil
}

// ToDisplay converts an internal value to display units.
func ToDisplay(kind Kind, v float64) float64 {
	factor, ok := suffixes[kind][""]
	if !ok || factor == 0 {
		return v
	}
	return v / factor
}

// FromDisplay converts a display value to internal units.
func FromDisplay(kind Kind, v float64) float64 {
	factor, ok := suffixes[kind][""]
	if !ok {
		return v
	}
	return v * factor
}

// Format renders an internal value as a display string, e.g. "3 m".
func Format(kind Kind, v float64) string {
	d := math.Round(ToDisplay(kind, v)*1e6) / 1e6
	num := strconv.FormatFloat(d, 'f', -1, 64)
	switch kind {
	case Length:
		return num + " m"
	case Area:
		return num + " m²"
	case Volume:
		return num + " m³"
	case Angle:
		return num + "°"
	default:
		return num
	}
}

func kindLabel(k Kind) string {
	if k == None {
		return "number"
	}
	return string(k)
}
