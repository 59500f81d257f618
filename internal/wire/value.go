package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Value is a sealed interface over the dynamic scalar types an update may
// carry. Only Null, String, Number and Bool implement it.
type Value interface {
	value() // Sealed
}

// Null is an explicit JSON null (or an absent value).
type Null struct{}

func (Null) value() {}

// String is a text value.
type String string

func (String) value() {}

// Number is a numeric value holding its JSON literal.
type Number string

func (Number) value() {}

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// Float64 returns the number as a float64.
func (n Number) Float64() (float64, error) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("number out of range: %s", string(n))
	}
	return f, nil
}

// Int64 returns the number as an int64 when it is integral. A literal like
// 3.0 counts as integral; 3.5 does not.
func (n Number) Int64() (int64, bool) {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// TypeName names the dynamic type of v for error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case nil, Null:
		return "null"
	case String:
		return "text"
	case Number:
		return "number"
	case Bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ParseValue decodes a JSON scalar. Arrays and objects are rejected.
func ParseValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Null{}, nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		return Null{}, nil

	case '[', '{':
		return nil, fmt.Errorf("value must be text, number, boolean or null")

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		return Number(n), nil
	}
}

// MarshalValue encodes v as JSON. A nil Value encodes as null.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Number:
		return []byte(val), nil
	case Bool:
		return json.Marshal(bool(val))
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// Scalar wraps a Value so it can sit in a request struct field.
// The zero Scalar (field absent) reads as Null.
type Scalar struct {
	V Value
}

// Of wraps v.
func Of(v Value) Scalar {
	return Scalar{V: v}
}

// Get returns the wrapped value, Null when unset.
func (s Scalar) Get() Value {
	if s.V == nil {
		return Null{}
	}
	return s.V
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	v, err := ParseValue(data)
	if err != nil {
		return err
	}
	s.V = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s Scalar) MarshalJSON() ([]byte, error) {
	return MarshalValue(s.V)
}
