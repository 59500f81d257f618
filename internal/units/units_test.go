package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Length(t *testing.T) {
	tests := []struct {
		in   string
		want float64 // feet
	}{
		{"3", 3 / 0.3048},
		{"3.5", 3.5 / 0.3048},
		{"3,5", 3.5 / 0.3048},
		{"3.5 m", 3.5 / 0.3048},
		{"350 mm", 0.35 / 0.3048},
		{"35cm", 0.35 / 0.3048},
		{"12 ft", 12},
		{"12'", 12},
		{`11' 6"`, 11.5},
		{`11'-6"`, 11.5},
		{`6 in`, 0.5},
		{"-2 ft", -2},
	}
	for _, tt := range tests {
		got, err := Parse(Length, tt.in)
		require.NoError(t, err, tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, tt.in)
	}
}

func TestParse_OtherKinds(t *testing.T) {
	got, err := Parse(Area, "10 m2")
	require.NoError(t, err)
	assert.InDelta(t, 10/(0.3048*0.3048), got, 1e-9)

	got, err = Parse(Angle, "90°")
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/2, got, 1e-12)

	got, err = Parse(None, "2.25")
	require.NoError(t, err)
	assert.Equal(t, 2.25, got)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		kind Kind
		in   string
	}{
		{Length, "abc"},
		{Length, ""},
		{Length, "3 parsecs"},
		{None, "3 m"},
		{Area, "1.2.3"},
		{Length, "Infinity"},
		{Length, "NaN"},
		{Length, "1e308 m"},
	}
	for _, tt := range tests {
		_, err := Parse(tt.kind, tt.in)
		assert.Error(t, err, "%s %q", tt.kind, tt.in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "3 m", Format(Length, 3/0.3048))
	assert.Equal(t, "0.35 m", Format(Length, 0.35/0.3048))
	assert.Equal(t, "90°", Format(Angle, math.Pi/2))
	assert.Equal(t, "7", Format(None, 7))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Length")
	require.NoError(t, err)
	assert.Equal(t, Length, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, None, k)

	_, err = ParseKind("weight")
	assert.Error(t, err)
}

func TestDisplayRoundTrip(t *testing.T) {
	internal := FromDisplay(Length, 3)
	assert.InDelta(t, 3/0.3048, internal, 1e-12)
	assert.InDelta(t, 3, ToDisplay(Length, internal), 1e-12)
	assert.Equal(t, 4.0, FromDisplay(None, 4))
}
