package seed

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/docstore"
)

func openDoc(t *testing.T) *docstore.Store {
	t.Helper()
	s, err := docstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDemo_Applies(t *testing.T) {
	doc := openDoc(t)
	ctx := context.Background()

	ids, err := Apply(ctx, doc, Demo())
	require.NoError(t, err)
	require.Contains(t, ids, "w1")

	walls, err := doc.Elements(ctx, docmodel.Query{Class: docmodel.ClassWall})
	require.NoError(t, err)
	assert.Len(t, walls, 3)

	sel, err := doc.Selection(ctx)
	require.NoError(t, err)
	assert.Equal(t, []docmodel.ElementID{ids["w1"], ids["w2"]}, sel)

	active, err := doc.Setting(ctx, docmodel.SettingActiveView)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(int64(ids["plan1"]), 10), active)

	hidden, err := doc.HiddenCategories(ctx, ids["v3d"])
	require.NoError(t, err)
	grids, _ := docmodel.LookupBuiltInCategory("OST_Grids")
	assert.Equal(t, []docmodel.ElementID{grids.ID}, hidden)

	params, err := doc.Parameters(ctx, ids["w1"])
	require.NoError(t, err)
	var fire, height docmodel.Parameter
	for _, p := range params {
		switch p.Name {
		case "Fire Rating":
			fire = p
		case "Unconnected Height":
			height = p
		}
	}
	assert.Equal(t, "8c1b2f7e-5d2a-4c1e-9a47-3f6b0d9e2a11", fire.SharedID)
	assert.Equal(t, "60 min", fire.Raw())
	assert.Equal(t, "3 m", height.ValueString())

	duct, err := doc.Element(ctx, ids["duct1"])
	require.NoError(t, err)
	assert.Equal(t, docmodel.InvalidElementID, duct.LevelID, "ducts are not level-hosted")
	doors, _ := docmodel.LookupBuiltInCategory("Doors")
	door, err := doc.Element(ctx, ids["d1"])
	require.NoError(t, err)
	assert.Equal(t, doors.ID, door.CategoryID)
	assert.Equal(t, ids["door_type"], door.TypeID)
}

func TestParse_YAMLUnknownField(t *testing.T) {
	_, err := Parse([]byte("name: x\nelementz: []\n"), FormatYAML, "x.yaml")
	assert.Error(t, err)
}

func TestParse_JSON(t *testing.T) {
	data := []byte(`{"name":"j","elements":[{"key":"L","class":"Level","name":"Ground","params":[{"name":"Elevation","number":1.5}]}]}`)
	s, err := Parse(data, FormatJSON, "j.json")
	require.NoError(t, err)
	require.Len(t, s.Elements, 1)
	assert.Equal(t, 1.5, *s.Elements[0].Params[0].Number)
}

func TestParse_CUE(t *testing.T) {
	data := []byte(`
name: "cue"
elements: [
	{key: "L", class: "Level", name: "Ground"},
	{key: "W", class: "Wall", level: "L", params: [{name: "Comments", text: "from cue"}]},
]
selection: ["W"]
`)
	s, err := Parse(data, FormatCUE, "seed.cue")
	require.NoError(t, err)
	require.Len(t, s.Elements, 2)
	assert.Equal(t, "L", s.Elements[1].Level)
	assert.Equal(t, []string{"W"}, s.Selection)
}

func TestParse_CUEIncomplete(t *testing.T) {
	_, err := Parse([]byte(`name: string`), FormatCUE, "bad.cue")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		seed Seed
		want string
	}{
		{"missing key", Seed{Elements: []ElementSpec{{Class: "Wall"}}}, "key is required"},
		{"duplicate", Seed{Elements: []ElementSpec{{Key: "a", Class: "Wall"}, {Key: "a", Class: "Wall"}}}, "duplicate key"},
		{"class", Seed{Elements: []ElementSpec{{Key: "a", Class: "Spaceship"}}}, "unknown class"},
		{"forward ref", Seed{Elements: []ElementSpec{{Key: "w", Class: "Wall", Level: "L"}, {Key: "L", Class: "Level"}}}, "declared earlier"},
		{"selection", Seed{Selection: []string{"x"}}, "selection"},
		{"active view", Seed{ActiveView: "x"}, "active_view"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.seed.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestApply_FailureLeavesDocumentUntouched(t *testing.T) {
	doc := openDoc(t)
	ctx := context.Background()

	s := &Seed{Elements: []ElementSpec{
		{Key: "L", Class: "Level", Name: "Ground"},
		{Key: "W", Class: "Wall", Category: "Spaceships"},
	}}
	_, err := Apply(ctx, doc, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown category")

	levels, err := doc.Elements(ctx, docmodel.Query{Class: docmodel.ClassLevel})
	require.NoError(t, err)
	assert.Empty(t, levels)
}

func TestApply_NewParameterNeedsStorage(t *testing.T) {
	doc := openDoc(t)
	s := &Seed{Elements: []ElementSpec{
		{Key: "W", Class: "Wall", Params: []ParamSpec{{Name: "Custom"}}},
	}}
	_, err := Apply(context.Background(), doc, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage is required")
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yml")
	require.NoError(t, os.WriteFile(path, []byte("elements:\n  - {key: L, class: Level}\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Elements, 1)

	_, err = Load(filepath.Join(dir, "seed.toml"))
	assert.ErrorContains(t, err, "unsupported seed format")
}
