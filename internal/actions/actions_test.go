package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cadbridge/internal/bridge"
	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/docstore"
	"github.com/roach88/cadbridge/internal/testutil"
	"github.com/roach88/cadbridge/internal/wire"
)

type fixture struct {
	doc *docstore.Store
	ids map[string]docmodel.ElementID
	b   *bridge.Bridge
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	doc, ids := testutil.DemoDocument(t)
	reg, err := NewRegistry()
	require.NoError(t, err)

	s := bridge.NewSerializer(doc)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &fixture{doc: doc, ids: ids, b: bridge.New(reg, s, nil)}
}

// call runs one envelope and returns the response with data re-decoded as
// plain JSON.
func (f *fixture) call(t *testing.T, action, args string) (wire.Response, int, map[string]any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, status := f.b.Handle(ctx, wire.Envelope{Action: action, Args: json.RawMessage(args)})

	var data map[string]any
	if resp.Data != nil {
		raw, err := json.Marshal(resp.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &data))
	}
	return resp, status, data
}

func (f *fixture) mustCall(t *testing.T, action, args string) map[string]any {
	t.Helper()
	resp, status, data := f.call(t, action, args)
	require.True(t, resp.OK, "%s: %s", action, resp.Message)
	require.Equal(t, http.StatusOK, status)
	return data
}

func items(t *testing.T, data map[string]any) []map[string]any {
	t.Helper()
	raw, ok := data["items"].([]any)
	require.True(t, ok, "items missing from %v", data)
	out := make([]map[string]any, len(raw))
	for i, r := range raw {
		out[i] = r.(map[string]any)
	}
	return out
}

func TestCatalog_Registers(t *testing.T) {
	reg, err := NewRegistry()
	require.NoError(t, err)
	assert.Equal(t, len(Catalog()), reg.Len())
	assert.Contains(t, reg.Names(), "params.bulk_from_table")
	assert.Error(t, Register(reg), "frozen registry refuses the catalog twice")
}

func TestScenarioA_UnknownAction(t *testing.T) {
	f := newFixture(t)
	before := testutil.Count(t, f.doc, docmodel.Query{Types: docmodel.AnyKind})

	resp, status, _ := f.call(t, "noop.echo", `{}`)
	assert.False(t, resp.OK)
	assert.Equal(t, "Unknown action 'noop.echo'.", resp.Message)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, before, testutil.Count(t, f.doc, docmodel.Query{Types: docmodel.AnyKind}))
}

func TestScenarioB_MissingRequiredField(t *testing.T) {
	f := newFixture(t)

	resp, status, _ := f.call(t, "level.create", `{"name":"Roof"}`)
	assert.False(t, resp.OK)
	assert.Equal(t, "elevation_m is required", resp.Message)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 2, testutil.Count(t, f.doc, docmodel.Query{Class: docmodel.ClassLevel}))
}

func TestScenarioC_WhereMatchesNothing(t *testing.T) {
	f := newFixture(t)

	resp, _, _ := f.call(t, "params.set_where", `{
		"where": {"categories": ["Doors"], "levelNames": ["Level 2"]},
		"set": [{"param": "Comments", "value": "x"}]
	}`)
	assert.False(t, resp.OK)
	assert.Equal(t, "No targets resolved", resp.Message)
	assert.Nil(t, resp.Data)
}

func TestScenarioD_ReadOnlyItemIsolated(t *testing.T) {
	f := newFixture(t)
	w1, w2 := f.ids["w1"], f.ids["w2"]

	data := f.mustCall(t, "params.set", fmt.Sprintf(`{"updates": [
		{"elementId": %d, "param": "Comments", "value": "first"},
		{"elementId": %d, "param": "Length", "value": 10},
		{"elementId": %d, "param": "Comments", "value": "third"}
	]}`, w1, w1, w2))

	assert.EqualValues(t, 2, data["updated"])
	assert.EqualValues(t, 1, data["failed"])
	results := data["results"].([]any)
	require.Len(t, results, 3)
	second := results[1].(map[string]any)
	assert.Equal(t, false, second["ok"])
	assert.Equal(t, string(wire.KindParameterReadOnly), second["code"])

	assert.Equal(t, "first", testutil.Param(t, f.doc, w1, "Comments").ValueString())
	assert.Equal(t, "third", testutil.Param(t, f.doc, w2, "Comments").ValueString())
	assert.Equal(t, "5 m", testutil.Param(t, f.doc, w1, "Length").ValueString())
}

func TestScenarioE_ConcurrentCreations(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	ids := make([]float64, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			args := fmt.Sprintf(`{"name":"Concurrent %d","elevation_m":%d}`, i, 10+i)
			resp, _ := f.b.Handle(context.Background(), wire.Envelope{Action: "level.create", Args: json.RawMessage(args)})
			if assert.True(t, resp.OK, resp.Message) {
				ids[i] = float64(resp.Data.(created).ElementID)
			}
		}()
	}
	wg.Wait()

	levels := items(t, f.mustCall(t, "levels.list", `{}`))
	require.Len(t, levels, 4)
	for i, id := range ids {
		var got map[string]any
		for _, l := range levels {
			if l["id"] == id {
				got = l
			}
		}
		require.NotNil(t, got, "level %v not listed", id)
		assert.Equal(t, fmt.Sprintf("Concurrent %d", i), got["name"])
		assert.EqualValues(t, 10+i, got["elevation_m"])
	}
}

func TestParamsGet(t *testing.T) {
	f := newFixture(t)

	data := f.mustCall(t, "params.get", fmt.Sprintf(
		`{"elementIds":[%d],"paramNames":["Comments","Width"],"params":[{"guid":"8c1b2f7e-5d2a-4c1e-9a47-3f6b0d9e2a11"}]}`,
		f.ids["w1"]))
	rows := items(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, "north", rows[0]["value"])
	assert.Equal(t, "type", rows[1]["source"])
	assert.Equal(t, "0.2 m", rows[1]["valueString"])
	assert.Equal(t, "60 min", rows[2]["value"])

	resp, status, _ := f.call(t, "params.get", `{"elementIds":[1]}`)
	assert.False(t, resp.OK)
	assert.Equal(t, "paramNames is required", resp.Message)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestParamsSet_SelectionExpansion(t *testing.T) {
	f := newFixture(t)

	data := f.mustCall(t, "params.bulk_from_table", `{"updates":[{"elementId":0,"param":"Mark","value":"S"}]}`)
	assert.EqualValues(t, 2, data["updated"])
	assert.Equal(t, "S", testutil.Param(t, f.doc, f.ids["w1"], "Mark").ValueString())
	assert.Equal(t, "S", testutil.Param(t, f.doc, f.ids["w2"], "Mark").ValueString())
	assert.Equal(t, "", testutil.Param(t, f.doc, f.ids["w3"], "Mark").ValueString())
}

func TestParamsSetWhere(t *testing.T) {
	f := newFixture(t)

	data := f.mustCall(t, "params.set_where", `{
		"where": {"categories": ["Walls"], "levelNames": ["Level 1"]},
		"set": [{"param": "Unconnected Height", "value": "4 m"}]
	}`)
	assert.EqualValues(t, 2, data["updated"])
	assert.Equal(t, "4 m", testutil.Param(t, f.doc, f.ids["w1"], "Unconnected Height").ValueString())
	assert.Equal(t, "2.8 m", testutil.Param(t, f.doc, f.ids["w3"], "Unconnected Height").ValueString())

	resp, _, _ := f.call(t, "params.set_where", `{"where":{"categories":["Walls"]},"set":[]}`)
	assert.Equal(t, "set[] must not be empty", resp.Message)
}

func TestQueries(t *testing.T) {
	f := newFixture(t)

	levels := items(t, f.mustCall(t, "levels.list", `{}`))
	require.Len(t, levels, 2)
	assert.Equal(t, "Level 1", levels[0]["name"])
	assert.EqualValues(t, 3, levels[1]["elevation_m"])

	views := items(t, f.mustCall(t, "views.list", `{}`))
	require.Len(t, views, 3)
	assert.Equal(t, "FloorPlan", views[0]["viewType"])
	assert.Equal(t, "Level 1", views[0]["name"])
	assert.Equal(t, "ThreeD", views[2]["viewType"])

	wallTypes := items(t, f.mustCall(t, "walltypes.list", `{}`))
	require.Len(t, wallTypes, 2)
	assert.Equal(t, "Exterior - Brick on CMU", wallTypes[0]["name"])

	familyTypes := items(t, f.mustCall(t, "families.types.list", `{}`))
	require.Len(t, familyTypes, 1)
	assert.Equal(t, "Single-Flush", familyTypes[0]["family"])
	assert.Equal(t, "Doors", familyTypes[0]["category"])

	cats := items(t, f.mustCall(t, "categories.list", `{}`))
	require.NotEmpty(t, cats)
	for i := 1; i < len(cats); i++ {
		assert.LessOrEqual(t, cats[i-1]["name"].(string), cats[i]["name"].(string))
	}

	active := f.mustCall(t, "view.active", `{}`)
	assert.EqualValues(t, f.ids["plan1"], active["id"])
	assert.Equal(t, "Level 1", active["level"])
}

func TestElementInfo(t *testing.T) {
	f := newFixture(t)

	info := f.mustCall(t, "element.info", fmt.Sprintf(`{"elementId":%d,"topNParams":2}`, f.ids["w1"]))
	assert.Equal(t, "Walls", info["category"])
	assert.Equal(t, "Generic - 200mm", info["typeName"])
	assert.Equal(t, "Level 1", info["level"])
	metrics := info["metrics"].(map[string]any)
	assert.EqualValues(t, 5, metrics["length_m"])
	assert.Nil(t, metrics["volume_m3"])
	assert.Len(t, info["parameters"], 2)

	info = f.mustCall(t, "element.info", fmt.Sprintf(`{"elementId":%d,"includeParameters":false}`, f.ids["duct1"]))
	assert.Equal(t, "Level 2", info["level"], "MEP curves report their reference level")
	assert.NotContains(t, info, "parameters")

	resp, status, _ := f.call(t, "element.info", `{"elementId":999999}`)
	assert.Equal(t, "Element 999999 not found.", resp.Message)
	assert.Equal(t, http.StatusInternalServerError, status)

	resp, status, _ = f.call(t, "element.info", `{}`)
	assert.Equal(t, "element.info requires a valid elementId.", resp.Message)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSelection(t *testing.T) {
	f := newFixture(t)

	sel := items(t, f.mustCall(t, "selection.info", `{"includeParameters":false}`))
	require.Len(t, sel, 2)
	assert.EqualValues(t, f.ids["w1"], sel[0]["elementId"])

	data := f.mustCall(t, "selection.set", fmt.Sprintf(`{"elementIds":[%d,%d,%d]}`, f.ids["d1"], f.ids["d1"], f.ids["f1"]))
	assert.EqualValues(t, 2, data["count"])
	got, err := f.doc.Selection(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []docmodel.ElementID{f.ids["d1"], f.ids["f1"]}, got)

	resp, _, _ := f.call(t, "selection.set", `{"elementIds":[999999]}`)
	assert.False(t, resp.OK)
	got, err = f.doc.Selection(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2, "a failed selection.set leaves the selection alone")
}

func TestLevelCreate(t *testing.T) {
	f := newFixture(t)

	data := f.mustCall(t, "level.create", `{"elevation_m": 6}`)
	assert.Equal(t, "Level 3", data["name"])
	id := docmodel.ElementID(data["elementId"].(float64))
	assert.Equal(t, "6 m", testutil.Param(t, f.doc, id, "Elevation").ValueString())

	resp, _, _ := f.call(t, "level.create", `{"name":"level 1","elevation_m":9}`)
	assert.Equal(t, "Level name 'level 1' is already in use.", resp.Message)

	resp, status, _ := f.call(t, "level.create", `{"elevation_m":"high"}`)
	assert.Equal(t, "elevation_m must be a number", resp.Message)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGridCreate(t *testing.T) {
	f := newFixture(t)

	data := f.mustCall(t, "grid.create", `{"name":"B","start":{"x":0,"y":0},"end":{"x":0,"y":10}}`)
	id := docmodel.ElementID(data["elementId"].(float64))
	assert.Equal(t, "B", testutil.Param(t, f.doc, id, "Name").ValueString())
	for view, want := range map[string]int{"plan1": 3, "plan2": 3, "v3d": 1} {
		assert.Equal(t, want, testutil.Count(t, f.doc, docmodel.Query{Class: docmodel.ClassGrid, ViewID: f.ids[view]}), view)
	}

	resp, _, _ := f.call(t, "grid.create", `{"start":{"x":1,"y":1},"end":{"x":1,"y":1}}`)
	assert.Equal(t, "Start and end points are the same.", resp.Message)

	resp, _, _ = f.call(t, "grid.create", `{"start":{"x":1,"y":1}}`)
	assert.Equal(t, "end is required", resp.Message)
}

func TestWallCreate(t *testing.T) {
	f := newFixture(t)

	data := f.mustCall(t, "wall.create", `{"start":{"x":0,"y":0},"end":{"x":3,"y":4}}`)
	assert.Equal(t, "Wall created.", data["message"])
	used := data["used"].(map[string]any)
	assert.Equal(t, "Level 1", used["level"], "defaults to the active view's level")
	assert.Equal(t, "Basic Wall: Generic - 200mm", used["wallType"])
	assert.EqualValues(t, 3, used["height_m"])

	id := docmodel.ElementID(data["elementId"].(float64))
	assert.Equal(t, "5 m", testutil.Param(t, f.doc, id, "Length").ValueString())
	assert.Equal(t, "15 m²", testutil.Param(t, f.doc, id, "Area").ValueString())
	assert.Equal(t, 3, testutil.Count(t, f.doc, docmodel.Query{Class: docmodel.ClassWall, ViewID: f.ids["plan1"]}))
	assert.Equal(t, 1, testutil.Count(t, f.doc, docmodel.Query{Class: docmodel.ClassWall, ViewID: f.ids["plan2"]}))

	data = f.mustCall(t, "wall.create", `{
		"level":"Level 2","wallType":"Exterior - Brick on CMU",
		"start":{"x":0,"y":0},"end":{"x":2,"y":0},"height_m":2.5,"structural":true
	}`)
	id = docmodel.ElementID(data["elementId"].(float64))
	assert.Equal(t, int64(1), testutil.Param(t, f.doc, id, "Structural").Value.Int)
	assert.Equal(t, "2.5 m", testutil.Param(t, f.doc, id, "Unconnected Height").ValueString())

	resp, _, _ := f.call(t, "wall.create", `{"level":"Roof","start":{"x":0,"y":0},"end":{"x":1,"y":0}}`)
	assert.Equal(t, "Level 'Roof' not found.", resp.Message)
	resp, _, _ = f.call(t, "wall.create", `{"wallType":"Curtain","start":{"x":0,"y":0},"end":{"x":1,"y":0}}`)
	assert.Equal(t, "Wall type 'Curtain' not found.", resp.Message)
}

func TestViewGraphics(t *testing.T) {
	f := newFixture(t)
	plan1, v3d := f.ids["plan1"], f.ids["v3d"]

	data := f.mustCall(t, "view.set_scale", `{"scale":0}`)
	assert.EqualValues(t, plan1, data["viewId"], "no viewId means the active view")
	assert.EqualValues(t, 1, data["scale"])
	assert.Equal(t, int64(1), testutil.Param(t, f.doc, plan1, "View Scale").Value.Int)

	data = f.mustCall(t, "view.set_detail_level", fmt.Sprintf(`{"viewId":%d,"detailLevel":"Fine"}`, v3d))
	assert.Equal(t, "fine", data["detailLevel"])
	assert.Equal(t, int64(3), testutil.Param(t, f.doc, v3d, "Detail Level").Value.Int)

	data = f.mustCall(t, "view.set_detail_level", `{"detailLevel":"extreme"}`)
	assert.Equal(t, "medium", data["detailLevel"])

	data = f.mustCall(t, "view.set_discipline", `{"discipline":"structural"}`)
	assert.Equal(t, "structural", data["discipline"])
	assert.Equal(t, int64(2), testutil.Param(t, f.doc, plan1, "Discipline").Value.Int)

	resp, _, _ := f.call(t, "view.set_scale", `{"viewId":999999,"scale":50}`)
	assert.Equal(t, "View 999999 not found.", resp.Message)
}

func TestViewCategoryVisibility(t *testing.T) {
	f := newFixture(t)
	v3d := f.ids["v3d"]

	data := f.mustCall(t, "view.category.set_visibility", fmt.Sprintf(`{"viewId":%d,"categories":["Grids","Walls"]}`, v3d))
	assert.EqualValues(t, 1, data["changed"], "only the hidden grids change")

	data = f.mustCall(t, "view.category.set_visibility", fmt.Sprintf(`{"viewId":%d,"categories":["OST_Walls","Doors"],"visible":false}`, v3d))
	assert.EqualValues(t, 2, data["changed"])
	hidden, err := f.doc.HiddenCategories(context.Background(), v3d)
	require.NoError(t, err)
	assert.Len(t, hidden, 2)

	resp, _, _ := f.call(t, "view.category.set_visibility", `{"categories":["Walls","Spaceships"],"visible":false}`)
	assert.Equal(t, "Category not found: Spaceships", resp.Message)
	hidden, err = f.doc.HiddenCategories(context.Background(), f.ids["plan1"])
	require.NoError(t, err)
	assert.Empty(t, hidden)
}
