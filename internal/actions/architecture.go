package actions

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/names"
	"github.com/roach88/cadbridge/internal/registry"
	"github.com/roach88/cadbridge/internal/units"
	"github.com/roach88/cadbridge/internal/wire"
)

const defaultWallHeightM = 3.0

type created struct {
	ElementID docmodel.ElementID `json:"elementId"`
	Name      string             `json:"name,omitempty"`
}

func doubleValue(name string, v float64) docmodel.Parameter {
	return docmodel.Parameter{Name: name, Storage: docmodel.StorageDouble, Value: docmodel.DoubleValue(v)}
}

func intValue(name string, v int64) docmodel.Parameter {
	return docmodel.Parameter{Name: name, Storage: docmodel.StorageInteger, Value: docmodel.IntValue(v)}
}

func textValue(name, v string) docmodel.Parameter {
	return docmodel.Parameter{Name: name, Storage: docmodel.StorageString, Value: docmodel.TextValue(v)}
}

func refValue(name string, v docmodel.ElementID) docmodel.Parameter {
	return docmodel.Parameter{Name: name, Storage: docmodel.StorageElementID, Value: docmodel.RefValue(v)}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// level.create

type levelCreateRequest struct {
	Name       string   `json:"name"`
	ElevationM *float64 `json:"elevation_m"`
}

func (r levelCreateRequest) Validate() error {
	if r.ElevationM == nil {
		return registry.Required("elevation_m")
	}
	return nil
}

// uniqueLevelName returns name, or the first free "Level N" when name is
// empty. A taken name is an error.
func uniqueLevelName(levels []levelInfo, name string) (string, error) {
	taken := func(n string) bool {
		for _, l := range levels {
			if names.Equal(l.el.Name, n) {
				return true
			}
		}
		return false
	}
	if name != "" {
		if taken(name) {
			return "", wire.Errorf(wire.KindDomain, "Level name '%s' is already in use.", name)
		}
		return name, nil
	}
	for i := len(levels) + 1; ; i++ {
		if n := fmt.Sprintf("Level %d", i); !taken(n) {
			return n, nil
		}
	}
}

func levelCreate(ctx context.Context, tx docmodel.Tx, req levelCreateRequest) (any, error) {
	levels, err := levelsByElevation(ctx, tx)
	if err != nil {
		return nil, err
	}
	name, err := uniqueLevelName(levels, strings.TrimSpace(req.Name))
	if err != nil {
		return nil, err
	}

	id, err := tx.CreateElement(ctx, docmodel.NewElement{
		Class: docmodel.ClassLevel,
		Name:  name,
		Params: []docmodel.Parameter{
			doubleValue("Elevation", units.FromDisplay(units.Length, *req.ElevationM)),
			intValue("Building Story", 1),
		},
	})
	if err != nil {
		return nil, err
	}
	return created{ElementID: id, Name: name}, nil
}

// grid.create

type gridCreateRequest struct {
	Name  string `json:"name"`
	Start *Point `json:"start"`
	End   *Point `json:"end"`
}

func (r gridCreateRequest) Validate() error {
	if r.Start == nil {
		return registry.Required("start")
	}
	if r.End == nil {
		return registry.Required("end")
	}
	return nil
}

func samePoint(a, b Point) error {
	if distanceFt(a, b) < 1e-9 {
		return wire.Errorf(wire.KindDomain, "Start and end points are the same.")
	}
	return nil
}

func gridCreate(ctx context.Context, tx docmodel.Tx, req gridCreateRequest) (any, error) {
	if err := samePoint(*req.Start, *req.End); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		grids, err := tx.Elements(ctx, docmodel.Query{Class: docmodel.ClassGrid})
		if err != nil {
			return nil, err
		}
		name = fmt.Sprintf("Grid %d", len(grids)+1)
	}

	id, err := tx.CreateElement(ctx, docmodel.NewElement{
		Class:  docmodel.ClassGrid,
		Name:   name,
		Params: []docmodel.Parameter{textValue("Name", name)},
	})
	if err != nil {
		return nil, err
	}
	if err := placeInViews(ctx, tx, id, docmodel.InvalidElementID); err != nil {
		return nil, err
	}
	return created{ElementID: id, Name: name}, nil
}

// wall.create

type wallCreateRequest struct {
	Level      string  `json:"level"`
	WallType   string  `json:"wallType"`
	Start      *Point  `json:"start"`
	End        *Point  `json:"end"`
	HeightM    float64 `json:"height_m"`
	Structural bool    `json:"structural"`
}

func (r wallCreateRequest) Validate() error {
	if r.Start == nil {
		return registry.Required("start")
	}
	if r.End == nil {
		return registry.Required("end")
	}
	return nil
}

type wallUsed struct {
	Level    string  `json:"level"`
	WallType string  `json:"wallType"`
	HeightM  float64 `json:"height_m"`
}

type wallCreateResult struct {
	ElementID docmodel.ElementID `json:"elementId"`
	Message   string             `json:"message"`
	Used      wallUsed           `json:"used"`
}

func wallTypeLabel(t docmodel.Element) string {
	if t.FamilyName == "" {
		return t.Name
	}
	return t.FamilyName + ": " + t.Name
}

// resolveWallType matches token against "Family: Name" and then the bare
// name. Without a token it prefers a type named Generic.
func resolveWallType(ctx context.Context, r docmodel.Reader, token string) (docmodel.Element, error) {
	types, err := r.Elements(ctx, docmodel.Query{Class: docmodel.ClassWallType, Types: docmodel.TypesOnly})
	if err != nil {
		return docmodel.Element{}, err
	}

	token = strings.TrimSpace(token)
	if token != "" {
		for _, t := range types {
			if names.Equal(wallTypeLabel(t), token) {
				return t, nil
			}
		}
		for _, t := range types {
			if names.Equal(t.Name, token) {
				return t, nil
			}
		}
		return docmodel.Element{}, wire.Errorf(wire.KindElementNotFound, "Wall type '%s' not found.", token)
	}

	if len(types) == 0 {
		return docmodel.Element{}, wire.Errorf(wire.KindDomain, "No wall types available.")
	}
	sort.SliceStable(types, func(i, j int) bool {
		gi := strings.HasPrefix(names.Key(types[i].Name), "generic")
		gj := strings.HasPrefix(names.Key(types[j].Name), "generic")
		if gi != gj {
			return gi
		}
		return types[i].Name < types[j].Name
	})
	return types[0], nil
}

func wallCreate(ctx context.Context, tx docmodel.Tx, req wallCreateRequest) (any, error) {
	if err := samePoint(*req.Start, *req.End); err != nil {
		return nil, err
	}
	level, err := resolveLevel(ctx, tx, strings.TrimSpace(req.Level))
	if err != nil {
		return nil, err
	}
	wt, err := resolveWallType(ctx, tx, req.WallType)
	if err != nil {
		return nil, err
	}

	heightM := req.HeightM
	if heightM <= 0 {
		heightM = defaultWallHeightM
	}
	height := units.FromDisplay(units.Length, heightM)
	length := distanceFt(*req.Start, *req.End)

	id, err := tx.CreateElement(ctx, docmodel.NewElement{
		Class:   docmodel.ClassWall,
		TypeID:  wt.ID,
		LevelID: level.ID,
		Params: []docmodel.Parameter{
			refValue("Base Constraint", level.ID),
			doubleValue("Unconnected Height", height),
			intValue("Structural", boolInt(req.Structural)),
			doubleValue("Length", length),
			doubleValue("Area", length*height),
		},
	})
	if err != nil {
		return nil, err
	}
	if err := placeInViews(ctx, tx, id, level.ID); err != nil {
		return nil, err
	}

	return wallCreateResult{
		ElementID: id,
		Message:   "Wall created.",
		Used: wallUsed{
			Level:    level.Name,
			WallType: wallTypeLabel(wt),
			HeightM:  heightM,
		},
	}, nil
}
