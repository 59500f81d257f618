package actions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/names"
	"github.com/roach88/cadbridge/internal/targeting"
	"github.com/roach88/cadbridge/internal/units"
	"github.com/roach88/cadbridge/internal/wire"
)

// Point is a plan point in meters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// distanceFt is the plan distance between a and b in internal units.
func distanceFt(a, b Point) float64 {
	return units.FromDisplay(units.Length, math.Hypot(b.X-a.X, b.Y-a.Y))
}

// display converts an internal value to display units, rounded to the
// micro-unit so round trips do not leak float noise.
func display(kind units.Kind, v float64) float64 {
	return math.Round(units.ToDisplay(kind, v)*1e6) / 1e6
}

func findParam(ps []docmodel.Parameter, builtIn string) (docmodel.Parameter, bool) {
	for _, p := range ps {
		if p.BuiltIn == builtIn {
			return p, true
		}
	}
	return docmodel.Parameter{}, false
}

func doubleParam(ctx context.Context, r docmodel.Reader, id docmodel.ElementID, builtIn string) (float64, bool, error) {
	ps, err := r.Parameters(ctx, id)
	if err != nil {
		return 0, false, err
	}
	p, ok := findParam(ps, builtIn)
	if !ok || p.Storage != docmodel.StorageDouble {
		return 0, false, nil
	}
	return p.Value.Double, true, nil
}

func elementNotFound(id docmodel.ElementID) error {
	return wire.Errorf(wire.KindElementNotFound, "Element %d not found.", id)
}

// lookup reads an element, classifying a missing id.
func lookup(ctx context.Context, r docmodel.Reader, id docmodel.ElementID) (docmodel.Element, error) {
	el, err := r.Element(ctx, id)
	if errors.Is(err, docmodel.ErrNotFound) {
		return docmodel.Element{}, elementNotFound(id)
	}
	return el, err
}

// nameOf returns the name of id, or "" when id is unset or missing.
func nameOf(ctx context.Context, r docmodel.Reader, id docmodel.ElementID) (string, error) {
	if !id.IsValid() {
		return "", nil
	}
	el, err := r.Element(ctx, id)
	if errors.Is(err, docmodel.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return el.Name, nil
}

// activeView returns the document's active view.
func activeViewOf(ctx context.Context, r docmodel.Reader) (docmodel.Element, error) {
	raw, err := r.Setting(ctx, docmodel.SettingActiveView)
	if err != nil {
		return docmodel.Element{}, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if raw == "" || err != nil {
		return docmodel.Element{}, wire.Errorf(wire.KindViewNotFound, "No active view.")
	}
	return targeting.FindView(ctx, r, docmodel.ElementID(id), "")
}

// resolveView returns the view with id, or the active view when id is
// unset.
func resolveView(ctx context.Context, r docmodel.Reader, id docmodel.ElementID) (docmodel.Element, error) {
	if id <= 0 {
		return activeViewOf(ctx, r)
	}
	v, err := targeting.FindView(ctx, r, id, "")
	if wire.IsKind(err, wire.KindViewNotFound) {
		return docmodel.Element{}, wire.Errorf(wire.KindViewNotFound, "View %d not found.", id)
	}
	return v, err
}

type levelInfo struct {
	el  docmodel.Element
	elv float64
}

func levelsByElevation(ctx context.Context, r docmodel.Reader) ([]levelInfo, error) {
	els, err := r.Elements(ctx, docmodel.Query{Class: docmodel.ClassLevel})
	if err != nil {
		return nil, err
	}
	out := make([]levelInfo, 0, len(els))
	for _, el := range els {
		elv, _, err := doubleParam(ctx, r, el.ID, "LEVEL_ELEV")
		if err != nil {
			return nil, err
		}
		out = append(out, levelInfo{el: el, elv: elv})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].elv < out[j].elv })
	return out, nil
}

// resolveLevel picks a level by name; without a name it takes the active
// view's level, then the lowest level.
func resolveLevel(ctx context.Context, r docmodel.Reader, name string) (docmodel.Element, error) {
	levels, err := levelsByElevation(ctx, r)
	if err != nil {
		return docmodel.Element{}, err
	}
	if name != "" {
		for _, l := range levels {
			if names.Equal(l.el.Name, name) {
				return l.el, nil
			}
		}
		return docmodel.Element{}, wire.Errorf(wire.KindElementNotFound, "Level '%s' not found.", name)
	}

	if v, err := activeViewOf(ctx, r); err == nil && v.LevelID.IsValid() {
		for _, l := range levels {
			if l.el.ID == v.LevelID {
				return l.el, nil
			}
		}
	}
	if len(levels) == 0 {
		return docmodel.Element{}, wire.Errorf(wire.KindDomain, "No levels available.")
	}
	return levels[0].el, nil
}

// placeInViews shows id in every view without a level and, when level is
// set, in the views of that level. An unset level means every view.
func placeInViews(ctx context.Context, w docmodel.Writer, id, level docmodel.ElementID) error {
	views, err := w.Elements(ctx, docmodel.Query{Class: docmodel.ClassView})
	if err != nil {
		return err
	}
	for _, v := range views {
		if level.IsValid() && v.LevelID.IsValid() && v.LevelID != level {
			continue
		}
		if err := w.PlaceInView(ctx, v.ID, id); err != nil {
			return fmt.Errorf("place %d in view %d: %w", id, v.ID, err)
		}
	}
	return nil
}

// categoryName returns the display name of a category id.
func categoryName(cats []docmodel.Category, id docmodel.ElementID) string {
	for _, c := range cats {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}
