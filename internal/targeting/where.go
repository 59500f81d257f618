// Package targeting resolves a declarative "where" filter into the set of
// elements a bulk operation acts on.
//
// Explicit sources (ids, the current selection) are unioned into a seed.
// The base collection (the whole model, or one view's elements) is then
// filtered by every supplied predicate group: category AND type AND family
// AND level. An absent group matches everything, so a filter carrying only
// ids or the selection still widens to the whole base collection. Element
// types never come from the base collection. The result is the seed
// followed by the filtered elements, deduplicated by id.
//
// Resolution is read-only and recomputed per call; nothing is cached
// between requests.
package targeting

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/names"
	"github.com/roach88/cadbridge/internal/wire"
)

// Where is a targeting filter. Every field is optional.
type Where struct {
	ElementIDs   []docmodel.ElementID `json:"elementIds,omitempty"`
	UseSelection bool                 `json:"useSelection,omitempty"`
	TypeIDs      []docmodel.ElementID `json:"typeIds,omitempty"`
	TypeNames    []string             `json:"typeNames,omitempty"`
	FamilyNames  []string             `json:"familyNames,omitempty"`
	Categories   []string             `json:"categories,omitempty"`
	CategoryIDs  []docmodel.ElementID `json:"categoryIds,omitempty"`
	LevelIDs     []docmodel.ElementID `json:"levelIds,omitempty"`
	LevelNames   []string             `json:"levelNames,omitempty"`
	ViewID       docmodel.ElementID   `json:"viewId,omitempty"`
	ViewName     string               `json:"viewName,omitempty"`
}

// HasScope reports whether a view scope is supplied.
func (w Where) HasScope() bool {
	return w.ViewID > 0 || w.ViewName != ""
}

// Resolve returns the target set for w, seed first, in id order within the
// filtered part. An empty result is a NoTargets error.
func Resolve(ctx context.Context, r docmodel.Reader, w Where) ([]docmodel.Element, error) {
	res := &resolver{r: r, elements: map[docmodel.ElementID]*docmodel.Element{}}

	var (
		out  []docmodel.Element
		seen = map[docmodel.ElementID]bool{}
	)
	add := func(el docmodel.Element) {
		if !seen[el.ID] {
			seen[el.ID] = true
			out = append(out, el)
		}
	}

	seedIDs := append([]docmodel.ElementID(nil), w.ElementIDs...)
	if w.UseSelection {
		sel, err := r.Selection(ctx)
		if err != nil {
			return nil, fmt.Errorf("read selection: %w", err)
		}
		seedIDs = append(seedIDs, sel...)
	}
	for _, id := range seedIDs {
		el, ok, err := res.element(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			add(*el)
		}
	}

	filtered, err := res.filter(ctx, w)
	if err != nil {
		return nil, err
	}
	for _, el := range filtered {
		add(el)
	}

	if len(out) == 0 {
		return nil, wire.NoTargets()
	}
	return out, nil
}

// resolver memoizes element lookups for the duration of one Resolve call.
type resolver struct {
	r        docmodel.Reader
	elements map[docmodel.ElementID]*docmodel.Element // nil entry: missing
}

func (res *resolver) element(ctx context.Context, id docmodel.ElementID) (*docmodel.Element, bool, error) {
	if el, ok := res.elements[id]; ok {
		return el, el != nil, nil
	}
	el, err := res.r.Element(ctx, id)
	if errors.Is(err, docmodel.ErrNotFound) {
		res.elements[id] = nil
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	res.elements[id] = &el
	return &el, true, nil
}

func (res *resolver) filter(ctx context.Context, w Where) ([]docmodel.Element, error) {
	var viewID docmodel.ElementID
	if w.HasScope() {
		v, err := findView(ctx, res.r, w.ViewID, w.ViewName)
		if err != nil {
			return nil, err
		}
		viewID = v.ID
	}

	var categories map[docmodel.ElementID]bool
	if len(w.Categories) > 0 || len(w.CategoryIDs) > 0 {
		categories = make(map[docmodel.ElementID]bool)
		for _, tok := range w.Categories {
			c, err := ResolveCategory(ctx, res.r, tok)
			if err != nil {
				return nil, err
			}
			categories[c.ID] = true
		}
		for _, id := range w.CategoryIDs {
			categories[id] = true
		}
	}

	base, err := res.r.Elements(ctx, docmodel.Query{ViewID: viewID, Types: docmodel.InstancesOnly})
	if err != nil {
		return nil, fmt.Errorf("collect elements: %w", err)
	}

	typeIDs := idSet(w.TypeIDs)
	levelIDs := idSet(w.LevelIDs)
	typeNames := names.NewSet(w.TypeNames)
	familyNames := names.NewSet(w.FamilyNames)
	levelNames := names.NewSet(w.LevelNames)

	var out []docmodel.Element
	for _, el := range base {
		if categories != nil && !categories[el.CategoryID] {
			continue
		}
		if typeIDs != nil && !typeIDs[el.TypeID] {
			continue
		}
		if len(w.TypeNames) > 0 || len(w.FamilyNames) > 0 {
			typ, _, err := res.element(ctx, el.TypeID)
			if err != nil {
				return nil, err
			}
			if len(w.TypeNames) > 0 && (typ == nil || !typeNames.Has(typ.Name)) {
				continue
			}
			if len(w.FamilyNames) > 0 && !familyNames.Has(familyOf(el, typ)) {
				continue
			}
		}
		if len(w.LevelIDs) > 0 || len(w.LevelNames) > 0 {
			level, err := res.levelOf(ctx, el)
			if err != nil {
				return nil, err
			}
			if levelIDs != nil && !levelIDs[level] {
				continue
			}
			if len(w.LevelNames) > 0 {
				lvl, ok, err := res.element(ctx, level)
				if err != nil {
					return nil, err
				}
				if !ok || !levelNames.Has(lvl.Name) {
					continue
				}
			}
		}
		out = append(out, el)
	}
	return out, nil
}

// levelOf returns the element's level, falling back to the MEP reference
// level parameter for elements that are not level-hosted.
func (res *resolver) levelOf(ctx context.Context, el docmodel.Element) (docmodel.ElementID, error) {
	if el.LevelID.IsValid() {
		return el.LevelID, nil
	}
	params, err := res.r.Parameters(ctx, el.ID)
	if err != nil {
		return docmodel.InvalidElementID, fmt.Errorf("read parameters of %d: %w", el.ID, err)
	}
	for _, p := range params {
		if p.BuiltIn == "RBS_START_LEVEL_PARAM" && p.Storage == docmodel.StorageElementID {
			return p.Value.Ref, nil
		}
	}
	return docmodel.InvalidElementID, nil
}

func familyOf(el docmodel.Element, typ *docmodel.Element) string {
	if el.FamilyName != "" {
		return el.FamilyName
	}
	if typ != nil {
		return typ.FamilyName
	}
	return ""
}

func idSet(ids []docmodel.ElementID) map[docmodel.ElementID]bool {
	if len(ids) == 0 {
		return nil
	}
	m := make(map[docmodel.ElementID]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}
