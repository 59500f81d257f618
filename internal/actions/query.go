package actions

import (
	"context"
	"sort"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/registry"
	"github.com/roach88/cadbridge/internal/units"
)

type noArgs struct{}

type list[T any] struct {
	Count int `json:"count"`
	Items []T `json:"items"`
}

func newList[T any](items []T) list[T] {
	if items == nil {
		items = []T{}
	}
	return list[T]{Count: len(items), Items: items}
}

type levelItem struct {
	ID          docmodel.ElementID `json:"id"`
	Name        string             `json:"name"`
	ElevationFt float64            `json:"elevation_ft"`
	ElevationM  float64            `json:"elevation_m"`
}

func levelsList(ctx context.Context, tx docmodel.Tx, _ noArgs) (any, error) {
	levels, err := levelsByElevation(ctx, tx)
	if err != nil {
		return nil, err
	}
	items := make([]levelItem, 0, len(levels))
	for _, l := range levels {
		items = append(items, levelItem{
			ID:          l.el.ID,
			Name:        l.el.Name,
			ElevationFt: l.elv,
			ElevationM:  display(units.Length, l.elv),
		})
	}
	return newList(items), nil
}

type viewItem struct {
	ID       docmodel.ElementID `json:"id"`
	Name     string             `json:"name"`
	ViewType string             `json:"viewType"`
	Level    string             `json:"level,omitempty"`
}

func viewType(v docmodel.Element) string {
	if v.LevelID.IsValid() {
		return "FloorPlan"
	}
	return "ThreeD"
}

func describeView(ctx context.Context, r docmodel.Reader, v docmodel.Element) (viewItem, error) {
	level, err := nameOf(ctx, r, v.LevelID)
	if err != nil {
		return viewItem{}, err
	}
	return viewItem{ID: v.ID, Name: v.Name, ViewType: viewType(v), Level: level}, nil
}

func viewsList(ctx context.Context, tx docmodel.Tx, _ noArgs) (any, error) {
	views, err := tx.Elements(ctx, docmodel.Query{Class: docmodel.ClassView})
	if err != nil {
		return nil, err
	}
	items := make([]viewItem, 0, len(views))
	for _, v := range views {
		item, err := describeView(ctx, tx, v)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ViewType != items[j].ViewType {
			return items[i].ViewType < items[j].ViewType
		}
		return items[i].Name < items[j].Name
	})
	return newList(items), nil
}

func activeView(ctx context.Context, tx docmodel.Tx, _ noArgs) (any, error) {
	v, err := activeViewOf(ctx, tx)
	if err != nil {
		return nil, err
	}
	return describeView(ctx, tx, v)
}

type wallTypeItem struct {
	ID     docmodel.ElementID `json:"id"`
	Family string             `json:"family"`
	Name   string             `json:"name"`
}

func wallTypesList(ctx context.Context, tx docmodel.Tx, _ noArgs) (any, error) {
	types, err := tx.Elements(ctx, docmodel.Query{Class: docmodel.ClassWallType, Types: docmodel.TypesOnly})
	if err != nil {
		return nil, err
	}
	items := make([]wallTypeItem, 0, len(types))
	for _, t := range types {
		items = append(items, wallTypeItem{ID: t.ID, Family: t.FamilyName, Name: t.Name})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Family != items[j].Family {
			return items[i].Family < items[j].Family
		}
		return items[i].Name < items[j].Name
	})
	return newList(items), nil
}

type familyTypeItem struct {
	ID       docmodel.ElementID `json:"id"`
	Family   string             `json:"family"`
	Type     string             `json:"type"`
	Category string             `json:"category"`
}

func familyTypesList(ctx context.Context, tx docmodel.Tx, _ noArgs) (any, error) {
	types, err := tx.Elements(ctx, docmodel.Query{Class: docmodel.ClassFamilySymbol, Types: docmodel.TypesOnly})
	if err != nil {
		return nil, err
	}
	cats, err := tx.Categories(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]familyTypeItem, 0, len(types))
	for _, t := range types {
		items = append(items, familyTypeItem{
			ID:       t.ID,
			Family:   t.FamilyName,
			Type:     t.Name,
			Category: categoryName(cats, t.CategoryID),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Family != b.Family {
			return a.Family < b.Family
		}
		return a.Type < b.Type
	})
	return newList(items), nil
}

type categoryItem struct {
	ID      docmodel.ElementID `json:"id"`
	Name    string             `json:"name"`
	BuiltIn string             `json:"bic,omitempty"`
}

func categoriesList(ctx context.Context, tx docmodel.Tx, _ noArgs) (any, error) {
	cats, err := tx.Categories(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]categoryItem, 0, len(cats))
	for _, c := range cats {
		items = append(items, categoryItem{ID: c.ID, Name: c.Name, BuiltIn: c.BuiltIn})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return newList(items), nil
}

type elementInfoRequest struct {
	ElementID         docmodel.ElementID `json:"elementId"`
	IncludeParameters *bool              `json:"includeParameters"`
	TopNParams        *int               `json:"topNParams"`
}

func (r elementInfoRequest) Validate() error {
	if r.ElementID <= 0 {
		return registry.Invalid("element.info requires a valid elementId.")
	}
	return nil
}

type infoOptions struct {
	params bool
	topN   int
}

func newInfoOptions(include *bool, topN *int) infoOptions {
	o := infoOptions{params: true, topN: 50}
	if include != nil {
		o.params = *include
	}
	if topN != nil {
		o.topN = *topN
	}
	return o
}

type paramInfo struct {
	Name        string `json:"name"`
	BuiltIn     string `json:"builtIn,omitempty"`
	GUID        string `json:"guid,omitempty"`
	StorageType string `json:"storageType"`
	Value       any    `json:"value"`
	ValueString string `json:"valueString"`
	IsReadOnly  bool   `json:"isReadOnly"`
}

type metrics struct {
	LengthM  *float64 `json:"length_m"`
	AreaM2   *float64 `json:"area_m2"`
	VolumeM3 *float64 `json:"volume_m3"`
}

type elementInfoResult struct {
	ElementID  docmodel.ElementID `json:"elementId"`
	Category   string             `json:"category"`
	TypeName   string             `json:"typeName,omitempty"`
	Level      string             `json:"level,omitempty"`
	Name       string             `json:"name"`
	Metrics    metrics            `json:"metrics"`
	Parameters []paramInfo        `json:"parameters,omitempty"`
}

func buildElementInfo(ctx context.Context, r docmodel.Reader, el docmodel.Element, opts infoOptions) (elementInfoResult, error) {
	cats, err := r.Categories(ctx)
	if err != nil {
		return elementInfoResult{}, err
	}
	typeName, err := nameOf(ctx, r, el.TypeID)
	if err != nil {
		return elementInfoResult{}, err
	}
	ps, err := r.Parameters(ctx, el.ID)
	if err != nil {
		return elementInfoResult{}, err
	}

	levelID := el.LevelID
	if !levelID.IsValid() {
		if p, ok := findParam(ps, "RBS_START_LEVEL_PARAM"); ok {
			levelID = p.Value.Ref
		}
	}
	level, err := nameOf(ctx, r, levelID)
	if err != nil {
		return elementInfoResult{}, err
	}

	info := elementInfoResult{
		ElementID: el.ID,
		Category:  categoryName(cats, el.CategoryID),
		TypeName:  typeName,
		Level:     level,
		Name:      el.Name,
		Metrics: metrics{
			LengthM:  metric(ps, "CURVE_ELEM_LENGTH", units.Length),
			AreaM2:   metric(ps, "HOST_AREA_COMPUTED", units.Area),
			VolumeM3: metric(ps, "HOST_VOLUME_COMPUTED", units.Volume),
		},
	}

	if opts.params {
		n := len(ps)
		if opts.topN > 0 && opts.topN < n {
			n = opts.topN
		}
		info.Parameters = make([]paramInfo, 0, n)
		for _, p := range ps[:n] {
			info.Parameters = append(info.Parameters, paramInfo{
				Name:        p.Name,
				BuiltIn:     p.BuiltIn,
				GUID:        p.SharedID,
				StorageType: p.Storage.String(),
				Value:       p.Raw(),
				ValueString: p.ValueString(),
				IsReadOnly:  p.ReadOnly,
			})
		}
	}
	return info, nil
}

func metric(ps []docmodel.Parameter, builtIn string, kind units.Kind) *float64 {
	p, ok := findParam(ps, builtIn)
	if !ok || p.Storage != docmodel.StorageDouble {
		return nil
	}
	v := display(kind, p.Value.Double)
	return &v
}

func elementInfo(ctx context.Context, tx docmodel.Tx, req elementInfoRequest) (any, error) {
	el, err := lookup(ctx, tx, req.ElementID)
	if err != nil {
		return nil, err
	}
	return buildElementInfo(ctx, tx, el, newInfoOptions(req.IncludeParameters, req.TopNParams))
}

type selectionInfoRequest struct {
	IncludeParameters *bool `json:"includeParameters"`
	TopNParams        *int  `json:"topNParams"`
}

func selectionInfo(ctx context.Context, tx docmodel.Tx, req selectionInfoRequest) (any, error) {
	sel, err := tx.Selection(ctx)
	if err != nil {
		return nil, err
	}
	opts := newInfoOptions(req.IncludeParameters, req.TopNParams)
	items := make([]elementInfoResult, 0, len(sel))
	for _, id := range sel {
		el, err := lookup(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		info, err := buildElementInfo(ctx, tx, el, opts)
		if err != nil {
			return nil, err
		}
		items = append(items, info)
	}
	return newList(items), nil
}
