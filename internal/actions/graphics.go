package actions

import (
	"context"
	"strings"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/registry"
	"github.com/roach88/cadbridge/internal/targeting"
)

// Host enumeration values.
var (
	detailLevels = map[string]int64{"coarse": 1, "medium": 2, "fine": 3}
	disciplines  = map[string]int64{
		"architectural": 1,
		"structural":    2,
		"mechanical":    4,
		"electrical":    8,
		"plumbing":      16,
		"coordination":  4095,
	}
)

func setViewInt(ctx context.Context, tx docmodel.Tx, viewID docmodel.ElementID, name string, v int64) (docmodel.Element, error) {
	view, err := resolveView(ctx, tx, viewID)
	if err != nil {
		return docmodel.Element{}, err
	}
	if err := tx.SetParameter(ctx, view.ID, name, docmodel.IntValue(v)); err != nil {
		return docmodel.Element{}, err
	}
	return view, nil
}

type viewSetScaleRequest struct {
	ViewID docmodel.ElementID `json:"viewId"`
	Scale  *int64             `json:"scale"`
}

func (r viewSetScaleRequest) Validate() error {
	if r.Scale == nil {
		return registry.Required("scale")
	}
	return nil
}

func viewSetScale(ctx context.Context, tx docmodel.Tx, req viewSetScaleRequest) (any, error) {
	scale := max(1, *req.Scale)
	view, err := setViewInt(ctx, tx, req.ViewID, "View Scale", scale)
	if err != nil {
		return nil, err
	}
	return map[string]any{"viewId": view.ID, "scale": scale}, nil
}

type viewSetDetailLevelRequest struct {
	ViewID      docmodel.ElementID `json:"viewId"`
	DetailLevel string             `json:"detailLevel"`
}

func viewSetDetailLevel(ctx context.Context, tx docmodel.Tx, req viewSetDetailLevelRequest) (any, error) {
	name := strings.ToLower(strings.TrimSpace(req.DetailLevel))
	code, ok := detailLevels[name]
	if !ok {
		name, code = "medium", detailLevels["medium"]
	}
	view, err := setViewInt(ctx, tx, req.ViewID, "Detail Level", code)
	if err != nil {
		return nil, err
	}
	return map[string]any{"viewId": view.ID, "detailLevel": name}, nil
}

type viewSetDisciplineRequest struct {
	ViewID     docmodel.ElementID `json:"viewId"`
	Discipline string             `json:"discipline"`
}

func viewSetDiscipline(ctx context.Context, tx docmodel.Tx, req viewSetDisciplineRequest) (any, error) {
	name := strings.ToLower(strings.TrimSpace(req.Discipline))
	code, ok := disciplines[name]
	if !ok {
		name, code = "coordination", disciplines["coordination"]
	}
	view, err := setViewInt(ctx, tx, req.ViewID, "Discipline", code)
	if err != nil {
		return nil, err
	}
	return map[string]any{"viewId": view.ID, "discipline": name}, nil
}

type viewSetVisibilityRequest struct {
	ViewID     docmodel.ElementID `json:"viewId"`
	Categories []string           `json:"categories"`
	Visible    *bool              `json:"visible"`
}

func (r viewSetVisibilityRequest) Validate() error {
	if len(r.Categories) == 0 {
		return registry.Required("categories")
	}
	return nil
}

type visibilityResult struct {
	ViewID  docmodel.ElementID `json:"viewId"`
	Visible bool               `json:"visible"`
	Changed int                `json:"changed"`
}

// viewSetCategoryVisibility resolves every category before touching the
// view, so an unknown token fails the job without partial changes.
func viewSetCategoryVisibility(ctx context.Context, tx docmodel.Tx, req viewSetVisibilityRequest) (any, error) {
	visible := req.Visible == nil || *req.Visible
	view, err := resolveView(ctx, tx, req.ViewID)
	if err != nil {
		return nil, err
	}

	cats := make([]docmodel.Category, 0, len(req.Categories))
	for _, tok := range req.Categories {
		c, err := targeting.ResolveCategory(ctx, tx, tok)
		if err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}

	hidden, err := tx.HiddenCategories(ctx, view.ID)
	if err != nil {
		return nil, err
	}
	isHidden := make(map[docmodel.ElementID]bool, len(hidden))
	for _, id := range hidden {
		isHidden[id] = true
	}

	changed := 0
	for _, c := range cats {
		if isHidden[c.ID] != visible {
			continue
		}
		if err := tx.SetCategoryHidden(ctx, view.ID, c.ID, !visible); err != nil {
			return nil, err
		}
		isHidden[c.ID] = !visible
		changed++
	}
	return visibilityResult{ViewID: view.ID, Visible: visible, Changed: changed}, nil
}
