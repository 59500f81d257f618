package targeting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/names"
	"github.com/roach88/cadbridge/internal/wire"
)

// categoryAlias maps a display-name variant to a system identifier.
type categoryAlias struct {
	Alias   string
	BuiltIn string
}

// categoryAliases is consulted in order after the system identifier parse
// fails. The first hit wins.
var categoryAliases = []categoryAlias{
	{"Walls", "OST_Walls"},
	{"Wall", "OST_Walls"},
	{"Muros", "OST_Walls"},
	{"Muro", "OST_Walls"},
	{"Doors", "OST_Doors"},
	{"Door", "OST_Doors"},
	{"Puertas", "OST_Doors"},
	{"Windows", "OST_Windows"},
	{"Window", "OST_Windows"},
	{"Ventanas", "OST_Windows"},
	{"Floors", "OST_Floors"},
	{"Floor", "OST_Floors"},
	{"Suelos", "OST_Floors"},
	{"Pisos", "OST_Floors"},
	{"Levels", "OST_Levels"},
	{"Niveles", "OST_Levels"},
	{"Grids", "OST_Grids"},
	{"Rejillas", "OST_Grids"},
	{"Ejes", "OST_Grids"},
	{"Views", "OST_Views"},
	{"Vistas", "OST_Views"},
	{"Ducts", "OST_DuctCurves"},
	{"Conductos", "OST_DuctCurves"},
	{"Pipes", "OST_PipeCurves"},
	{"Tuberías", "OST_PipeCurves"},
	{"Generic Models", "OST_GenericModel"},
	{"Modelos genéricos", "OST_GenericModel"},
	{"Furniture", "OST_Furniture"},
	{"Mobiliario", "OST_Furniture"},
	{"Rooms", "OST_Rooms"},
	{"Habitaciones", "OST_Rooms"},
	{"Structural Columns", "OST_StructuralColumns"},
	{"Pilares estructurales", "OST_StructuralColumns"},
}

// ResolveCategory resolves a category token: system identifier first (with
// or without the OST_ prefix), then the alias list, then the document's
// own display names. An unresolved token is a CategoryNotFound error.
func ResolveCategory(ctx context.Context, r docmodel.Reader, token string) (docmodel.Category, error) {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return docmodel.Category{}, wire.Errorf(wire.KindCategoryNotFound, "Category not found: %s", token)
	}

	cats, err := r.Categories(ctx)
	if err != nil {
		return docmodel.Category{}, fmt.Errorf("read categories: %w", err)
	}
	byBuiltIn := func(builtIn string) (docmodel.Category, bool) {
		for _, c := range cats {
			if c.BuiltIn == builtIn {
				return c, true
			}
		}
		return docmodel.Category{}, false
	}

	if c, ok := docmodel.LookupBuiltInCategory(tok); ok {
		if dc, ok := byBuiltIn(c.BuiltIn); ok {
			return dc, nil
		}
	}
	for _, a := range categoryAliases {
		if names.Equal(a.Alias, tok) {
			if dc, ok := byBuiltIn(a.BuiltIn); ok {
				return dc, nil
			}
		}
	}
	for _, c := range cats {
		if names.Equal(c.Name, tok) {
			return c, nil
		}
	}
	return docmodel.Category{}, wire.Errorf(wire.KindCategoryNotFound, "Category not found: %s", token)
}

// FindView resolves a view by id, or by name case-insensitively.
func FindView(ctx context.Context, r docmodel.Reader, id docmodel.ElementID, name string) (docmodel.Element, error) {
	return findView(ctx, r, id, name)
}

func findView(ctx context.Context, r docmodel.Reader, id docmodel.ElementID, name string) (docmodel.Element, error) {
	notFound := wire.Errorf(wire.KindViewNotFound, "View not found for filter.")

	if id > 0 {
		el, err := r.Element(ctx, id)
		if errors.Is(err, docmodel.ErrNotFound) {
			return docmodel.Element{}, notFound
		}
		if err != nil {
			return docmodel.Element{}, err
		}
		if el.Class != docmodel.ClassView {
			return docmodel.Element{}, notFound
		}
		return el, nil
	}

	if name != "" {
		views, err := r.Elements(ctx, docmodel.Query{Class: docmodel.ClassView})
		if err != nil {
			return docmodel.Element{}, fmt.Errorf("collect views: %w", err)
		}
		for _, v := range views {
			if names.Equal(v.Name, name) {
				return v, nil
			}
		}
	}
	return docmodel.Element{}, notFound
}
