// Package actions is the action catalog: one typed request and one unit
// of work per action name.
//
// Builders only decode and validate. All reads and writes happen in the
// returned unit of work, against the transaction the bridge opens for it.
package actions

import (
	"fmt"

	"github.com/roach88/cadbridge/internal/registry"
)

// Action is one catalog entry.
type Action struct {
	Name    string
	Summary string
	Builder registry.Builder
}

// Catalog returns every action in registration order.
func Catalog() []Action {
	return []Action{
		// params
		{"params.get", "Read parameters of elements by name, built-in or GUID.", registry.Typed(paramsGet)},
		{"params.set", "Write one value per element; elementId <= 0 targets the selection.", registry.Typed(paramsSet)},
		{"params.bulk_from_table", "Write rows of {elementId, param, value}.", registry.Typed(paramsSet)},
		{"params.set_where", "Write values to every element matched by a where filter.", registry.Typed(paramsSetWhere)},

		// query
		{"levels.list", "List levels by elevation.", registry.Typed(levelsList)},
		{"views.list", "List views.", registry.Typed(viewsList)},
		{"walltypes.list", "List wall types.", registry.Typed(wallTypesList)},
		{"families.types.list", "List loadable family types.", registry.Typed(familyTypesList)},
		{"categories.list", "List document categories.", registry.Typed(categoriesList)},
		{"element.info", "Describe one element.", registry.Typed(elementInfo)},
		{"selection.info", "Describe the selected elements.", registry.Typed(selectionInfo)},
		{"view.active", "Describe the active view.", registry.Typed(activeView)},

		// architecture
		{"level.create", "Create a level at an elevation in meters.", registry.Typed(levelCreate)},
		{"grid.create", "Create a grid line between two points.", registry.Typed(gridCreate)},
		{"wall.create", "Create a wall between two points.", registry.Typed(wallCreate)},

		// graphics
		{"view.set_scale", "Set a view's scale.", registry.Typed(viewSetScale)},
		{"view.set_detail_level", "Set a view's detail level.", registry.Typed(viewSetDetailLevel)},
		{"view.set_discipline", "Set a view's discipline.", registry.Typed(viewSetDiscipline)},
		{"view.category.set_visibility", "Show or hide categories in a view.", registry.Typed(viewSetCategoryVisibility)},

		// selection
		{"selection.set", "Replace the current selection.", registry.Typed(selectionSet)},
	}
}

// Register adds the whole catalog to reg.
func Register(reg *registry.Registry) error {
	for _, a := range Catalog() {
		if err := reg.Register(a.Name, a.Builder); err != nil {
			return fmt.Errorf("register actions: %w", err)
		}
	}
	return nil
}

// NewRegistry returns a frozen registry holding the catalog.
func NewRegistry() (*registry.Registry, error) {
	reg := registry.New()
	if err := Register(reg); err != nil {
		return nil, err
	}
	reg.Freeze()
	return reg, nil
}
