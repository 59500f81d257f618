package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/cadbridge/internal/docmodel"
)

// Tx is one atomic change-set against the document.
type Tx struct {
	reader
	tx    *sql.Tx
	label string
}

var _ docmodel.Tx = (*Tx)(nil)

// Label returns the transaction name given to Begin.
func (t *Tx) Label() string {
	return t.label
}

// Commit publishes every write made through t.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit %q: %w", t.label, err)
	}
	return nil
}

// Rollback discards every write made through t.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback %q: %w", t.label, err)
	}
	return nil
}

// CreateElement inserts an element with its class default parameters,
// overlaid by el.Params, and returns the new id.
func (t *Tx) CreateElement(ctx context.Context, el docmodel.NewElement) (docmodel.ElementID, error) {
	category := el.CategoryID
	if category == 0 {
		category = docmodel.DefaultCategory(el.Class)
	}
	isType := el.IsType || docmodel.IsTypeClass(el.Class)

	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO elements (class, name, category_id, type_id, level_id, family_name, is_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		string(el.Class),
		el.Name,
		toNull(category),
		toNull(el.TypeID),
		toNull(el.LevelID),
		el.FamilyName,
		boolInt(isType),
	)
	if err != nil {
		return docmodel.InvalidElementID, fmt.Errorf("create %s: %w", el.Class, err)
	}
	n, err := res.LastInsertId()
	if err != nil {
		return docmodel.InvalidElementID, fmt.Errorf("create %s: %w", el.Class, err)
	}
	id := docmodel.ElementID(n)

	params := docmodel.MergeParameters(docmodel.DefaultParameters(el.Class), el.Params)
	for _, p := range params {
		if err := t.insertParameter(ctx, id, p); err != nil {
			return docmodel.InvalidElementID, fmt.Errorf("create %s: %w", el.Class, err)
		}
	}
	return id, nil
}

// SetParameter writes v to the named parameter of element id.
// Read-only parameters are refused, as the host does.
func (t *Tx) SetParameter(ctx context.Context, id docmodel.ElementID, name string, v docmodel.ParamValue) error {
	var readOnly int
	err := t.tx.QueryRowContext(ctx,
		`SELECT read_only FROM parameters WHERE element_id = ? AND name = ?`,
		int64(id), name,
	).Scan(&readOnly)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("parameter %q of %d: %w", name, id, docmodel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("set parameter %q of %d: %w", name, id, err)
	}
	if readOnly != 0 {
		return fmt.Errorf("parameter %q of %d is read-only", name, id)
	}

	_, err = t.tx.ExecContext(ctx, `
		UPDATE parameters
		SET text_value = ?, int_value = ?, double_value = ?, ref_value = ?
		WHERE element_id = ? AND name = ?
	`,
		textValue(v),
		v.Int,
		v.Double,
		int64(v.Ref),
		int64(id),
		name,
	)
	if err != nil {
		return fmt.Errorf("set parameter %q of %d: %w", name, id, err)
	}
	return nil
}

// AddParameter attaches a new parameter to element id.
func (t *Tx) AddParameter(ctx context.Context, id docmodel.ElementID, p docmodel.Parameter) error {
	if _, err := t.Element(ctx, id); err != nil {
		return err
	}
	if err := t.insertParameter(ctx, id, p); err != nil {
		return fmt.Errorf("add parameter %q to %d: %w", p.Name, id, err)
	}
	return nil
}

func (t *Tx) insertParameter(ctx context.Context, id docmodel.ElementID, p docmodel.Parameter) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO parameters
		(element_id, name, builtin, shared_id, storage, unit, read_only, text_value, int_value, double_value, ref_value)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		int64(id),
		p.Name,
		p.BuiltIn,
		p.SharedID,
		p.Storage.String(),
		string(p.Unit),
		boolInt(p.ReadOnly),
		textValue(p.Value),
		p.Value.Int,
		p.Value.Double,
		int64(p.Value.Ref),
	)
	return err
}

// PlaceInView makes element id visible in a view.
func (t *Tx) PlaceInView(ctx context.Context, viewID, id docmodel.ElementID) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO view_elements (view_id, element_id) VALUES (?, ?)`,
		int64(viewID), int64(id),
	)
	if err != nil {
		return fmt.Errorf("place %d in view %d: %w", id, viewID, err)
	}
	return nil
}

// SetCategoryHidden hides or shows a category in a view.
func (t *Tx) SetCategoryHidden(ctx context.Context, viewID, categoryID docmodel.ElementID, hidden bool) error {
	var err error
	if hidden {
		_, err = t.tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO view_hidden_categories (view_id, category_id) VALUES (?, ?)`,
			int64(viewID), int64(categoryID),
		)
	} else {
		_, err = t.tx.ExecContext(ctx,
			`DELETE FROM view_hidden_categories WHERE view_id = ? AND category_id = ?`,
			int64(viewID), int64(categoryID),
		)
	}
	if err != nil {
		return fmt.Errorf("set category %d hidden=%t in view %d: %w", categoryID, hidden, viewID, err)
	}
	return nil
}

// SetSelection replaces the current selection.
func (t *Tx) SetSelection(ctx context.Context, ids []docmodel.ElementID) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM selection`); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	for i, id := range ids {
		if _, err := t.tx.ExecContext(ctx,
			`INSERT INTO selection (position, element_id) VALUES (?, ?)`,
			i, int64(id),
		); err != nil {
			return fmt.Errorf("select %d: %w", id, err)
		}
	}
	return nil
}

// SetSetting stores a document setting.
func (t *Tx) SetSetting(ctx context.Context, key, value string) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func textValue(v docmodel.ParamValue) sql.NullString {
	if v.Text == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v.Text, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
