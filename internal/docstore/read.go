package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/units"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// reader implements docmodel.Reader over a queryer.
type reader struct {
	q queryer
}

const elementColumns = `e.id, e.class, e.name, e.category_id, e.type_id, e.level_id, e.family_name, e.is_type`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanElement(row rowScanner) (docmodel.Element, error) {
	var (
		el                   docmodel.Element
		class                string
		category, typ, level sql.NullInt64
		isType               int
	)
	if err := row.Scan(&el.ID, &class, &el.Name, &category, &typ, &level, &el.FamilyName, &isType); err != nil {
		return docmodel.Element{}, err
	}
	el.Class = docmodel.Class(class)
	el.CategoryID = fromNull(category)
	el.TypeID = fromNull(typ)
	el.LevelID = fromNull(level)
	el.IsType = isType != 0
	return el, nil
}

func fromNull(n sql.NullInt64) docmodel.ElementID {
	if !n.Valid {
		return docmodel.InvalidElementID
	}
	return docmodel.ElementID(n.Int64)
}

func toNull(id docmodel.ElementID) sql.NullInt64 {
	if !id.IsValid() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(id), Valid: true}
}

// Element returns the element with id, or docmodel.ErrNotFound.
func (r reader) Element(ctx context.Context, id docmodel.ElementID) (docmodel.Element, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+elementColumns+` FROM elements e WHERE e.id = ?`, int64(id))
	el, err := scanElement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return docmodel.Element{}, fmt.Errorf("element %d: %w", id, docmodel.ErrNotFound)
	}
	if err != nil {
		return docmodel.Element{}, fmt.Errorf("read element %d: %w", id, err)
	}
	return el, nil
}

// Elements returns the elements matching q, ordered by id.
func (r reader) Elements(ctx context.Context, q docmodel.Query) ([]docmodel.Element, error) {
	var (
		sb    strings.Builder
		where []string
		args  []any
	)
	sb.WriteString(`SELECT ` + elementColumns + ` FROM elements e`)
	if q.ViewID != 0 {
		sb.WriteString(` JOIN view_elements ve ON ve.element_id = e.id AND ve.view_id = ?`)
		args = append(args, int64(q.ViewID))
	}
	if q.Class != "" {
		where = append(where, `e.class = ?`)
		args = append(args, string(q.Class))
	}
	if q.CategoryID != 0 {
		where = append(where, `e.category_id = ?`)
		args = append(args, int64(q.CategoryID))
	}
	switch q.Types {
	case docmodel.InstancesOnly:
		where = append(where, `e.is_type = 0`)
	case docmodel.TypesOnly:
		where = append(where, `e.is_type = 1`)
	}
	if len(where) > 0 {
		sb.WriteString(` WHERE ` + strings.Join(where, ` AND `))
	}
	sb.WriteString(` ORDER BY e.id ASC`)

	rows, err := r.q.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query elements: %w", err)
	}
	defer rows.Close()

	var out []docmodel.Element
	for rows.Next() {
		el, err := scanElement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan element: %w", err)
		}
		out = append(out, el)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query elements: %w", err)
	}
	return out, nil
}

// Parameters returns the parameters of element id in display order.
func (r reader) Parameters(ctx context.Context, id docmodel.ElementID) ([]docmodel.Parameter, error) {
	if _, err := r.Element(ctx, id); err != nil {
		return nil, err
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT name, builtin, shared_id, storage, unit, read_only,
		       text_value, int_value, double_value, ref_value
		FROM parameters
		WHERE element_id = ?
		ORDER BY rowid ASC
	`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("query parameters of %d: %w", id, err)
	}
	defer rows.Close()

	var out []docmodel.Parameter
	for rows.Next() {
		var (
			p        docmodel.Parameter
			storage  string
			unit     string
			readOnly int
			text     sql.NullString
			ref      int64
		)
		if err := rows.Scan(&p.Name, &p.BuiltIn, &p.SharedID, &storage, &unit, &readOnly,
			&text, &p.Value.Int, &p.Value.Double, &ref); err != nil {
			return nil, fmt.Errorf("scan parameter: %w", err)
		}
		if p.Storage, err = docmodel.ParseStorageKind(storage); err != nil {
			return nil, fmt.Errorf("parameter %q of %d: %w", p.Name, id, err)
		}
		if p.Unit, err = units.ParseKind(unit); err != nil {
			return nil, fmt.Errorf("parameter %q of %d: %w", p.Name, id, err)
		}
		p.ReadOnly = readOnly != 0
		if text.Valid {
			s := text.String
			p.Value.Text = &s
		}
		p.Value.Ref = docmodel.ElementID(ref)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query parameters of %d: %w", id, err)
	}
	return out, nil
}

// Categories returns the category catalog ordered by id.
func (r reader) Categories(ctx context.Context) ([]docmodel.Category, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, builtin, name FROM categories ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []docmodel.Category
	for rows.Next() {
		var c docmodel.Category
		if err := rows.Scan(&c.ID, &c.BuiltIn, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Selection returns the selected element ids in selection order.
func (r reader) Selection(ctx context.Context) ([]docmodel.ElementID, error) {
	return r.ids(ctx, `SELECT element_id FROM selection ORDER BY position ASC`)
}

// HiddenCategories returns the categories hidden in a view.
func (r reader) HiddenCategories(ctx context.Context, viewID docmodel.ElementID) ([]docmodel.ElementID, error) {
	return r.ids(ctx, `SELECT category_id FROM view_hidden_categories WHERE view_id = ? ORDER BY category_id ASC`, int64(viewID))
}

// Setting returns a document setting, "" when unset.
func (r reader) Setting(ctx context.Context, key string) (string, error) {
	var v string
	err := r.q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %q: %w", key, err)
	}
	return v, nil
}

func (r reader) ids(ctx context.Context, query string, args ...any) ([]docmodel.ElementID, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []docmodel.ElementID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, docmodel.ElementID(id))
	}
	return out, rows.Err()
}
