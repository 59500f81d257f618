package params

import (
	"context"
	"errors"

	"github.com/roach88/cadbridge/internal/docmodel"
)

// Row is one parameter reading. Failed lookups carry Error and no value.
type Row struct {
	ElementID   docmodel.ElementID `json:"elementId"`
	Param       string             `json:"param"`
	StorageType string             `json:"storageType,omitempty"`
	Value       any                `json:"value,omitempty"`
	ValueString *string            `json:"valueString,omitempty"`
	Source      Source             `json:"source,omitempty"`
	Error       string             `json:"error,omitempty"`
}

// Read reads every named parameter of every element. Unknown elements and
// parameters produce error rows rather than failing the call.
func Read(ctx context.Context, r docmodel.Reader, ids []docmodel.ElementID, toks []Token, withString bool) ([]Row, error) {
	rows := make([]Row, 0, len(ids)*len(toks))
	for _, id := range ids {
		el, err := r.Element(ctx, id)
		if errors.Is(err, docmodel.ErrNotFound) {
			for _, tok := range toks {
				rows = append(rows, Row{ElementID: id, Param: tok.Label(), Error: "Element not found"})
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		for _, tok := range toks {
			row := Row{ElementID: id, Param: tok.Label()}
			m, err := Resolve(ctx, r, el, tok)
			if err != nil {
				if isolate(err) != nil {
					return nil, err
				}
				row.Error = err.Error()
				rows = append(rows, row)
				continue
			}
			row.StorageType = m.Param.Storage.String()
			row.Value = m.Param.Raw()
			row.Source = m.Source
			if withString {
				s := m.Param.ValueString()
				row.ValueString = &s
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}
