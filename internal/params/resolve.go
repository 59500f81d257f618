// Package params finds settable parameters on elements and writes values
// to them with storage-kind coercion.
//
// A Token names a parameter three ways. Resolution tries, in order, the
// shared GUID, the built-in identifier and the display name; each method
// is tried on the instance first and only then on its defining type. The
// first hit wins and records where it was found.
package params

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/names"
	"github.com/roach88/cadbridge/internal/wire"
)

// Source tells whether a parameter was found on the instance or its type.
type Source string

const (
	SourceInstance Source = "instance"
	SourceType     Source = "type"
)

// Token identifies a parameter. Name is the display name; when it happens
// to be a built-in identifier it is tried as one too.
type Token struct {
	Name     string `json:"param,omitempty"`
	BuiltIn  string `json:"bip,omitempty"`
	SharedID string `json:"guid,omitempty"`
}

// IsZero reports whether no method is given.
func (t Token) IsZero() bool {
	return t.Name == "" && t.BuiltIn == "" && t.SharedID == ""
}

// Label names the token in results: built-in, then GUID, then name.
func (t Token) Label() string {
	switch {
	case t.BuiltIn != "":
		return t.BuiltIn
	case t.SharedID != "":
		return t.SharedID
	default:
		return t.Name
	}
}

// Validate checks the token shape. A GUID must parse.
func (t Token) Validate() error {
	if t.IsZero() {
		return errors.New("param, bip or guid is required")
	}
	if t.SharedID != "" {
		if _, err := uuid.Parse(t.SharedID); err != nil {
			return fmt.Errorf("guid %q is not a valid GUID", t.SharedID)
		}
	}
	return nil
}

// Match is a resolved parameter and the element that owns it.
type Match struct {
	Param  docmodel.Parameter
	Owner  docmodel.ElementID
	Source Source
}

type owner struct {
	id     docmodel.ElementID
	source Source
	params []docmodel.Parameter
}

// method reports whether p matches one resolution method of a token.
type method func(p docmodel.Parameter) bool

func (t Token) methods() []method {
	var ms []method
	if t.SharedID != "" {
		if u, err := uuid.Parse(t.SharedID); err == nil {
			guid := u.String()
			ms = append(ms, func(p docmodel.Parameter) bool {
				return p.SharedID != "" && strings.EqualFold(p.SharedID, guid)
			})
		}
	}
	if t.BuiltIn != "" {
		if bip, ok := docmodel.LookupBuiltIn(t.BuiltIn); ok {
			ms = append(ms, func(p docmodel.Parameter) bool { return p.BuiltIn == bip.Name })
		}
	}
	if t.Name != "" {
		if bip, ok := docmodel.LookupBuiltIn(t.Name); ok {
			ms = append(ms, func(p docmodel.Parameter) bool { return p.BuiltIn == bip.Name })
		}
		name := t.Name
		ms = append(ms, func(p docmodel.Parameter) bool { return names.Equal(p.Name, name) })
	}
	return ms
}

// Resolve finds the parameter tok names on el or on el's type.
func Resolve(ctx context.Context, r docmodel.Reader, el docmodel.Element, tok Token) (Match, error) {
	owners, err := ownersOf(ctx, r, el)
	if err != nil {
		return Match{}, err
	}
	for _, matches := range tok.methods() {
		for _, o := range owners {
			for _, p := range o.params {
				if matches(p) {
					return Match{Param: p, Owner: o.id, Source: o.source}, nil
				}
			}
		}
	}
	return Match{}, wire.Errorf(wire.KindParameterNotFound, "Parameter not found")
}

func ownersOf(ctx context.Context, r docmodel.Reader, el docmodel.Element) ([]owner, error) {
	inst, err := r.Parameters(ctx, el.ID)
	if err != nil {
		return nil, fmt.Errorf("read parameters of %d: %w", el.ID, err)
	}
	owners := []owner{{id: el.ID, source: SourceInstance, params: inst}}

	if el.TypeID.IsValid() {
		typ, err := r.Parameters(ctx, el.TypeID)
		switch {
		case errors.Is(err, docmodel.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("read parameters of type %d: %w", el.TypeID, err)
		default:
			owners = append(owners, owner{id: el.TypeID, source: SourceType, params: typ})
		}
	}
	return owners, nil
}

// Set resolves tok on el and writes v to it. Read-only parameters are
// refused before any write is attempted.
func Set(ctx context.Context, w docmodel.Writer, el docmodel.Element, tok Token, v wire.Value) (Match, error) {
	m, err := Resolve(ctx, w, el, tok)
	if err != nil {
		return Match{}, err
	}
	if m.Param.ReadOnly {
		return m, wire.Errorf(wire.KindParameterReadOnly, "Parameter is read-only")
	}
	pv, err := Coerce(m.Param, v)
	if err != nil {
		return m, err
	}
	if err := w.SetParameter(ctx, m.Owner, m.Param.Name, pv); err != nil {
		return m, fmt.Errorf("set %q on %d: %w", m.Param.Name, m.Owner, err)
	}
	return m, nil
}
