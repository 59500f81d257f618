package docmodel

import (
	"context"
	"errors"
)

// ErrNotFound is returned by lookups for an id that does not exist.
var ErrNotFound = errors.New("not found")

// TypeMode selects instances, types or both in a Query.
type TypeMode int

const (
	InstancesOnly TypeMode = iota
	TypesOnly
	AnyKind
)

// Query scopes Elements. Zero fields do not filter.
type Query struct {
	Class      Class
	CategoryID ElementID
	ViewID     ElementID // restrict to elements placed in this view
	Types      TypeMode
}

// Reader is the read side of the document model.
// Results are always ordered by id.
type Reader interface {
	Element(ctx context.Context, id ElementID) (Element, error)
	Elements(ctx context.Context, q Query) ([]Element, error)
	Parameters(ctx context.Context, id ElementID) ([]Parameter, error)
	Categories(ctx context.Context) ([]Category, error)
	Selection(ctx context.Context) ([]ElementID, error)
	Setting(ctx context.Context, key string) (string, error)
	HiddenCategories(ctx context.Context, viewID ElementID) ([]ElementID, error)
}

// NewElement describes an element to create. Params override or extend
// the class defaults by name.
type NewElement struct {
	Class      Class
	Name       string
	CategoryID ElementID
	TypeID     ElementID
	LevelID    ElementID
	FamilyName string
	IsType     bool
	Params     []Parameter
}

// Writer mutates the document. Only a Tx implements it.
type Writer interface {
	Reader
	CreateElement(ctx context.Context, el NewElement) (ElementID, error)
	SetParameter(ctx context.Context, id ElementID, name string, v ParamValue) error
	AddParameter(ctx context.Context, id ElementID, p Parameter) error
	PlaceInView(ctx context.Context, viewID, id ElementID) error
	SetCategoryHidden(ctx context.Context, viewID, categoryID ElementID, hidden bool) error
	SetSelection(ctx context.Context, ids []ElementID) error
	SetSetting(ctx context.Context, key, value string) error
}

// Tx is one atomic change-set. Commit publishes every write; Rollback
// discards them all. Exactly one of the two should be called.
type Tx interface {
	Writer
	Commit() error
	Rollback() error
}

// Document is the host document: readable directly, writable only through
// a transaction.
type Document interface {
	Reader
	Begin(ctx context.Context, label string) (Tx, error)
}

// Well-known settings keys.
const (
	SettingActiveView = "active_view"
)
