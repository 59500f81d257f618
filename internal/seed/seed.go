// Package seed loads document fixtures and applies them in one transaction.
//
// A fixture lists elements in dependency order. Elements refer to each
// other (type, level, views, ElementId parameters) by symbolic key, so a
// fixture never depends on the ids the document allocates. Fixtures can be
// written in YAML, JSON or CUE.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/names"
	"github.com/roach88/cadbridge/internal/units"
)

// Seed is a document fixture.
type Seed struct {
	Name       string        `yaml:"name" json:"name"`
	Elements   []ElementSpec `yaml:"elements" json:"elements"`
	Selection  []string      `yaml:"selection,omitempty" json:"selection,omitempty"`
	ActiveView string        `yaml:"active_view,omitempty" json:"active_view,omitempty"`
	Hidden     []HiddenSpec  `yaml:"hidden,omitempty" json:"hidden,omitempty"`
}

// ElementSpec describes one element. Type, Level, Views and parameter Ref
// fields hold keys of elements declared earlier in the fixture.
type ElementSpec struct {
	Key      string      `yaml:"key" json:"key"`
	Class    string      `yaml:"class" json:"class"`
	Name     string      `yaml:"name,omitempty" json:"name,omitempty"`
	Category string      `yaml:"category,omitempty" json:"category,omitempty"`
	Type     string      `yaml:"type,omitempty" json:"type,omitempty"`
	Level    string      `yaml:"level,omitempty" json:"level,omitempty"`
	Family   string      `yaml:"family,omitempty" json:"family,omitempty"`
	Views    []string    `yaml:"views,omitempty" json:"views,omitempty"`
	Params   []ParamSpec `yaml:"params,omitempty" json:"params,omitempty"`
}

// ParamSpec overrides a class default parameter or adds a new one. New
// parameters must name a storage kind. Number is in display units.
type ParamSpec struct {
	Name     string   `yaml:"name" json:"name"`
	BuiltIn  string   `yaml:"builtin,omitempty" json:"builtin,omitempty"`
	SharedID string   `yaml:"shared_id,omitempty" json:"shared_id,omitempty"`
	Storage  string   `yaml:"storage,omitempty" json:"storage,omitempty"`
	Unit     string   `yaml:"unit,omitempty" json:"unit,omitempty"`
	ReadOnly bool     `yaml:"read_only,omitempty" json:"read_only,omitempty"`
	Text     *string  `yaml:"text,omitempty" json:"text,omitempty"`
	Int      *int64   `yaml:"int,omitempty" json:"int,omitempty"`
	Number   *float64 `yaml:"number,omitempty" json:"number,omitempty"`
	Ref      string   `yaml:"ref,omitempty" json:"ref,omitempty"`
}

// HiddenSpec hides categories in a view.
type HiddenSpec struct {
	View       string   `yaml:"view" json:"view"`
	Categories []string `yaml:"categories" json:"categories"`
}

//go:embed demo.yaml
var demoYAML []byte

// Demo returns the built-in demo document.
func Demo() *Seed {
	s, err := Parse(demoYAML, FormatYAML, "demo.yaml")
	if err != nil {
		panic(fmt.Sprintf("embedded demo seed: %v", err))
	}
	return s
}

// Format selects the fixture decoder.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatCUE  Format = "cue"
)

// FormatFor picks a format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", fmt.Errorf("unsupported seed format %q", filepath.Ext(path))
	}
}

// Load reads and validates a fixture file.
func Load(path string) (*Seed, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return Parse(data, format, path)
}

// Parse decodes and validates a fixture. name is used for CUE positions.
func Parse(data []byte, format Format, name string) (*Seed, error) {
	var s Seed
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("parse seed yaml: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("parse seed json: %w", err)
		}
	case FormatCUE:
		v := cuecontext.New().CompileBytes(data, cue.Filename(name))
		if err := v.Err(); err != nil {
			return nil, fmt.Errorf("parse seed cue: %w", err)
		}
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return nil, fmt.Errorf("parse seed cue: %w", err)
		}
		if err := v.Decode(&s); err != nil {
			return nil, fmt.Errorf("decode seed cue: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported seed format %q", format)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks keys and classes without touching a document.
func (s *Seed) Validate() error {
	seen := make(map[string]bool, len(s.Elements))
	for i, el := range s.Elements {
		if el.Key == "" {
			return fmt.Errorf("elements[%d]: key is required", i)
		}
		if seen[el.Key] {
			return fmt.Errorf("elements[%d]: duplicate key %q", i, el.Key)
		}
		if !docmodel.KnownClass(docmodel.Class(el.Class)) {
			return fmt.Errorf("element %q: unknown class %q", el.Key, el.Class)
		}
		for _, ref := range append([]string{el.Type, el.Level}, el.Views...) {
			if ref != "" && !seen[ref] {
				return fmt.Errorf("element %q: reference %q must be declared earlier", el.Key, ref)
			}
		}
		for _, p := range el.Params {
			if p.Name == "" {
				return fmt.Errorf("element %q: parameter name is required", el.Key)
			}
			if p.Ref != "" && !seen[p.Ref] {
				return fmt.Errorf("element %q: parameter %q reference %q must be declared earlier", el.Key, p.Name, p.Ref)
			}
		}
		seen[el.Key] = true
	}
	for _, k := range s.Selection {
		if !seen[k] {
			return fmt.Errorf("selection: unknown key %q", k)
		}
	}
	if s.ActiveView != "" && !seen[s.ActiveView] {
		return fmt.Errorf("active_view: unknown key %q", s.ActiveView)
	}
	for _, h := range s.Hidden {
		if !seen[h.View] {
			return fmt.Errorf("hidden: unknown view %q", h.View)
		}
	}
	return nil
}

// Apply writes the fixture into doc in a single transaction and returns
// the ids allocated per key. Any failure leaves doc untouched.
func Apply(ctx context.Context, doc docmodel.Document, s *Seed) (map[string]docmodel.ElementID, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	label := "Seed"
	if s.Name != "" {
		label = "Seed: " + s.Name
	}
	tx, err := doc.Begin(ctx, label)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	cats, err := tx.Categories(ctx)
	if err != nil {
		return nil, err
	}

	ids := make(map[string]docmodel.ElementID, len(s.Elements))
	for _, spec := range s.Elements {
		id, err := createElement(ctx, tx, spec, ids, cats)
		if err != nil {
			return nil, fmt.Errorf("seed element %q: %w", spec.Key, err)
		}
		ids[spec.Key] = id
	}

	if len(s.Selection) > 0 {
		sel := make([]docmodel.ElementID, len(s.Selection))
		for i, k := range s.Selection {
			sel[i] = ids[k]
		}
		if err := tx.SetSelection(ctx, sel); err != nil {
			return nil, err
		}
	}
	if s.ActiveView != "" {
		if err := tx.SetSetting(ctx, docmodel.SettingActiveView, strconv.FormatInt(int64(ids[s.ActiveView]), 10)); err != nil {
			return nil, err
		}
	}
	for _, h := range s.Hidden {
		for _, tok := range h.Categories {
			cat, err := lookupCategory(tok, cats)
			if err != nil {
				return nil, fmt.Errorf("hidden in %q: %w", h.View, err)
			}
			if err := tx.SetCategoryHidden(ctx, ids[h.View], cat, true); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func createElement(ctx context.Context, tx docmodel.Tx, spec ElementSpec, ids map[string]docmodel.ElementID, cats []docmodel.Category) (docmodel.ElementID, error) {
	class := docmodel.Class(spec.Class)
	el := docmodel.NewElement{
		Class:      class,
		Name:       spec.Name,
		TypeID:     docmodel.InvalidElementID,
		LevelID:    docmodel.InvalidElementID,
		FamilyName: spec.Family,
	}
	if spec.Category != "" {
		cat, err := lookupCategory(spec.Category, cats)
		if err != nil {
			return docmodel.InvalidElementID, err
		}
		el.CategoryID = cat
	}
	if spec.Type != "" {
		el.TypeID = ids[spec.Type]
	}
	if spec.Level != "" {
		el.LevelID = ids[spec.Level]
	}

	defaults := docmodel.DefaultParameters(class)
	for _, ps := range spec.Params {
		p, err := buildParameter(ps, defaults, ids)
		if err != nil {
			return docmodel.InvalidElementID, err
		}
		el.Params = append(el.Params, p)
	}

	id, err := tx.CreateElement(ctx, el)
	if err != nil {
		return docmodel.InvalidElementID, err
	}
	for _, v := range spec.Views {
		if err := tx.PlaceInView(ctx, ids[v], id); err != nil {
			return docmodel.InvalidElementID, err
		}
	}
	return id, nil
}

// buildParameter turns a ParamSpec into a parameter, borrowing storage and
// unit from the class default of the same name when not given.
func buildParameter(ps ParamSpec, defaults []docmodel.Parameter, ids map[string]docmodel.ElementID) (docmodel.Parameter, error) {
	p := docmodel.Parameter{
		Name:     ps.Name,
		BuiltIn:  ps.BuiltIn,
		SharedID: strings.ToLower(ps.SharedID),
		ReadOnly: ps.ReadOnly,
		Value:    docmodel.ParamValue{Ref: docmodel.InvalidElementID},
	}
	for _, d := range defaults {
		if d.Name == ps.Name {
			p = d
			break
		}
	}

	var err error
	if ps.Storage != "" {
		if p.Storage, err = docmodel.ParseStorageKind(ps.Storage); err != nil {
			return p, fmt.Errorf("parameter %q: %w", ps.Name, err)
		}
	}
	if ps.Unit != "" {
		if p.Unit, err = units.ParseKind(ps.Unit); err != nil {
			return p, fmt.Errorf("parameter %q: %w", ps.Name, err)
		}
	}
	if p.Storage == docmodel.StorageNone && ps.Storage == "" {
		return p, fmt.Errorf("parameter %q: storage is required", ps.Name)
	}

	switch {
	case ps.Text != nil:
		t := *ps.Text
		p.Value.Text = &t
	case ps.Int != nil:
		p.Value.Int = *ps.Int
	case ps.Number != nil:
		p.Value.Double = units.FromDisplay(p.Unit, *ps.Number)
	case ps.Ref != "":
		p.Value.Ref = ids[ps.Ref]
	}
	return p, nil
}

func lookupCategory(token string, cats []docmodel.Category) (docmodel.ElementID, error) {
	if c, ok := docmodel.LookupBuiltInCategory(token); ok {
		return c.ID, nil
	}
	for _, c := range cats {
		if names.Equal(c.Name, token) {
			return c.ID, nil
		}
	}
	return docmodel.InvalidElementID, fmt.Errorf("unknown category %q", token)
}
