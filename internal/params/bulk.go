package params

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/targeting"
	"github.com/roach88/cadbridge/internal/wire"
)

// Update writes one value to one element. An ElementID <= 0 stands for
// every element of the current selection.
type Update struct {
	ElementID docmodel.ElementID `json:"elementId"`
	Token
	Value wire.Scalar `json:"value"`
}

// Assignment is a value to write to every targeted element.
type Assignment struct {
	Token
	Value wire.Scalar `json:"value"`
}

// ItemResult is the outcome of one (element, parameter) write.
type ItemResult struct {
	ID     docmodel.ElementID `json:"id"`
	Param  string             `json:"param"`
	OK     bool               `json:"ok"`
	Target Source             `json:"target,omitempty"`
	Error  string             `json:"error,omitempty"`
	Code   wire.Kind          `json:"code,omitempty"`
}

// BulkResult summarizes a batch. Updated + Failed always equals the
// number of results.
type BulkResult struct {
	Targeted int          `json:"targeted"`
	Updated  int          `json:"updated"`
	Failed   int          `json:"failed"`
	Results  []ItemResult `json:"results"`
}

func (b *BulkResult) record(r ItemResult) {
	if r.OK {
		b.Updated++
	} else {
		b.Failed++
	}
	b.Results = append(b.Results, r)
}

// ErrEmptySelection is returned when an update relies on the selection and
// nothing is selected.
var ErrEmptySelection = wire.Errorf(wire.KindDomain, "Update without elementId requires a non-empty selection.")

// ExpandSelection replaces every update without an element id by one
// update per selected element, preserving order.
func ExpandSelection(ctx context.Context, r docmodel.Reader, updates []Update) ([]Update, error) {
	var (
		sel    []docmodel.ElementID
		loaded bool
		out    = make([]Update, 0, len(updates))
	)
	for _, u := range updates {
		if u.ElementID > 0 {
			out = append(out, u)
			continue
		}
		if !loaded {
			var err error
			sel, err = r.Selection(ctx)
			if err != nil {
				return nil, fmt.Errorf("read selection: %w", err)
			}
			loaded = true
		}
		if len(sel) == 0 {
			return nil, ErrEmptySelection
		}
		for _, id := range sel {
			e := u
			e.ElementID = id
			out = append(out, e)
		}
	}
	return out, nil
}

// SetList applies updates one by one. A failing item is recorded and the
// batch continues; only infrastructure failures abort it.
func SetList(ctx context.Context, w docmodel.Writer, updates []Update) (BulkResult, error) {
	res := BulkResult{Results: make([]ItemResult, 0, len(updates))}
	targets := map[docmodel.ElementID]bool{}

	for _, u := range updates {
		targets[u.ElementID] = true
		item := ItemResult{ID: u.ElementID, Param: u.Label()}

		el, err := w.Element(ctx, u.ElementID)
		if errors.Is(err, docmodel.ErrNotFound) {
			res.record(failed(item, wire.Errorf(wire.KindElementNotFound, "Element not found")))
			continue
		}
		if err != nil {
			return BulkResult{}, err
		}

		m, err := Set(ctx, w, el, u.Token, u.Value.Get())
		if err := isolate(err); err != nil {
			return BulkResult{}, err
		}
		if err != nil {
			res.record(failed(item, err))
			continue
		}
		item.OK = true
		item.Target = m.Source
		res.record(item)
	}
	res.Targeted = len(targets)
	return res, nil
}

// SetWhere resolves where and applies every assignment to every target,
// elements outer and assignments inner.
func SetWhere(ctx context.Context, w docmodel.Writer, where targeting.Where, set []Assignment) (BulkResult, error) {
	targets, err := targeting.Resolve(ctx, w, where)
	if err != nil {
		return BulkResult{}, err
	}

	res := BulkResult{
		Targeted: len(targets),
		Results:  make([]ItemResult, 0, len(targets)*len(set)),
	}
	for _, el := range targets {
		for _, a := range set {
			item := ItemResult{ID: el.ID, Param: a.Label()}
			m, err := Set(ctx, w, el, a.Token, a.Value.Get())
			if err := isolate(err); err != nil {
				return BulkResult{}, err
			}
			if err != nil {
				res.record(failed(item, err))
				continue
			}
			item.OK = true
			item.Target = m.Source
			res.record(item)
		}
	}
	return res, nil
}

func failed(item ItemResult, err error) ItemResult {
	item.OK = false
	item.Error = err.Error()
	item.Code = wire.KindOf(err)
	return item
}

// isolate returns err when it must abort the whole batch: a cancelled
// context. Item-level failures are returned as nil.
func isolate(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
