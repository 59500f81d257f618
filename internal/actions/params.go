package actions

import (
	"context"

	"github.com/roach88/cadbridge/internal/docmodel"
	"github.com/roach88/cadbridge/internal/params"
	"github.com/roach88/cadbridge/internal/registry"
	"github.com/roach88/cadbridge/internal/targeting"
)

type paramsGetRequest struct {
	ElementIDs         []docmodel.ElementID `json:"elementIds"`
	ParamNames         []string             `json:"paramNames"`
	Params             []params.Token       `json:"params"`
	IncludeValueString *bool                `json:"includeValueString"`
}

func (r paramsGetRequest) Validate() error {
	if len(r.ElementIDs) == 0 {
		return registry.Required("elementIds")
	}
	if len(r.ParamNames) == 0 && len(r.Params) == 0 {
		return registry.Required("paramNames")
	}
	for i, tok := range r.Params {
		if err := tok.Validate(); err != nil {
			return registry.Invalid("params[%d]: %v", i, err)
		}
	}
	return nil
}

func (r paramsGetRequest) tokens() []params.Token {
	toks := make([]params.Token, 0, len(r.ParamNames)+len(r.Params))
	for _, n := range r.ParamNames {
		toks = append(toks, params.Token{Name: n})
	}
	return append(toks, r.Params...)
}

type paramsGetResult struct {
	Count int          `json:"count"`
	Items []params.Row `json:"items"`
}

func paramsGet(ctx context.Context, tx docmodel.Tx, req paramsGetRequest) (any, error) {
	withString := req.IncludeValueString == nil || *req.IncludeValueString
	rows, err := params.Read(ctx, tx, req.ElementIDs, req.tokens(), withString)
	if err != nil {
		return nil, err
	}
	return paramsGetResult{Count: len(rows), Items: rows}, nil
}

type paramsSetRequest struct {
	Updates []params.Update `json:"updates"`
}

func (r paramsSetRequest) Validate() error {
	if len(r.Updates) == 0 {
		return registry.Required("updates")
	}
	for i, u := range r.Updates {
		if err := u.Token.Validate(); err != nil {
			return registry.Invalid("updates[%d]: %v", i, err)
		}
	}
	return nil
}

func paramsSet(ctx context.Context, tx docmodel.Tx, req paramsSetRequest) (any, error) {
	updates, err := params.ExpandSelection(ctx, tx, req.Updates)
	if err != nil {
		return nil, err
	}
	return params.SetList(ctx, tx, updates)
}

type paramsSetWhereRequest struct {
	Where targeting.Where     `json:"where"`
	Set   []params.Assignment `json:"set"`
}

func (r paramsSetWhereRequest) Validate() error {
	if len(r.Set) == 0 {
		return registry.Invalid("set[] must not be empty")
	}
	for i, a := range r.Set {
		if err := a.Token.Validate(); err != nil {
			return registry.Invalid("set[%d]: %v", i, err)
		}
	}
	return nil
}

func paramsSetWhere(ctx context.Context, tx docmodel.Tx, req paramsSetWhereRequest) (any, error) {
	return params.SetWhere(ctx, tx, req.Where, req.Set)
}
