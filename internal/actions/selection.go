package actions

import (
	"context"

	"github.com/roach88/cadbridge/internal/docmodel"
)

type selectionSetRequest struct {
	ElementIDs []docmodel.ElementID `json:"elementIds"`
}

type selectionSetResult struct {
	Count      int                  `json:"count"`
	ElementIDs []docmodel.ElementID `json:"elementIds"`
}

// selectionSet replaces the selection. An empty list clears it; any
// missing id fails the whole call.
func selectionSet(ctx context.Context, tx docmodel.Tx, req selectionSetRequest) (any, error) {
	ids := make([]docmodel.ElementID, 0, len(req.ElementIDs))
	seen := make(map[docmodel.ElementID]bool, len(req.ElementIDs))
	for _, id := range req.ElementIDs {
		if seen[id] {
			continue
		}
		if _, err := lookup(ctx, tx, id); err != nil {
			return nil, err
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if err := tx.SetSelection(ctx, ids); err != nil {
		return nil, err
	}
	return selectionSetResult{Count: len(ids), ElementIDs: ids}, nil
}
