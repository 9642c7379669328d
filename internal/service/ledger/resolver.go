package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/domain/repositories"
)

// Resolver finds the opening carry-over of a day from the stored closing
// surplus of the previous recorded day. It never walks further back: the
// cascade keeps stored closings consistent.
type Resolver struct {
	store repositories.LedgerStore
}

// NewResolver builds a resolver over store.
func NewResolver(store repositories.LedgerStore) *Resolver {
	return &Resolver{store: store}
}

// ResolveOpening returns the per-category opening balance for (pipeline, day).
// With no earlier record every category opens at zero.
func (r *Resolver) ResolveOpening(ctx context.Context, pipeline models.PipelineKind, day models.Day) (map[models.Category]decimal.Decimal, error) {
	p, ok := models.LookupPipeline(pipeline)
	if !ok {
		return nil, &models.ValidationError{Field: "pipeline", Reason: fmt.Sprintf("unknown pipeline %q", pipeline)}
	}

	opening := make(map[models.Category]decimal.Decimal, len(p.Categories))
	for _, c := range p.Categories {
		opening[c] = decimal.Zero
	}

	prev, err := r.store.Previous(ctx, pipeline, day)
	if errors.Is(err, models.ErrNotFound) {
		return opening, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load record before %s: %w", day, err)
	}

	for c, closing := range prev.Closing() {
		if _, ok := opening[c]; ok {
			opening[c] = closing
		}
	}
	return opening, nil
}
