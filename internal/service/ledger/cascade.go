package ledger

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/domain/repositories"
)

// CascadeResult describes one forward propagation.
type CascadeResult struct {
	Pipeline models.PipelineKind `json:"pipeline"`
	From     models.Day          `json:"from"`
	// Updated lists the later records rewritten, in date order.
	Updated []models.LedgerRecord `json:"-"`
	// StoppedAt is the first record found already consistent, empty when the
	// walk reached the end of history.
	StoppedAt  models.Day         `json:"stopped_at,omitempty"`
	Shortfalls []models.Shortfall `json:"shortfalls,omitempty"`
}

// UpdatedDays lists the dates touched by the walk.
func (r CascadeResult) UpdatedDays() []models.Day {
	out := make([]models.Day, 0, len(r.Updated))
	for _, rec := range r.Updated {
		out = append(out, rec.Date)
	}
	return out
}

// Engine restores the chain invariant opening(d) == closing(previous(d)).
type Engine struct {
	store    repositories.LedgerStore
	resolver *Resolver
	logger   *zap.Logger
}

// NewEngine builds a recompute engine.
func NewEngine(store repositories.LedgerStore, resolver *Resolver, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, resolver: resolver, logger: logger}
}

// Cascade pushes the closing surplus of changed, which must already be
// stored, into the following records. It stops at the first record whose
// opening and closing already agree with its predecessor, or at the end of
// history. Records before changed are never touched.
func (e *Engine) Cascade(ctx context.Context, changed models.LedgerRecord) (CascadeResult, error) {
	result := CascadeResult{Pipeline: changed.Pipeline, From: changed.Date}
	prev := changed

	for {
		next, err := e.store.Next(ctx, prev.Pipeline, prev.Date)
		if errors.Is(err, models.ErrNotFound) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("load record after %s: %w", prev.Date, err)
		}

		openingMoved := next.ApplyOpening(prev.Closing())
		closingMoved := next.Recompute()
		if !openingMoved && !closingMoved {
			result.StoppedAt = next.Date
			break
		}

		if err := e.store.Save(ctx, next); err != nil {
			return result, fmt.Errorf("save cascaded record %s %s: %w", next.Pipeline, next.Date, err)
		}
		result.Updated = append(result.Updated, *next)
		result.Shortfalls = append(result.Shortfalls, next.Shortfalls()...)
		prev = *next
	}

	e.logger.Debug("cascade finished",
		zap.String("pipeline", string(result.Pipeline)),
		zap.String("from", result.From.String()),
		zap.Int("updated", len(result.Updated)),
		zap.String("stopped_at", result.StoppedAt.String()))
	return result, nil
}

// Rebuild walks every record of pipeline from the first one on or after from,
// re-deriving openings from the previous record without stopping early. It is
// the repair path for interrupted cascades and converges to the same fixed
// point however often it runs. Shortfalls of every visited record are reported.
func (e *Engine) Rebuild(ctx context.Context, pipeline models.PipelineKind, from models.Day) (CascadeResult, error) {
	result := CascadeResult{Pipeline: pipeline, From: from}

	opening, err := e.resolver.ResolveOpening(ctx, pipeline, from)
	if err != nil {
		return result, err
	}

	rec, err := e.store.Get(ctx, pipeline, from)
	if errors.Is(err, models.ErrNotFound) {
		rec, err = e.store.Next(ctx, pipeline, from)
	}

	for err == nil {
		changed := rec.ApplyOpening(opening)
		if rec.Recompute() {
			changed = true
		}
		if changed {
			if err := e.store.Save(ctx, rec); err != nil {
				return result, fmt.Errorf("save rebuilt record %s %s: %w", rec.Pipeline, rec.Date, err)
			}
			result.Updated = append(result.Updated, *rec)
		}
		result.Shortfalls = append(result.Shortfalls, rec.Shortfalls()...)
		opening = rec.Closing()
		rec, err = e.store.Next(ctx, pipeline, rec.Date)
	}
	if !errors.Is(err, models.ErrNotFound) {
		return result, fmt.Errorf("walk %s from %s: %w", pipeline, from, err)
	}

	e.logger.Info("pipeline rebuilt",
		zap.String("pipeline", string(pipeline)),
		zap.String("from", from.String()),
		zap.Int("updated", len(result.Updated)))
	return result, nil
}
