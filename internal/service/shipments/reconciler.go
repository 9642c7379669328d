package shipments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/domain/repositories"
)

// ErrNoShipmentLog is returned by RecordEvent when the reconciler is read-only.
var ErrNoShipmentLog = errors.New("shipment log not configured")

// Totals are the planned and actual quantities of one category on one day.
type Totals struct {
	Category models.Category `json:"category"`
	Planned  decimal.Decimal `json:"planned"`
	Actual   decimal.Decimal `json:"actual"`
	Events   int             `json:"events"`
}

// Reconciliation is the per-category view of a day's shipment events.
type Reconciliation struct {
	Pipeline models.PipelineKind `json:"pipeline"`
	Date     models.Day          `json:"date"`
	Totals   []Totals            `json:"totals"`
}

// Actual returns fulfilled shipments for c.
func (r Reconciliation) Actual(c models.Category) decimal.Decimal {
	for _, t := range r.Totals {
		if t.Category == c {
			return t.Actual
		}
	}
	return decimal.Zero
}

// Planned returns scheduled shipments for c.
func (r Reconciliation) Planned(c models.Category) decimal.Decimal {
	for _, t := range r.Totals {
		if t.Category == c {
			return t.Planned
		}
	}
	return decimal.Zero
}

// Variance compares plan, fulfilment and stock for one category.
type Variance struct {
	Category  models.Category `json:"category"`
	Planned   decimal.Decimal `json:"planned"`
	Actual    decimal.Decimal `json:"actual"`
	Available decimal.Decimal `json:"available"`
	// Unfulfilled is planned quantity not yet shipped.
	Unfulfilled decimal.Decimal `json:"unfulfilled"`
	// Uncovered is planned quantity the day's stock cannot cover.
	Uncovered decimal.Decimal `json:"uncovered"`
}

// Reconciler turns shipment events into shipped quantities for the ledger.
type Reconciler struct {
	source   repositories.ShipmentSource
	log      repositories.ShipmentLog
	location *time.Location
	logger   *zap.Logger
	newID    func() string
}

// NewReconciler wires a reconciler. Days are bucketed in loc, the station's
// local calendar. log may be nil for read-only sources.
func NewReconciler(source repositories.ShipmentSource, log repositories.ShipmentLog, loc *time.Location, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Reconciler{
		source:   source,
		log:      log,
		location: loc,
		logger:   logger,
		newID:    func() string { return uuid.NewString() },
	}
}

// Location is the station time zone used for day bucketing.
func (r *Reconciler) Location() *time.Location {
	return r.location
}

// Reconcile sums the pipeline's shipment events that fall on day in local time.
func (r *Reconciler) Reconcile(ctx context.Context, pipeline models.PipelineKind, day models.Day) (Reconciliation, error) {
	p, ok := models.LookupPipeline(pipeline)
	if !ok {
		return Reconciliation{}, &models.ValidationError{Field: "pipeline", Reason: fmt.Sprintf("unknown pipeline %q", pipeline)}
	}

	from := day.Start(r.location)
	to := day.AddDays(1).Start(r.location)
	events, err := r.source.ListShipments(ctx, pipeline, from, to)
	if err != nil {
		return Reconciliation{}, fmt.Errorf("list shipments for %s %s: %w", pipeline, day, err)
	}

	totals := make([]Totals, len(p.Categories))
	for i, c := range p.Categories {
		totals[i] = Totals{Category: c, Planned: decimal.Zero, Actual: decimal.Zero}
	}

	for _, e := range events {
		if models.DayOf(e.OccurredAt, r.location) != day {
			continue
		}
		// Sources can hold hand-edited rows that never went through RecordEvent.
		if err := e.Validate(); err != nil {
			r.logger.Warn("skip invalid shipment",
				zap.String("event_id", e.ID),
				zap.String("pipeline", string(pipeline)),
				zap.Error(err))
			continue
		}
		idx := indexOf(p.Categories, e.Category)
		if idx < 0 {
			r.logger.Warn("skip shipment with foreign category",
				zap.String("event_id", e.ID),
				zap.String("pipeline", string(pipeline)),
				zap.String("category", string(e.Category)))
			continue
		}
		switch e.Type {
		case models.ShipmentActual:
			totals[idx].Actual = totals[idx].Actual.Add(e.Quantity)
		case models.ShipmentPlanned:
			totals[idx].Planned = totals[idx].Planned.Add(e.Quantity)
		default:
			r.logger.Warn("skip shipment with unknown type", zap.String("event_id", e.ID), zap.String("type", string(e.Type)))
			continue
		}
		totals[idx].Events++
	}

	return Reconciliation{Pipeline: pipeline, Date: day, Totals: totals}, nil
}

// Variance reports planned vs actual vs available for every line of rec.
func (r *Reconciler) Variance(ctx context.Context, rec models.LedgerRecord) ([]Variance, error) {
	rc, err := r.Reconcile(ctx, rec.Pipeline, rec.Date)
	if err != nil {
		return nil, err
	}

	out := make([]Variance, 0, len(rec.Lines))
	for _, line := range rec.Lines {
		planned := rc.Planned(line.Category)
		actual := rc.Actual(line.Category)
		available := line.Available()
		out = append(out, Variance{
			Category:    line.Category,
			Planned:     planned,
			Actual:      actual,
			Available:   available,
			Unfulfilled: positivePart(planned.Sub(actual)),
			Uncovered:   positivePart(planned.Sub(available)),
		})
	}
	return out, nil
}

// RecordEvent validates and appends a new shipment event, assigning an id
// when missing. It returns the stored event and its local calendar day.
func (r *Reconciler) RecordEvent(ctx context.Context, event models.ShipmentEvent) (models.ShipmentEvent, models.Day, error) {
	if r.log == nil {
		return models.ShipmentEvent{}, "", ErrNoShipmentLog
	}
	if err := event.Validate(); err != nil {
		return models.ShipmentEvent{}, "", err
	}
	if event.ID == "" {
		event.ID = r.newID()
	}
	if err := r.log.AppendShipment(ctx, event); err != nil {
		return models.ShipmentEvent{}, "", fmt.Errorf("append shipment %s: %w", event.ID, err)
	}

	day := models.DayOf(event.OccurredAt, r.location)
	r.logger.Info("shipment recorded",
		zap.String("event_id", event.ID),
		zap.String("pipeline", string(event.Pipeline)),
		zap.String("category", string(event.Category)),
		zap.String("type", string(event.Type)),
		zap.String("quantity", event.Quantity.String()),
		zap.String("day", day.String()))
	return event, day, nil
}

func indexOf(categories []models.Category, c models.Category) int {
	for i, own := range categories {
		if own == c {
			return i
		}
	}
	return -1
}

func positivePart(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
