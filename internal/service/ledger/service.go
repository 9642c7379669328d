package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/domain/repositories"
	"github.com/mamadbah2/foodstation/internal/events"
	"github.com/mamadbah2/foodstation/internal/service/shipments"
)

// ShipmentReconciler supplies shipped quantities from external shipment events.
type ShipmentReconciler interface {
	Reconcile(ctx context.Context, pipeline models.PipelineKind, day models.Day) (shipments.Reconciliation, error)
	Variance(ctx context.Context, rec models.LedgerRecord) ([]shipments.Variance, error)
}

// Summarizer aggregates stored records over a period.
type Summarizer interface {
	Summarize(ctx context.Context, pipeline models.PipelineKind, period models.Period) (models.PeriodSummary, error)
}

// RecordResult is returned by every write.
type RecordResult struct {
	Record  models.LedgerRecord `json:"record"`
	Created bool                `json:"created"`
	// Shortfalls covers the written record and every cascaded one.
	Shortfalls []models.Shortfall `json:"shortfalls,omitempty"`
	Cascade    CascadeResult      `json:"cascade"`
}

// Service is the caller-facing ledger API. Writes to one pipeline are
// serialized through the Locker; every write is followed by a cascade.
type Service struct {
	store      repositories.LedgerRepository
	resolver   *Resolver
	engine     *Engine
	reconciler ShipmentReconciler
	summarizer Summarizer
	locker     Locker
	publisher  events.Publisher
	logger     *zap.Logger
	now        func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLocker replaces the default in-process locker.
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithPublisher emits change events after each write.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithSummarizer enables GetPeriodSummary.
func WithSummarizer(sum Summarizer) Option {
	return func(s *Service) { s.summarizer = sum }
}

// WithClock overrides time.Now for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the ledger. reconciler may be nil, in which case shipped
// quantities only come from manual overrides.
func NewService(store repositories.LedgerRepository, reconciler ShipmentReconciler, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	resolver := NewResolver(store)
	s := &Service{
		store:      store,
		resolver:   resolver,
		engine:     NewEngine(store, resolver, logger.Named("cascade")),
		reconciler: reconciler,
		locker:     NewLocalLocker(),
		publisher:  events.NopPublisher{},
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordDaily merges fields into the (pipeline, day) record, creating it on
// first report, reconciles shipped quantities and cascades the new closing
// surplus forward.
func (s *Service) RecordDaily(ctx context.Context, pipeline models.PipelineKind, day models.Day, fields models.RecordFields) (RecordResult, error) {
	p, err := lookup(pipeline)
	if err != nil {
		return RecordResult{}, err
	}
	if day.IsZero() {
		return RecordResult{}, &models.ValidationError{Field: "date", Reason: "date is required"}
	}
	if err := fields.Validate(p); err != nil {
		return RecordResult{}, err
	}

	unlock, err := s.locker.Lock(ctx, pipeline)
	if err != nil {
		return RecordResult{}, err
	}
	defer unlock()

	if err := s.repairPendingLocked(ctx, pipeline); err != nil {
		return RecordResult{}, err
	}

	rec, err := s.store.Get(ctx, pipeline, day)
	created := errors.Is(err, models.ErrNotFound)
	switch {
	case created:
		opening, err := s.resolver.ResolveOpening(ctx, pipeline, day)
		if err != nil {
			return RecordResult{}, err
		}
		rec = models.NewLedgerRecord(p, day, opening)
	case err != nil:
		return RecordResult{}, fmt.Errorf("load record %s %s: %w", pipeline, day, err)
	}

	fields.Apply(rec)
	if err := s.reconcileInto(ctx, rec); err != nil {
		return RecordResult{}, err
	}
	rec.Recompute()

	result, err := s.persistAndCascade(ctx, rec, events.ReasonEdit)
	if err != nil {
		return RecordResult{}, err
	}
	result.Created = created

	s.logger.Info("ledger day recorded",
		zap.String("pipeline", string(pipeline)),
		zap.String("date", day.String()),
		zap.Bool("created", created),
		zap.Int("cascaded", len(result.Cascade.Updated)),
		zap.Int("shortfalls", len(result.Shortfalls)))
	return result, nil
}

// RefreshShipped re-reads shipment events for an existing record and cascades
// when the reconciled quantities moved. Days without a record are left alone.
func (s *Service) RefreshShipped(ctx context.Context, pipeline models.PipelineKind, day models.Day) (RecordResult, error) {
	if _, err := lookup(pipeline); err != nil {
		return RecordResult{}, err
	}

	unlock, err := s.locker.Lock(ctx, pipeline)
	if err != nil {
		return RecordResult{}, err
	}
	defer unlock()

	if err := s.repairPendingLocked(ctx, pipeline); err != nil {
		return RecordResult{}, err
	}

	rec, err := s.store.Get(ctx, pipeline, day)
	if err != nil {
		return RecordResult{}, err
	}

	before := rec.Clone()
	if err := s.reconcileInto(ctx, rec); err != nil {
		return RecordResult{}, err
	}
	rec.Recompute()
	if !linesDiffer(before, *rec) {
		return RecordResult{Record: *rec}, nil
	}

	return s.persistAndCascade(ctx, rec, events.ReasonReconcile)
}

// GetDaily returns the stored record or models.ErrNotFound.
func (s *Service) GetDaily(ctx context.Context, pipeline models.PipelineKind, day models.Day) (*models.LedgerRecord, error) {
	if _, err := lookup(pipeline); err != nil {
		return nil, err
	}

	unlock, err := s.locker.RLock(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.store.Get(ctx, pipeline, day)
}

// GetRange returns records between from and to inclusive, ascending by date.
func (s *Service) GetRange(ctx context.Context, pipeline models.PipelineKind, from, to models.Day) ([]models.LedgerRecord, error) {
	if _, err := lookup(pipeline); err != nil {
		return nil, err
	}
	period, err := models.NewPeriod(from, to)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.RLock(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.store.ListRange(ctx, pipeline, period.Start, period.End)
}

// GetPeriodSummary aggregates the period under a shared lock so no cascade
// is observed half way.
func (s *Service) GetPeriodSummary(ctx context.Context, pipeline models.PipelineKind, period models.Period) (models.PeriodSummary, error) {
	if _, err := lookup(pipeline); err != nil {
		return models.PeriodSummary{}, err
	}
	if _, err := models.NewPeriod(period.Start, period.End); err != nil {
		return models.PeriodSummary{}, err
	}
	if s.summarizer == nil {
		return models.PeriodSummary{}, errors.New("period summaries are not configured")
	}

	unlock, err := s.locker.RLock(ctx, pipeline)
	if err != nil {
		return models.PeriodSummary{}, err
	}
	defer unlock()

	return s.summarizer.Summarize(ctx, pipeline, period)
}

// GetVariance compares planned and actual shipments with the day's stock.
func (s *Service) GetVariance(ctx context.Context, pipeline models.PipelineKind, day models.Day) ([]shipments.Variance, error) {
	if s.reconciler == nil {
		return nil, errors.New("shipment reconciliation is not configured")
	}
	rec, err := s.GetDaily(ctx, pipeline, day)
	if err != nil {
		return nil, err
	}
	return s.reconciler.Variance(ctx, *rec)
}

// Rebuild recomputes the whole chain of pipeline from the given day.
func (s *Service) Rebuild(ctx context.Context, pipeline models.PipelineKind, from models.Day) (CascadeResult, error) {
	if _, err := lookup(pipeline); err != nil {
		return CascadeResult{}, err
	}

	unlock, err := s.locker.Lock(ctx, pipeline)
	if err != nil {
		return CascadeResult{}, err
	}
	defer unlock()

	return s.rebuildLocked(ctx, pipeline, from)
}

// RepairPending finishes cascades that were interrupted, across all pipelines.
// It returns the pipelines it repaired.
func (s *Service) RepairPending(ctx context.Context) ([]models.PipelineKind, error) {
	var repaired []models.PipelineKind
	var firstErr error

	for _, p := range models.Pipelines() {
		from, pending, err := s.store.PendingFrom(ctx, p.Kind)
		if err != nil {
			s.logger.Error("failed reading cascade journal", zap.String("pipeline", string(p.Kind)), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if !pending {
			continue
		}
		if _, err := s.Rebuild(ctx, p.Kind, from); err != nil {
			s.logger.Error("failed repairing pipeline", zap.String("pipeline", string(p.Kind)), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		repaired = append(repaired, p.Kind)
	}

	return repaired, firstErr
}

func (s *Service) repairPendingLocked(ctx context.Context, pipeline models.PipelineKind) error {
	from, pending, err := s.store.PendingFrom(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("read cascade journal for %s: %w", pipeline, err)
	}
	if !pending {
		return nil
	}

	s.logger.Warn("resuming interrupted cascade", zap.String("pipeline", string(pipeline)), zap.String("from", from.String()))
	_, err = s.rebuildLocked(ctx, pipeline, from)
	return err
}

func (s *Service) rebuildLocked(ctx context.Context, pipeline models.PipelineKind, from models.Day) (CascadeResult, error) {
	if err := s.store.MarkPending(ctx, pipeline, from); err != nil {
		return CascadeResult{}, fmt.Errorf("journal rebuild of %s: %w", pipeline, err)
	}
	result, err := s.engine.Rebuild(ctx, pipeline, from)
	if err != nil {
		return result, err
	}
	if err := s.store.ClearPending(ctx, pipeline); err != nil {
		return result, fmt.Errorf("clear cascade journal for %s: %w", pipeline, err)
	}
	s.publish(ctx, events.ReasonRebuild, result.Updated...)
	return result, nil
}

// persistAndCascade saves rec and propagates its closing surplus. The cascade
// is journaled first so an interruption is repaired on the next write.
func (s *Service) persistAndCascade(ctx context.Context, rec *models.LedgerRecord, reason string) (RecordResult, error) {
	if err := s.store.MarkPending(ctx, rec.Pipeline, rec.Date); err != nil {
		return RecordResult{}, fmt.Errorf("journal cascade of %s: %w", rec.Pipeline, err)
	}

	if err := s.store.Save(ctx, rec); err != nil {
		if clearErr := s.store.ClearPending(ctx, rec.Pipeline); clearErr != nil {
			s.logger.Warn("failed clearing cascade journal", zap.String("pipeline", string(rec.Pipeline)), zap.Error(clearErr))
		}
		return RecordResult{}, fmt.Errorf("save record %s %s: %w", rec.Pipeline, rec.Date, err)
	}

	cascade, err := s.engine.Cascade(ctx, *rec)
	if err != nil {
		return RecordResult{}, err
	}
	if err := s.store.ClearPending(ctx, rec.Pipeline); err != nil {
		return RecordResult{}, fmt.Errorf("clear cascade journal for %s: %w", rec.Pipeline, err)
	}

	shortfalls := append(rec.Shortfalls(), cascade.Shortfalls...)
	for _, sf := range shortfalls {
		s.logger.Warn("shipment shortfall",
			zap.String("pipeline", string(sf.Pipeline)),
			zap.String("date", sf.Date.String()),
			zap.String("category", string(sf.Category)),
			zap.String("amount", sf.Amount.String()))
	}

	s.publish(ctx, reason, *rec)
	s.publish(ctx, events.ReasonCascade, cascade.Updated...)

	return RecordResult{Record: *rec, Shortfalls: shortfalls, Cascade: cascade}, nil
}

// reconcileInto refreshes reconciled and planned quantities on every line and
// copies the actual total into Shipped unless a manual override is in place.
func (s *Service) reconcileInto(ctx context.Context, rec *models.LedgerRecord) error {
	if s.reconciler == nil {
		return nil
	}

	rc, err := s.reconciler.Reconcile(ctx, rec.Pipeline, rec.Date)
	if err != nil {
		return fmt.Errorf("reconcile shipments: %w", err)
	}

	for i := range rec.Lines {
		line := &rec.Lines[i]
		line.ReconciledShipped = rc.Actual(line.Category)
		line.PlannedShipped = rc.Planned(line.Category)
		if !line.ShippedOverride {
			line.Shipped = line.ReconciledShipped
			continue
		}
		if d := line.Discrepancy(); !d.IsZero() {
			s.logger.Warn("manual shipped override differs from shipment events",
				zap.String("pipeline", string(rec.Pipeline)),
				zap.String("date", rec.Date.String()),
				zap.String("category", string(line.Category)),
				zap.String("manual", line.Shipped.String()),
				zap.String("reconciled", line.ReconciledShipped.String()))
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, reason string, recs ...models.LedgerRecord) {
	if len(recs) == 0 {
		return
	}
	at := s.now().UTC()
	evts := make([]events.RecordChanged, 0, len(recs))
	for _, rec := range recs {
		evts = append(evts, events.NewRecordChanged(rec, reason, at))
	}
	if err := s.publisher.Publish(ctx, evts...); err != nil {
		s.logger.Warn("failed publishing ledger events", zap.String("reason", reason), zap.Int("count", len(evts)), zap.Error(err))
	}
}

func lookup(kind models.PipelineKind) (models.Pipeline, error) {
	p, ok := models.LookupPipeline(kind)
	if !ok {
		return models.Pipeline{}, &models.ValidationError{Field: "pipeline", Reason: fmt.Sprintf("unknown pipeline %q", kind)}
	}
	return p, nil
}

func linesDiffer(a, b models.LedgerRecord) bool {
	if len(a.Lines) != len(b.Lines) {
		return true
	}
	for i := range a.Lines {
		x, y := a.Lines[i], b.Lines[i]
		if !x.Shipped.Equal(y.Shipped) ||
			!x.ReconciledShipped.Equal(y.ReconciledShipped) ||
			!x.PlannedShipped.Equal(y.PlannedShipped) ||
			!x.ClosingSurplus.Equal(y.ClosingSurplus) ||
			!x.Shortfall.Equal(y.Shortfall) {
			return true
		}
	}
	return false
}
