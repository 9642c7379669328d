package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/domain/repositories"
)

// Aggregator rolls daily ledger records into period summaries.
type Aggregator struct {
	store  repositories.LedgerStore
	basis  models.RevenueBasis
	logger *zap.Logger
	now    func() time.Time
}

// NewAggregator wires a new aggregator. An empty basis values production.
func NewAggregator(store repositories.LedgerStore, basis models.RevenueBasis, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if basis == "" {
		basis = models.RevenueOnProduced
	}
	return &Aggregator{store: store, basis: basis, logger: logger, now: time.Now}
}

// Basis reports which quantity revenue is computed on.
func (a *Aggregator) Basis() models.RevenueBasis {
	return a.basis
}

// Summarize totals the records of period. Revenue is the sum of each day's
// quantity times that day's unit price, so price changes inside the period
// are honoured.
func (a *Aggregator) Summarize(ctx context.Context, pipeline models.PipelineKind, period models.Period) (models.PeriodSummary, error) {
	p, ok := models.LookupPipeline(pipeline)
	if !ok {
		return models.PeriodSummary{}, &models.ValidationError{Field: "pipeline", Reason: fmt.Sprintf("unknown pipeline %q", pipeline)}
	}

	records, err := a.store.ListRange(ctx, pipeline, period.Start, period.End)
	if err != nil {
		return models.PeriodSummary{}, fmt.Errorf("load %s records %s..%s: %w", pipeline, period.Start, period.End, err)
	}

	summary := models.PeriodSummary{
		Pipeline:    pipeline,
		Period:      period,
		Basis:       a.basis,
		RawInput:    decimal.Zero,
		RawCost:     decimal.Zero,
		Revenue:     decimal.Zero,
		Categories:  make([]models.CategorySummary, 0, len(p.Categories)),
		GeneratedAt: a.now().UTC(),
	}
	for _, c := range p.Categories {
		summary.Categories = append(summary.Categories, models.CategorySummary{
			Category:       c,
			Produced:       decimal.Zero,
			Shipped:        decimal.Zero,
			Revenue:        decimal.Zero,
			ClosingSurplus: decimal.Zero,
		})
	}

	for _, rec := range records {
		if !period.Contains(rec.Date) {
			a.logger.Debug("skip record outside period", zap.String("date", rec.Date.String()))
			continue
		}

		summary.DayCount++
		if rec.HasShortfall() {
			summary.ShortfallDays++
		}
		summary.RawInput = summary.RawInput.Add(rec.RawInput)
		summary.RawCost = summary.RawCost.Add(rec.RawCost())

		for _, line := range rec.Lines {
			cs := summary.Category(line.Category)
			if cs == nil {
				continue
			}
			cs.Produced = cs.Produced.Add(line.Produced)
			cs.Shipped = cs.Shipped.Add(line.Shipped)
			cs.Revenue = cs.Revenue.Add(a.revenueOf(line))
			// Records are ascending so the last one wins.
			cs.ClosingSurplus = line.ClosingSurplus
		}
	}

	for _, cs := range summary.Categories {
		summary.Revenue = summary.Revenue.Add(cs.Revenue)
	}
	summary.NetResult = summary.Revenue.Sub(summary.RawCost)

	return summary, nil
}

// SummarizeWeek summarizes the Monday to Sunday week containing day.
func (a *Aggregator) SummarizeWeek(ctx context.Context, pipeline models.PipelineKind, day models.Day) (models.PeriodSummary, error) {
	return a.Summarize(ctx, pipeline, models.WeekOf(day))
}

// SummarizeMonth summarizes the calendar month containing day.
func (a *Aggregator) SummarizeMonth(ctx context.Context, pipeline models.PipelineKind, day models.Day) (models.PeriodSummary, error) {
	return a.Summarize(ctx, pipeline, models.MonthOf(day))
}

func (a *Aggregator) revenueOf(line models.CategoryLine) decimal.Decimal {
	if a.basis == models.RevenueOnShipped {
		return line.Shipped.Mul(line.UnitPrice)
	}
	return line.Produced.Mul(line.UnitPrice)
}
