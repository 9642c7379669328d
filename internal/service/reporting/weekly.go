package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/domain/repositories"
)

// SummarySource produces consistent period summaries.
type SummarySource interface {
	GetPeriodSummary(ctx context.Context, pipeline models.PipelineKind, period models.Period) (models.PeriodSummary, error)
}

// SummaryExporter mirrors a summary to an external sheet.
type SummaryExporter interface {
	AppendSummary(ctx context.Context, summary models.PeriodSummary) error
}

// WeeklyReporter builds the week's report for every pipeline, archives the
// summaries and returns the combined message.
type WeeklyReporter struct {
	source   SummarySource
	store    repositories.SummaryStore
	exporter SummaryExporter
	location *time.Location
	logger   *zap.Logger
}

// NewWeeklyReporter wires a reporter. store and exporter are optional.
func NewWeeklyReporter(source SummarySource, store repositories.SummaryStore, exporter SummaryExporter, loc *time.Location, logger *zap.Logger) *WeeklyReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &WeeklyReporter{source: source, store: store, exporter: exporter, location: loc, logger: logger}
}

// GenerateWeeklyReport summarizes the week containing now in the station's
// time zone.
func (r *WeeklyReporter) GenerateWeeklyReport(ctx context.Context, now time.Time) (string, error) {
	week := models.WeekOf(models.DayOf(now, r.location))

	var parts []string
	var errs []error
	for _, p := range models.Pipelines() {
		summary, err := r.source.GetPeriodSummary(ctx, p.Kind, week)
		if err != nil {
			errs = append(errs, fmt.Errorf("summarize %s: %w", p.Kind, err))
			continue
		}
		if summary.DayCount == 0 {
			continue
		}

		r.archive(ctx, summary)
		parts = append(parts, FormatSummary(summary))
	}

	if len(parts) == 0 {
		if len(errs) > 0 {
			return "", errors.Join(errs...)
		}
		return fmt.Sprintf("Weekly report (%s to %s): no ledger activity.", week.Start, week.End), nil
	}

	header := fmt.Sprintf("Weekly report (%s to %s)", week.Start, week.End)
	return header + "\n\n" + strings.Join(parts, "\n\n"), errors.Join(errs...)
}

func (r *WeeklyReporter) archive(ctx context.Context, summary models.PeriodSummary) {
	if r.store != nil {
		if err := r.store.SavePeriodSummary(ctx, summary); err != nil {
			r.logger.Error("failed to archive period summary", zap.String("pipeline", string(summary.Pipeline)), zap.Error(err))
		}
	}
	if r.exporter != nil {
		if err := r.exporter.AppendSummary(ctx, summary); err != nil {
			r.logger.Error("failed to export period summary", zap.String("pipeline", string(summary.Pipeline)), zap.Error(err))
		}
	}
}
