package sheets

import (
	"context"
	"fmt"

	"github.com/mamadbah2/foodstation/internal/domain/models"
)

// SummaryExporter appends period summaries to the Summaries tab, one row per
// category.
type SummaryExporter struct {
	repo Repository
}

// NewSummaryExporter wraps repo.
func NewSummaryExporter(repo Repository) *SummaryExporter {
	return &SummaryExporter{repo: repo}
}

// AppendSummary writes the summary rows in one call.
func (e *SummaryExporter) AppendSummary(ctx context.Context, summary models.PeriodSummary) error {
	rows := make([][]interface{}, 0, len(summary.Categories))
	for _, c := range summary.Categories {
		rows = append(rows, []interface{}{
			summary.GeneratedAt.Format(models.DayLayout),
			string(summary.Pipeline),
			string(summary.Period.Start),
			string(summary.Period.End),
			string(summary.Basis),
			summary.DayCount,
			string(c.Category),
			c.Produced.String(),
			c.Shipped.String(),
			c.Revenue.StringFixed(2),
			c.ClosingSurplus.String(),
			summary.NetResult.StringFixed(2),
		})
	}
	if err := e.repo.WriteRows(ctx, summariesRange, rows); err != nil {
		return fmt.Errorf("export %s summary: %w", summary.Pipeline, err)
	}
	return nil
}
