package repositories

import (
	"context"

	"github.com/mamadbah2/foodstation/internal/domain/models"
)

// SummaryStore archives generated period summaries.
type SummaryStore interface {
	SavePeriodSummary(ctx context.Context, summary models.PeriodSummary) error
}
