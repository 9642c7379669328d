package repositories

import (
	"context"

	"github.com/mamadbah2/foodstation/internal/domain/models"
)

// LedgerStore provides durable access to ledger records keyed by (pipeline, date).
// Lookups of a missing key return models.ErrNotFound.
type LedgerStore interface {
	Get(ctx context.Context, pipeline models.PipelineKind, day models.Day) (*models.LedgerRecord, error)
	// ListRange returns records with from <= date <= to, ascending by date.
	ListRange(ctx context.Context, pipeline models.PipelineKind, from, to models.Day) ([]models.LedgerRecord, error)
	// Previous returns the latest record strictly before day.
	Previous(ctx context.Context, pipeline models.PipelineKind, day models.Day) (*models.LedgerRecord, error)
	// Next returns the earliest record strictly after day.
	Next(ctx context.Context, pipeline models.PipelineKind, day models.Day) (*models.LedgerRecord, error)
	// Save upserts one record atomically. A zero Version inserts; otherwise the
	// stored Version must match. Mismatches and duplicate inserts return
	// models.ErrConflict. On success record.Version is incremented.
	Save(ctx context.Context, record *models.LedgerRecord) error
}

// CascadeJournal remembers cascades that started but did not finish.
type CascadeJournal interface {
	MarkPending(ctx context.Context, pipeline models.PipelineKind, from models.Day) error
	// PendingFrom returns the earliest unfinished cascade start, if any.
	PendingFrom(ctx context.Context, pipeline models.PipelineKind) (models.Day, bool, error)
	ClearPending(ctx context.Context, pipeline models.PipelineKind) error
}

// LedgerRepository is the full persistence surface used by the ledger service.
type LedgerRepository interface {
	LedgerStore
	CascadeJournal
}
