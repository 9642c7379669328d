package events

import (
	"context"
	"time"

	"github.com/mamadbah2/foodstation/internal/domain/models"
)

// Reasons a ledger record was written.
const (
	ReasonEdit      = "edit"
	ReasonCascade   = "cascade"
	ReasonReconcile = "reconcile"
	ReasonRebuild   = "rebuild"
)

// RecordChanged is emitted after a ledger record is persisted.
type RecordChanged struct {
	Pipeline       models.PipelineKind        `json:"pipeline"`
	Date           models.Day                 `json:"date"`
	Version        int64                      `json:"version"`
	Reason         string                     `json:"reason"`
	ClosingSurplus map[models.Category]string `json:"closing_surplus"`
	Shortfall      bool                       `json:"shortfall"`
	OccurredAt     time.Time                  `json:"occurred_at"`
}

// NewRecordChanged snapshots rec into an event.
func NewRecordChanged(rec models.LedgerRecord, reason string, at time.Time) RecordChanged {
	closing := make(map[models.Category]string, len(rec.Lines))
	for _, l := range rec.Lines {
		closing[l.Category] = l.ClosingSurplus.String()
	}
	return RecordChanged{
		Pipeline:       rec.Pipeline,
		Date:           rec.Date,
		Version:        rec.Version,
		Reason:         reason,
		ClosingSurplus: closing,
		Shortfall:      rec.HasShortfall(),
		OccurredAt:     at,
	}
}

// Publisher delivers ledger change events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, events ...RecordChanged) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...RecordChanged) error { return nil }
