package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/domain/repositories"
)

// ShipmentStore is an in-memory shipment event log.
type ShipmentStore struct {
	mu     sync.RWMutex
	events []models.ShipmentEvent
}

// NewShipmentStore creates an empty event log.
func NewShipmentStore() *ShipmentStore {
	return &ShipmentStore{events: make([]models.ShipmentEvent, 0)}
}

var _ repositories.ShipmentRepository = (*ShipmentStore)(nil)

// AppendShipment stores an event.
func (s *ShipmentStore) AppendShipment(_ context.Context, event models.ShipmentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, event)
	return nil
}

// ListShipments returns events of pipeline with from <= OccurredAt < to, oldest first.
func (s *ShipmentStore) ListShipments(_ context.Context, pipeline models.PipelineKind, from, to time.Time) ([]models.ShipmentEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ShipmentEvent
	for _, e := range s.events {
		if e.Pipeline != pipeline || e.OccurredAt.Before(from) || !e.OccurredAt.Before(to) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

// SummaryStore keeps archived period summaries in memory.
type SummaryStore struct {
	mu        sync.Mutex
	summaries []models.PeriodSummary
}

// NewSummaryStore creates an empty archive.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{}
}

var _ repositories.SummaryStore = (*SummaryStore)(nil)

// SavePeriodSummary appends a summary to the archive.
func (s *SummaryStore) SavePeriodSummary(_ context.Context, summary models.PeriodSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.summaries = append(s.summaries, summary)
	return nil
}

// Summaries returns a copy of everything archived so far.
func (s *SummaryStore) Summaries() []models.PeriodSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.PeriodSummary, len(s.summaries))
	copy(out, s.summaries)
	return out
}
