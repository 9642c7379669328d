package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/domain/repositories"
)

// LedgerStore keeps ledger records in process memory. Records are copied on the
// way in and out so callers never share line slices with the store.
type LedgerStore struct {
	mu      sync.RWMutex
	records map[models.PipelineKind]map[models.Day]models.LedgerRecord
	pending map[models.PipelineKind]models.Day
	now     func() time.Time
}

// NewLedgerStore creates an empty in-memory ledger.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		records: make(map[models.PipelineKind]map[models.Day]models.LedgerRecord),
		pending: make(map[models.PipelineKind]models.Day),
		now:     time.Now,
	}
}

// Verify interface compliance
var _ repositories.LedgerRepository = (*LedgerStore)(nil)

// Get returns the record for (pipeline, day).
func (s *LedgerStore) Get(_ context.Context, pipeline models.PipelineKind, day models.Day) (*models.LedgerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[pipeline][day]
	if !ok {
		return nil, models.ErrNotFound
	}
	out := rec.Clone()
	return &out, nil
}

// ListRange returns the records of pipeline between from and to inclusive.
func (s *LedgerStore) ListRange(_ context.Context, pipeline models.PipelineKind, from, to models.Day) ([]models.LedgerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.LedgerRecord
	for _, day := range s.sortedDays(pipeline) {
		if day.Before(from) || day.After(to) {
			continue
		}
		out = append(out, s.records[pipeline][day].Clone())
	}
	return out, nil
}

// Previous returns the latest record strictly before day.
func (s *LedgerStore) Previous(_ context.Context, pipeline models.PipelineKind, day models.Day) (*models.LedgerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := s.sortedDays(pipeline)
	for i := len(days) - 1; i >= 0; i-- {
		if days[i].Before(day) {
			rec := s.records[pipeline][days[i]].Clone()
			return &rec, nil
		}
	}
	return nil, models.ErrNotFound
}

// Next returns the earliest record strictly after day.
func (s *LedgerStore) Next(_ context.Context, pipeline models.PipelineKind, day models.Day) (*models.LedgerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.sortedDays(pipeline) {
		if d.After(day) {
			rec := s.records[pipeline][d].Clone()
			return &rec, nil
		}
	}
	return nil, models.ErrNotFound
}

// Save inserts or updates a record with an optimistic version check.
func (s *LedgerStore) Save(_ context.Context, record *models.LedgerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byDay, ok := s.records[record.Pipeline]
	if !ok {
		byDay = make(map[models.Day]models.LedgerRecord)
		s.records[record.Pipeline] = byDay
	}

	now := s.now().UTC()
	existing, exists := byDay[record.Date]
	switch {
	case record.Version == 0 && exists:
		return models.ErrConflict
	case record.Version != 0 && (!exists || existing.Version != record.Version):
		return models.ErrConflict
	}

	if !exists {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.Version++
	byDay[record.Date] = record.Clone()
	return nil
}

// MarkPending journals the start of a cascade, keeping the earliest start.
func (s *LedgerStore) MarkPending(_ context.Context, pipeline models.PipelineKind, from models.Day) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.pending[pipeline]; ok && current.Before(from) {
		return nil
	}
	s.pending[pipeline] = from
	return nil
}

// PendingFrom returns the journaled cascade start for pipeline.
func (s *LedgerStore) PendingFrom(_ context.Context, pipeline models.PipelineKind) (models.Day, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day, ok := s.pending[pipeline]
	return day, ok, nil
}

// ClearPending removes the journal entry for pipeline.
func (s *LedgerStore) ClearPending(_ context.Context, pipeline models.PipelineKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, pipeline)
	return nil
}

func (s *LedgerStore) sortedDays(pipeline models.PipelineKind) []models.Day {
	days := make([]models.Day, 0, len(s.records[pipeline]))
	for d := range s.records[pipeline] {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}
