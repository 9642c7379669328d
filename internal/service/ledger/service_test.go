package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/events"
	"github.com/mamadbah2/foodstation/internal/repository/memory"
	"github.com/mamadbah2/foodstation/internal/service/shipments"
)

var ctx = context.Background()

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func ptr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

// tofuFields edits the single tofu line; empty strings leave values untouched.
func tofuFields(raw, produced, shipped string) models.RecordFields {
	f := models.RecordFields{Lines: map[models.Category]models.LineFields{}}
	if raw != "" {
		f.RawInput = ptr(raw)
	}
	line := models.LineFields{}
	if produced != "" {
		line.Produced = ptr(produced)
	}
	if shipped != "" {
		line.Shipped = ptr(shipped)
	}
	f.Lines[models.CategoryTofu] = line
	return f
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.RecordChanged
}

func (p *recordingPublisher) Publish(_ context.Context, evts ...events.RecordChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

func newTestService(t *testing.T, opts ...Option) (*Service, *memory.LedgerStore, *memory.ShipmentStore) {
	t.Helper()
	store := memory.NewLedgerStore()
	log := memory.NewShipmentStore()
	reconciler := shipments.NewReconciler(log, log, time.UTC, nil)
	return NewService(store, reconciler, nil, opts...), store, log
}

func mustRecord(t *testing.T, svc *Service, day string, fields models.RecordFields) RecordResult {
	t.Helper()
	res, err := svc.RecordDaily(ctx, models.PipelineTofu, models.MustDay(day), fields)
	if err != nil {
		t.Fatalf("RecordDaily(%s) returned error: %v", day, err)
	}
	return res
}

func tofuLine(t *testing.T, svc *Service, day string) models.CategoryLine {
	t.Helper()
	rec, err := svc.GetDaily(ctx, models.PipelineTofu, models.MustDay(day))
	if err != nil {
		t.Fatalf("GetDaily(%s) returned error: %v", day, err)
	}
	return *rec.Line(models.CategoryTofu)
}

func assertLine(t *testing.T, line models.CategoryLine, opening, closing string) {
	t.Helper()
	if !line.OpeningCarryOver.Equal(dec(opening)) {
		t.Fatalf("opening = %s, want %s", line.OpeningCarryOver, opening)
	}
	if !line.ClosingSurplus.Equal(dec(closing)) {
		t.Fatalf("closing = %s, want %s", line.ClosingSurplus, closing)
	}
}

func TestCarryOverScenarios(t *testing.T) {
	t.Run("first day then carry forward", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		res := mustRecord(t, svc, "2024-03-01", tofuFields("80", "150", "120"))
		if !res.Created {
			t.Fatal("expected a new record")
		}
		assertLine(t, *res.Record.Line(models.CategoryTofu), "0", "30")

		res = mustRecord(t, svc, "2024-03-02", tofuFields("0", "0", "10"))
		assertLine(t, *res.Record.Line(models.CategoryTofu), "30", "20")
	})

	t.Run("retroactive edit cascades", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		mustRecord(t, svc, "2024-03-01", tofuFields("80", "150", "120"))
		mustRecord(t, svc, "2024-03-02", tofuFields("0", "0", "10"))

		res := mustRecord(t, svc, "2024-03-01", tofuFields("", "", "140"))
		assertLine(t, *res.Record.Line(models.CategoryTofu), "0", "10")
		if days := res.Cascade.UpdatedDays(); len(days) != 1 || days[0] != "2024-03-02" {
			t.Fatalf("cascade touched %v", days)
		}
		assertLine(t, tofuLine(t, svc, "2024-03-02"), "10", "0")
	})

	t.Run("shortfall is clamped and reported", func(t *testing.T) {
		svc, _, _ := newTestService(t)

		res := mustRecord(t, svc, "2024-03-01", tofuFields("", "150", "200"))
		line := res.Record.Line(models.CategoryTofu)
		assertLine(t, *line, "0", "0")
		if !line.Shortfall.Equal(dec("50")) {
			t.Fatalf("shortfall = %s, want 50", line.Shortfall)
		}
		if len(res.Shortfalls) != 1 || !res.Shortfalls[0].Amount.Equal(dec("50")) {
			t.Fatalf("result shortfalls = %v", res.Shortfalls)
		}
	})

	t.Run("gap resolves to latest earlier record", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		mustRecord(t, svc, "2024-03-01", tofuFields("80", "150", "120"))

		res := mustRecord(t, svc, "2024-03-03", tofuFields("", "5", ""))
		assertLine(t, *res.Record.Line(models.CategoryTofu), "30", "35")
	})
}

func TestShortfallPropagatesClampedValue(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustRecord(t, svc, "2024-03-01", tofuFields("", "100", "20"))
	mustRecord(t, svc, "2024-03-02", tofuFields("", "10", "0"))
	mustRecord(t, svc, "2024-03-03", tofuFields("", "0", "0"))

	res := mustRecord(t, svc, "2024-03-01", tofuFields("", "", "130"))
	if len(res.Shortfalls) != 1 || res.Shortfalls[0].Date != "2024-03-01" {
		t.Fatalf("expected one shortfall on day 1, got %v", res.Shortfalls)
	}
	assertLine(t, tofuLine(t, svc, "2024-03-02"), "0", "10")
	assertLine(t, tofuLine(t, svc, "2024-03-03"), "10", "10")
}

func TestCascadeStopsAtFixedPoint(t *testing.T) {
	svc, _, _ := newTestService(t)
	mustRecord(t, svc, "2024-03-01", tofuFields("", "100", "0"))
	// Day 2 ships everything it has, so its closing does not depend on opening
	// as long as shipments exceed supply.
	mustRecord(t, svc, "2024-03-02", tofuFields("", "0", "500"))
	mustRecord(t, svc, "2024-03-03", tofuFields("", "7", "0"))

	res := mustRecord(t, svc, "2024-03-01", tofuFields("", "90", ""))
	if days := res.Cascade.UpdatedDays(); len(days) != 1 || days[0] != "2024-03-02" {
		t.Fatalf("cascade should stop after day 2, touched %v", days)
	}
	if res.Cascade.StoppedAt != "2024-03-03" {
		t.Fatalf("stopped at %q", res.Cascade.StoppedAt)
	}
	assertLine(t, tofuLine(t, svc, "2024-03-03"), "0", "7")
}

func TestIdempotentEditDoesNotCascade(t *testing.T) {
	svc, store, _ := newTestService(t)
	mustRecord(t, svc, "2024-03-01", tofuFields("80", "150", "120"))
	mustRecord(t, svc, "2024-03-02", tofuFields("0", "0", "10"))

	before, _ := store.Get(ctx, models.PipelineTofu, "2024-03-02")
	res := mustRecord(t, svc, "2024-03-01", tofuFields("80", "150", "120"))
	after, _ := store.Get(ctx, models.PipelineTofu, "2024-03-02")

	if len(res.Cascade.Updated) != 0 {
		t.Fatalf("re-applying identical fields cascaded to %v", res.Cascade.UpdatedDays())
	}
	if before.Version != after.Version {
		t.Fatalf("day 2 was rewritten: version %d -> %d", before.Version, after.Version)
	}
}

func TestChainInvariantHoldsAfterRandomEdits(t *testing.T) {
	svc, store, _ := newTestService(t)
	rng := rand.New(rand.NewSource(42))
	start := models.MustDay("2024-01-01")

	for i := 0; i < 200; i++ {
		day := start.AddDays(rng.Intn(30))
		fields := tofuFields("", fmt.Sprint(rng.Intn(100)), fmt.Sprint(rng.Intn(120)))
		if _, err := svc.RecordDaily(ctx, models.PipelineTofu, day, fields); err != nil {
			t.Fatalf("edit %d: %v", i, err)
		}
	}

	records, err := store.ListRange(ctx, models.PipelineTofu, start, start.AddDays(30))
	if err != nil {
		t.Fatalf("ListRange returned error: %v", err)
	}
	prevClosing := decimal.Zero
	for _, rec := range records {
		line := rec.Line(models.CategoryTofu)
		if !line.OpeningCarryOver.Equal(prevClosing) {
			t.Fatalf("%s opens at %s but previous closed at %s", rec.Date, line.OpeningCarryOver, prevClosing)
		}
		want, shortfall := models.CloseDay(line.OpeningCarryOver, line.Produced, line.Shipped)
		if !line.ClosingSurplus.Equal(want) || !line.Shortfall.Equal(shortfall) {
			t.Fatalf("%s closing %s/%s, want %s/%s", rec.Date, line.ClosingSurplus, line.Shortfall, want, shortfall)
		}
		if line.ClosingSurplus.IsNegative() {
			t.Fatalf("%s closing went negative", rec.Date)
		}
		prevClosing = line.ClosingSurplus
	}
}

func TestMultiCategoryPipelinesCarryIndependently(t *testing.T) {
	svc, _, _ := newTestService(t)
	day1 := models.RecordFields{
		RawInput: ptr("2"),
		Lines: map[models.Category]models.LineFields{
			models.CategoryLeanMeat: {Produced: ptr("80"), Shipped: ptr("60")},
			models.CategoryBone:     {Produced: ptr("30"), Shipped: ptr("5")},
		},
	}
	if _, err := svc.RecordDaily(ctx, models.PipelineLivestock, "2024-03-01", day1); err != nil {
		t.Fatalf("RecordDaily returned error: %v", err)
	}

	res, err := svc.RecordDaily(ctx, models.PipelineLivestock, "2024-03-02", models.RecordFields{})
	if err != nil {
		t.Fatalf("RecordDaily returned error: %v", err)
	}
	opening := res.Record.Opening()
	if !opening[models.CategoryLeanMeat].Equal(dec("20")) || !opening[models.CategoryBone].Equal(dec("25")) || !opening[models.CategoryOrgans].IsZero() {
		t.Fatalf("unexpected openings %v", opening)
	}

	// Tofu is a different chain.
	if _, err := svc.GetDaily(ctx, models.PipelineTofu, "2024-03-02"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected no tofu record, got %v", err)
	}
}

func TestValidationRejectsWithoutMutation(t *testing.T) {
	svc, store, _ := newTestService(t)
	mustRecord(t, svc, "2024-03-01", tofuFields("80", "150", "120"))

	tests := []struct {
		name     string
		pipeline models.PipelineKind
		day      models.Day
		fields   models.RecordFields
	}{
		{name: "unknown pipeline", pipeline: "bakery", day: "2024-03-01", fields: tofuFields("", "1", "")},
		{name: "missing date", pipeline: models.PipelineTofu, fields: tofuFields("", "1", "")},
		{name: "negative produced", pipeline: models.PipelineTofu, day: "2024-03-01", fields: tofuFields("", "-1", "")},
		{name: "negative raw", pipeline: models.PipelineTofu, day: "2024-03-01", fields: tofuFields("-5", "", "")},
		{
			name:     "foreign category",
			pipeline: models.PipelineTofu,
			day:      "2024-03-01",
			fields:   models.RecordFields{Lines: map[models.Category]models.LineFields{models.CategoryBone: {Produced: ptr("1")}}},
		},
		{
			name:     "set and clear override",
			pipeline: models.PipelineTofu,
			day:      "2024-03-01",
			fields:   models.RecordFields{Lines: map[models.Category]models.LineFields{models.CategoryTofu: {Shipped: ptr("1"), ClearOverride: true}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, _ := store.Get(ctx, models.PipelineTofu, "2024-03-01")
			_, err := svc.RecordDaily(ctx, tt.pipeline, tt.day, tt.fields)
			if !models.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			after, _ := store.Get(ctx, models.PipelineTofu, "2024-03-01")
			if before.Version != after.Version {
				t.Fatal("record changed after rejected edit")
			}
		})
	}
}

func TestShippedComesFromActualEventsOnly(t *testing.T) {
	svc, _, log := newTestService(t)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, e := range []models.ShipmentEvent{
		{ID: "a1", Pipeline: models.PipelineTofu, Category: models.CategoryTofu, Quantity: dec("40"), Type: models.ShipmentActual, OccurredAt: at},
		{ID: "a2", Pipeline: models.PipelineTofu, Category: models.CategoryTofu, Quantity: dec("15"), Type: models.ShipmentActual, OccurredAt: at.Add(time.Hour)},
		{ID: "p1", Pipeline: models.PipelineTofu, Category: models.CategoryTofu, Quantity: dec("90"), Type: models.ShipmentPlanned, OccurredAt: at},
	} {
		if err := log.AppendShipment(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	res := mustRecord(t, svc, "2024-03-01", tofuFields("", "100", ""))
	line := res.Record.Line(models.CategoryTofu)
	if !line.Shipped.Equal(dec("55")) || !line.PlannedShipped.Equal(dec("90")) {
		t.Fatalf("shipped %s planned %s", line.Shipped, line.PlannedShipped)
	}
	assertLine(t, *line, "0", "45")
}

func TestManualOverrideWinsUntilCleared(t *testing.T) {
	svc, _, log := newTestService(t)
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	_ = log.AppendShipment(ctx, models.ShipmentEvent{ID: "a1", Pipeline: models.PipelineTofu, Category: models.CategoryTofu, Quantity: dec("40"), Type: models.ShipmentActual, OccurredAt: at})

	res := mustRecord(t, svc, "2024-03-01", tofuFields("", "100", "70"))
	line := res.Record.Line(models.CategoryTofu)
	if !line.Shipped.Equal(dec("70")) || !line.ShippedOverride {
		t.Fatalf("manual value lost: %+v", line)
	}
	if !line.ReconciledShipped.Equal(dec("40")) || !line.Discrepancy().Equal(dec("30")) {
		t.Fatalf("discrepancy not recorded: reconciled %s", line.ReconciledShipped)
	}

	// A later edit that does not touch shipped keeps the override.
	res = mustRecord(t, svc, "2024-03-01", tofuFields("", "110", ""))
	if !res.Record.Line(models.CategoryTofu).Shipped.Equal(dec("70")) {
		t.Fatal("override dropped by unrelated edit")
	}

	clearFields := models.RecordFields{Lines: map[models.Category]models.LineFields{models.CategoryTofu: {ClearOverride: true}}}
	res = mustRecord(t, svc, "2024-03-01", clearFields)
	line = res.Record.Line(models.CategoryTofu)
	if line.ShippedOverride || !line.Shipped.Equal(dec("40")) {
		t.Fatalf("expected reconciled value after clearing, got %+v", line)
	}
	assertLine(t, *line, "0", "70")
}

func TestRefreshShippedCascades(t *testing.T) {
	svc, _, log := newTestService(t)
	mustRecord(t, svc, "2024-03-01", tofuFields("", "100", ""))
	mustRecord(t, svc, "2024-03-02", tofuFields("", "0", ""))

	_ = log.AppendShipment(ctx, models.ShipmentEvent{ID: "a1", Pipeline: models.PipelineTofu, Category: models.CategoryTofu, Quantity: dec("25"), Type: models.ShipmentActual, OccurredAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)})

	res, err := svc.RefreshShipped(ctx, models.PipelineTofu, "2024-03-01")
	if err != nil {
		t.Fatalf("RefreshShipped returned error: %v", err)
	}
	assertLine(t, *res.Record.Line(models.CategoryTofu), "0", "75")
	assertLine(t, tofuLine(t, svc, "2024-03-02"), "75", "75")

	res, err = svc.RefreshShipped(ctx, models.PipelineTofu, "2024-03-01")
	if err != nil {
		t.Fatalf("second RefreshShipped returned error: %v", err)
	}
	if len(res.Cascade.Updated) != 0 {
		t.Fatal("unchanged refresh should not cascade")
	}

	if _, err := svc.RefreshShipped(ctx, models.PipelineTofu, "2024-03-09"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a day without record, got %v", err)
	}
}

// failingStore fails Save calls once armed, simulating a crash mid-cascade.
type failingStore struct {
	*memory.LedgerStore
	mu        sync.Mutex
	failAfter int
	armed     bool
}

func (s *failingStore) Save(ctx context.Context, rec *models.LedgerRecord) error {
	s.mu.Lock()
	if s.armed {
		if s.failAfter == 0 {
			s.mu.Unlock()
			return errors.New("disk unavailable")
		}
		s.failAfter--
	}
	s.mu.Unlock()
	return s.LedgerStore.Save(ctx, rec)
}

func TestInterruptedCascadeIsResumed(t *testing.T) {
	store := &failingStore{LedgerStore: memory.NewLedgerStore()}
	svc := NewService(store, nil, nil)

	for i, f := range []models.RecordFields{
		tofuFields("", "100", "0"),
		tofuFields("", "0", "10"),
		tofuFields("", "0", "10"),
		tofuFields("", "0", "10"),
	} {
		if _, err := svc.RecordDaily(ctx, models.PipelineTofu, models.MustDay("2024-03-01").AddDays(i), f); err != nil {
			t.Fatal(err)
		}
	}

	// The edited record and one cascaded record are saved, then the store fails.
	store.mu.Lock()
	store.armed, store.failAfter = true, 2
	store.mu.Unlock()
	if _, err := svc.RecordDaily(ctx, models.PipelineTofu, "2024-03-01", tofuFields("", "50", "")); err == nil {
		t.Fatal("expected the cascade to fail")
	}
	if _, pending, _ := store.PendingFrom(ctx, models.PipelineTofu); !pending {
		t.Fatal("interrupted cascade should stay journaled")
	}

	store.mu.Lock()
	store.armed = false
	store.mu.Unlock()

	repaired, err := svc.RepairPending(ctx)
	if err != nil {
		t.Fatalf("RepairPending returned error: %v", err)
	}
	if len(repaired) != 1 || repaired[0] != models.PipelineTofu {
		t.Fatalf("repaired %v", repaired)
	}

	assertLine(t, tofuLine(t, svc, "2024-03-02"), "50", "40")
	assertLine(t, tofuLine(t, svc, "2024-03-03"), "40", "30")
	assertLine(t, tofuLine(t, svc, "2024-03-04"), "30", "20")
	if _, pending, _ := store.PendingFrom(ctx, models.PipelineTofu); pending {
		t.Fatal("journal should be cleared after repair")
	}
}

func TestNextWriteRepairsPendingCascade(t *testing.T) {
	store := memory.NewLedgerStore()
	svc := NewService(store, nil, nil)
	mustRecord(t, svc, "2024-03-01", tofuFields("", "100", "0"))
	mustRecord(t, svc, "2024-03-02", tofuFields("", "0", "0"))

	// Simulate a crash after day 1 was rewritten but before day 2 was touched.
	rec, _ := store.Get(ctx, models.PipelineTofu, "2024-03-01")
	rec.Line(models.CategoryTofu).Produced = dec("60")
	rec.Recompute()
	if err := store.MarkPending(ctx, models.PipelineTofu, "2024-03-01"); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatal(err)
	}

	mustRecord(t, svc, "2024-03-05", tofuFields("", "1", "0"))

	assertLine(t, tofuLine(t, svc, "2024-03-02"), "60", "60")
	assertLine(t, tofuLine(t, svc, "2024-03-05"), "60", "61")
}

func TestRebuildIsIdempotent(t *testing.T) {
	svc, store, _ := newTestService(t)
	mustRecord(t, svc, "2024-03-01", tofuFields("", "100", "0"))
	mustRecord(t, svc, "2024-03-02", tofuFields("", "0", "10"))

	first, err := svc.Rebuild(ctx, models.PipelineTofu, "0001-01-01")
	if err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	if len(first.Updated) != 0 {
		t.Fatalf("consistent chain rewrote %v", first.UpdatedDays())
	}

	before, _ := store.Get(ctx, models.PipelineTofu, "2024-03-02")
	if _, err := svc.Rebuild(ctx, models.PipelineTofu, "2024-03-02"); err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	after, _ := store.Get(ctx, models.PipelineTofu, "2024-03-02")
	if before.Version != after.Version {
		t.Fatal("rebuild of a consistent chain saved records")
	}
}

func TestConcurrentWritersKeepChainConsistent(t *testing.T) {
	svc, store, _ := newTestService(t)
	start := models.MustDay("2024-04-01")

	var wg sync.WaitGroup
	errs := make(chan error, 80)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				day := start.AddDays((w*3 + i) % 12)
				if _, err := svc.RecordDaily(ctx, models.PipelineTofu, day, tofuFields("", fmt.Sprint(w+i), fmt.Sprint(i))); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent write failed: %v", err)
	}

	records, _ := store.ListRange(ctx, models.PipelineTofu, start, start.AddDays(12))
	prev := decimal.Zero
	for _, rec := range records {
		line := rec.Line(models.CategoryTofu)
		if !line.OpeningCarryOver.Equal(prev) {
			t.Fatalf("%s opens at %s, previous closed at %s", rec.Date, line.OpeningCarryOver, prev)
		}
		prev = line.ClosingSurplus
	}
}

func TestPublishesChangeEvents(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _, _ := newTestService(t, WithPublisher(pub), WithClock(func() time.Time { return time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC) }))
	mustRecord(t, svc, "2024-03-01", tofuFields("", "100", "0"))
	mustRecord(t, svc, "2024-03-02", tofuFields("", "0", "0"))
	mustRecord(t, svc, "2024-03-01", tofuFields("", "90", ""))

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(pub.events))
	}
	last := pub.events[3]
	if last.Reason != events.ReasonCascade || last.Date != "2024-03-02" || last.ClosingSurplus[models.CategoryTofu] != "90" {
		t.Fatalf("unexpected cascade event %+v", last)
	}
}

func TestGetPeriodSummaryRequiresSummarizer(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.GetPeriodSummary(ctx, models.PipelineTofu, models.WeekOf("2024-03-06"))
	if err == nil {
		t.Fatal("expected error without summarizer")
	}

	_, err = svc.GetPeriodSummary(ctx, models.PipelineTofu, models.Period{Start: "2024-03-09", End: "2024-03-01"})
	if !models.IsValidation(err) {
		t.Fatalf("expected validation error for inverted period, got %v", err)
	}
}

func TestNegativeShipmentEventCannotRaiseSurplus(t *testing.T) {
	svc, _, log := newTestService(t)
	_ = log.AppendShipment(ctx, models.ShipmentEvent{ID: "bad", Pipeline: models.PipelineTofu, Category: models.CategoryTofu, Quantity: dec("-30"), Type: models.ShipmentActual, OccurredAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)})

	res := mustRecord(t, svc, "2024-03-01", tofuFields("", "100", ""))
	line := res.Record.Line(models.CategoryTofu)
	if !line.Shipped.IsZero() {
		t.Fatalf("shipped = %s, want 0", line.Shipped)
	}
	if line.ClosingSurplus.GreaterThan(line.Available()) {
		t.Fatalf("closing %s exceeds available %s", line.ClosingSurplus, line.Available())
	}
}
