package ledger

import (
	"testing"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/repository/memory"
)

func seedRecord(t *testing.T, store *memory.LedgerStore, day string, opening, produced, shipped string) {
	t.Helper()
	p, _ := models.LookupPipeline(models.PipelineTofu)
	rec := models.NewLedgerRecord(p, models.MustDay(day), nil)
	line := rec.Line(models.CategoryTofu)
	line.OpeningCarryOver = dec(opening)
	line.Produced = dec(produced)
	line.Shipped = dec(shipped)
	rec.Recompute()
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("seed %s: %v", day, err)
	}
}

func TestResolveOpening(t *testing.T) {
	store := memory.NewLedgerStore()
	seedRecord(t, store, "2024-03-01", "0", "100", "70")
	resolver := NewResolver(store)

	tests := []struct {
		name string
		day  string
		want string
	}{
		{name: "no earlier record", day: "2024-02-28", want: "0"},
		{name: "next day", day: "2024-03-02", want: "30"},
		{name: "after a gap", day: "2024-03-09", want: "30"},
		{name: "same day looks strictly before", day: "2024-03-01", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opening, err := resolver.ResolveOpening(ctx, models.PipelineTofu, models.MustDay(tt.day))
			if err != nil {
				t.Fatalf("ResolveOpening returned error: %v", err)
			}
			if got := opening[models.CategoryTofu]; !got.Equal(dec(tt.want)) {
				t.Fatalf("opening = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := resolver.ResolveOpening(ctx, "bakery", "2024-03-02"); !models.IsValidation(err) {
		t.Fatalf("expected validation error for unknown pipeline, got %v", err)
	}
}

func TestEngineRebuildRepairsBrokenChain(t *testing.T) {
	store := memory.NewLedgerStore()
	seedRecord(t, store, "2024-03-01", "0", "100", "20")
	// Stale openings, as left by an interrupted cascade.
	seedRecord(t, store, "2024-03-02", "5", "0", "10")
	seedRecord(t, store, "2024-03-04", "1", "3", "0")

	engine := NewEngine(store, NewResolver(store), nil)
	result, err := engine.Rebuild(ctx, models.PipelineTofu, "2024-03-02")
	if err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	if len(result.Updated) != 2 {
		t.Fatalf("expected 2 rewritten records, got %v", result.UpdatedDays())
	}

	day2, _ := store.Get(ctx, models.PipelineTofu, "2024-03-02")
	day4, _ := store.Get(ctx, models.PipelineTofu, "2024-03-04")
	assertLine(t, *day2.Line(models.CategoryTofu), "80", "70")
	assertLine(t, *day4.Line(models.CategoryTofu), "70", "73")

	again, err := engine.Rebuild(ctx, models.PipelineTofu, "0001-01-01")
	if err != nil {
		t.Fatalf("second Rebuild returned error: %v", err)
	}
	if len(again.Updated) != 0 {
		t.Fatalf("rebuild is not idempotent, rewrote %v", again.UpdatedDays())
	}
}

func TestEngineCascadeEndOfHistory(t *testing.T) {
	store := memory.NewLedgerStore()
	seedRecord(t, store, "2024-03-01", "0", "10", "0")
	seedRecord(t, store, "2024-03-02", "0", "0", "0")

	day1, _ := store.Get(ctx, models.PipelineTofu, "2024-03-01")
	result, err := NewEngine(store, NewResolver(store), nil).Cascade(ctx, *day1)
	if err != nil {
		t.Fatalf("Cascade returned error: %v", err)
	}
	if result.StoppedAt != "" || len(result.Updated) != 1 {
		t.Fatalf("expected walk to reach the end, got stopped=%q updated=%v", result.StoppedAt, result.UpdatedDays())
	}
}
