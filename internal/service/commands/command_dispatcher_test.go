package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/repository/memory"
	"github.com/mamadbah2/foodstation/internal/service/ledger"
	"github.com/mamadbah2/foodstation/internal/service/reporting"
)

func newTestService(t *testing.T) (*Service, *memory.LedgerStore) {
	t.Helper()
	store := memory.NewLedgerStore()
	ledgerSvc := ledger.NewService(store, nil, nil, ledger.WithSummarizer(reporting.NewAggregator(store, models.RevenueOnProduced, nil)))
	svc := NewService(ledgerSvc, time.UTC, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC) }
	return svc, store
}

func TestParseRecordFields(t *testing.T) {
	tofu, _ := models.LookupPipeline(models.PipelineTofu)
	livestock, _ := models.LookupPipeline(models.PipelineLivestock)

	tests := []struct {
		name     string
		pipeline models.Pipeline
		tokens   []string
		check    func(t *testing.T, f models.RecordFields)
		wantErr  bool
	}{
		{
			name:     "single output shorthand",
			pipeline: tofu,
			tokens:   []string{"raw=50", "produced=150", "shipped=120", "morning", "batch"},
			check: func(t *testing.T, f models.RecordFields) {
				if f.RawInput == nil || !f.RawInput.Equal(decimal.NewFromInt(50)) {
					t.Fatalf("raw input not parsed: %v", f.RawInput)
				}
				line := f.Lines[models.CategoryTofu]
				if line.Produced == nil || line.Shipped == nil {
					t.Fatalf("tofu line not parsed: %+v", line)
				}
				if f.Note == nil || *f.Note != "morning batch" {
					t.Fatalf("note = %v", f.Note)
				}
			},
		},
		{
			name:     "qualified categories",
			pipeline: livestock,
			tokens:   []string{"raw=2", "produced.lean_meat=80.5", "price.bone=9.5", "clear.organs"},
			check: func(t *testing.T, f models.RecordFields) {
				if got := f.Lines[models.CategoryLeanMeat].Produced; got == nil || !got.Equal(decimal.RequireFromString("80.5")) {
					t.Fatalf("lean meat produced = %v", got)
				}
				if got := f.Lines[models.CategoryBone].UnitPrice; got == nil {
					t.Fatal("bone price missing")
				}
				if !f.Lines[models.CategoryOrgans].ClearOverride {
					t.Fatal("organs override should be cleared")
				}
			},
		},
		{name: "shorthand on multi output", pipeline: livestock, tokens: []string{"produced=10"}, wantErr: true},
		{name: "foreign category", pipeline: tofu, tokens: []string{"produced.bone=10"}, wantErr: true},
		{name: "not a number", pipeline: tofu, tokens: []string{"produced=lots"}, wantErr: true},
		{name: "unknown key", pipeline: tofu, tokens: []string{"colour=3"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseRecordFields(tt.pipeline, tt.tokens)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", f)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRecordFields returned error: %v", err)
			}
			tt.check(t, f)
		})
	}
}

func TestHandleRecordAndDay(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	reply, err := svc.HandleCommand(ctx, models.ParseCommand("/record tofu 2024-03-01 produced=150 shipped=120"), "op")
	if err != nil {
		t.Fatalf("record returned error: %v", err)
	}
	if !strings.Contains(reply, "Record created") || !strings.Contains(reply, "surplus 30") {
		t.Fatalf("unexpected reply %q", reply)
	}

	reply, err = svc.HandleCommand(ctx, models.ParseCommand("/record tofu produced=10"), "op")
	if err != nil {
		t.Fatalf("record for today returned error: %v", err)
	}
	rec, err := store.Get(ctx, models.PipelineTofu, models.MustDay("2024-03-06"))
	if err != nil {
		t.Fatalf("today's record missing: %v", err)
	}
	if got := rec.Line(models.CategoryTofu).OpeningCarryOver; !got.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("opening = %s, want 30", got)
	}

	reply, err = svc.HandleCommand(ctx, models.ParseCommand("/day tofu 2024-03-02"), "op")
	if err != nil {
		t.Fatalf("day returned error: %v", err)
	}
	if !strings.Contains(reply, "No tofu record") {
		t.Fatalf("unexpected reply %q", reply)
	}
}

func TestHandleShortfallWarning(t *testing.T) {
	svc, _ := newTestService(t)

	reply, err := svc.HandleCommand(context.Background(), models.ParseCommand("/record sausage 2024-03-01 produced=10 shipped=15"), "op")
	if err != nil {
		t.Fatalf("record returned error: %v", err)
	}
	if !strings.Contains(reply, "Warning") || !strings.Contains(reply, "short by 5") {
		t.Fatalf("expected shortfall warning, got %q", reply)
	}
}

func TestHandleWeekAndHelp(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.HandleCommand(ctx, models.ParseCommand("/record tofu 2024-03-05 produced=100"), "op"); err != nil {
		t.Fatalf("record returned error: %v", err)
	}

	reply, err := svc.HandleCommand(ctx, models.ParseCommand("/week tofu"), "op")
	if err != nil {
		t.Fatalf("week returned error: %v", err)
	}
	if !strings.Contains(reply, "2024-03-04 to 2024-03-10") || !strings.Contains(reply, "revenue 250.00") {
		t.Fatalf("unexpected week reply %q", reply)
	}

	help, err := svc.HandleCommand(ctx, models.ParseCommand("/help"), "op")
	if err != nil || !strings.Contains(help, "/record") {
		t.Fatalf("unexpected help %q, %v", help, err)
	}
}

func TestHandleCommandErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		message string
		check   func(error) bool
	}{
		{message: "/record", check: func(err error) bool { return errors.Is(err, ErrInvalidArguments) }},
		{message: "/record bakery produced=1", check: models.IsValidation},
		{message: "/record tofu produced=-3", check: models.IsValidation},
		{message: "/day tofu 2024-03-01 extra", check: func(err error) bool { return errors.Is(err, ErrInvalidArguments) }},
		{message: "hello there", check: func(err error) bool { return errors.Is(err, ErrUnsupportedCommand) }},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			_, err := svc.HandleCommand(ctx, models.ParseCommand(tt.message), "op")
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}
