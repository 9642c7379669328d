package reporting

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/repository/memory"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

type dayInput struct {
	day                      models.Day
	raw, rawPrice            string
	produced, price, shipped string
	opening                  string
}

func seedTofu(t *testing.T, days ...dayInput) *memory.LedgerStore {
	t.Helper()
	store := memory.NewLedgerStore()
	p, _ := models.LookupPipeline(models.PipelineTofu)
	for _, in := range days {
		rec := models.NewLedgerRecord(p, in.day, map[models.Category]decimal.Decimal{models.CategoryTofu: dec(in.opening)})
		rec.RawInput = dec(in.raw)
		rec.RawUnitPrice = dec(in.rawPrice)
		line := rec.Line(models.CategoryTofu)
		line.Produced = dec(in.produced)
		line.UnitPrice = dec(in.price)
		line.Shipped = dec(in.shipped)
		rec.Recompute()
		if err := store.Save(context.Background(), rec); err != nil {
			t.Fatalf("seed %s: %v", in.day, err)
		}
	}
	return store
}

func TestSummarizeUsesPerDayPrices(t *testing.T) {
	// Averaging the two prices would give (2+3)/2 * 110 = 275.
	store := seedTofu(t,
		dayInput{day: "2024-03-04", raw: "10", rawPrice: "4", produced: "100", price: "2", shipped: "60", opening: "0"},
		dayInput{day: "2024-03-05", raw: "1", rawPrice: "4", produced: "10", price: "3", shipped: "80", opening: "40"},
		dayInput{day: "2024-03-12", raw: "99", rawPrice: "4", produced: "99", price: "9", shipped: "0", opening: "0"},
	)
	agg := NewAggregator(store, "", nil)
	if agg.Basis() != models.RevenueOnProduced {
		t.Fatalf("default basis = %s", agg.Basis())
	}

	s, err := agg.SummarizeWeek(context.Background(), models.PipelineTofu, "2024-03-06")
	if err != nil {
		t.Fatalf("SummarizeWeek returned error: %v", err)
	}

	tests := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{name: "revenue", got: s.Revenue, want: "230"},
		{name: "raw input", got: s.RawInput, want: "11"},
		{name: "raw cost", got: s.RawCost, want: "44"},
		{name: "net", got: s.NetResult, want: "186"},
		{name: "produced", got: s.Categories[0].Produced, want: "110"},
		{name: "shipped", got: s.Categories[0].Shipped, want: "140"},
		{name: "closing surplus", got: s.Categories[0].ClosingSurplus, want: "0"},
	}
	for _, tt := range tests {
		if !tt.got.Equal(dec(tt.want)) {
			t.Errorf("%s = %s, want %s", tt.name, tt.got, tt.want)
		}
	}
	if s.DayCount != 2 || s.ShortfallDays != 1 {
		t.Fatalf("days %d, shortfall days %d", s.DayCount, s.ShortfallDays)
	}
}

func TestSummarizeShippedBasis(t *testing.T) {
	store := seedTofu(t,
		dayInput{day: "2024-03-04", raw: "0", rawPrice: "0", produced: "100", price: "2", shipped: "60", opening: "0"},
		dayInput{day: "2024-03-05", raw: "0", rawPrice: "0", produced: "0", price: "3", shipped: "10", opening: "40"},
	)

	s, err := NewAggregator(store, models.RevenueOnShipped, nil).SummarizeMonth(context.Background(), models.PipelineTofu, "2024-03-20")
	if err != nil {
		t.Fatalf("SummarizeMonth returned error: %v", err)
	}
	if !s.Revenue.Equal(dec("150")) || s.Basis != models.RevenueOnShipped {
		t.Fatalf("revenue %s on %s", s.Revenue, s.Basis)
	}
	if !s.Categories[0].ClosingSurplus.Equal(dec("30")) {
		t.Fatalf("closing surplus = %s", s.Categories[0].ClosingSurplus)
	}
}

func TestSummarizeUnknownPipeline(t *testing.T) {
	agg := NewAggregator(memory.NewLedgerStore(), "", nil)
	if _, err := agg.Summarize(context.Background(), "bakery", models.WeekOf("2024-03-06")); !models.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFormatSummary(t *testing.T) {
	empty := models.PeriodSummary{Pipeline: models.PipelineTofu, Period: models.WeekOf("2024-03-06")}
	if got := FormatSummary(empty); !strings.HasSuffix(got, "no records yet.") {
		t.Fatalf("empty summary = %q", got)
	}

	store := seedTofu(t, dayInput{day: "2024-03-04", raw: "2", rawPrice: "4.2", produced: "10", price: "2.5", shipped: "12", opening: "0"})
	s, _ := NewAggregator(store, "", nil).SummarizeWeek(context.Background(), models.PipelineTofu, "2024-03-04")
	got := FormatSummary(s)

	for _, want := range []string{
		"Soybean to tofu (2024-03-04 to 2024-03-10), 1 days recorded",
		"- tofu: produced 10, shipped 12, revenue 25.00, surplus 0",
		"Revenue (produced) 25.00, net 16.60",
		"Warning: shipments exceeded stock on 1 days.",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary %q lacks %q", got, want)
		}
	}
}

func TestFormatRecord(t *testing.T) {
	p, _ := models.LookupPipeline(models.PipelineTofu)
	rec := models.NewLedgerRecord(p, "2024-03-01", map[models.Category]decimal.Decimal{models.CategoryTofu: dec("5")})
	line := rec.Line(models.CategoryTofu)
	line.Produced = dec("10")
	line.Shipped = dec("20")
	rec.Recompute()
	rec.Note = "truck late"

	got := FormatRecord(*rec)
	if !strings.Contains(got, "- tofu: opening 5 + produced 10 - shipped 20 = surplus 0 (short 5)") {
		t.Fatalf("unexpected line in %q", got)
	}
	if !strings.HasSuffix(got, "Note: truck late") {
		t.Fatalf("note missing from %q", got)
	}
}
