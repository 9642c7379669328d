package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryLine carries the per-output figures of one ledger day.
type CategoryLine struct {
	Category         Category        `json:"category"`
	OpeningCarryOver decimal.Decimal `json:"opening_carry_over"`
	Produced         decimal.Decimal `json:"produced"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Shipped          decimal.Decimal `json:"shipped"`
	// ShippedOverride marks Shipped as a manual value that wins over reconciliation.
	ShippedOverride   bool            `json:"shipped_override"`
	ReconciledShipped decimal.Decimal `json:"reconciled_shipped"`
	PlannedShipped    decimal.Decimal `json:"planned_shipped"`
	ClosingSurplus    decimal.Decimal `json:"closing_surplus"`
	Shortfall         decimal.Decimal `json:"shortfall"`
}

// Available is the stock the day could ship: opening plus production.
func (l CategoryLine) Available() decimal.Decimal {
	return l.OpeningCarryOver.Add(l.Produced)
}

// Recompute derives closing surplus and shortfall from the stored inputs.
// It reports whether either derived value changed.
func (l *CategoryLine) Recompute() bool {
	closing, shortfall := CloseDay(l.OpeningCarryOver, l.Produced, l.Shipped)
	changed := !closing.Equal(l.ClosingSurplus) || !shortfall.Equal(l.Shortfall)
	l.ClosingSurplus = closing
	l.Shortfall = shortfall
	return changed
}

// Discrepancy is the manual shipped value minus the reconciled one. It is zero
// when no override is in place.
func (l CategoryLine) Discrepancy() decimal.Decimal {
	if !l.ShippedOverride {
		return decimal.Zero
	}
	return l.Shipped.Sub(l.ReconciledShipped)
}

// CloseDay computes max(0, opening+produced-shipped) and the excess shipped
// beyond what was available.
func CloseDay(opening, produced, shipped decimal.Decimal) (closing, shortfall decimal.Decimal) {
	available := opening.Add(produced)
	if shipped.GreaterThan(available) {
		return decimal.Zero, shipped.Sub(available)
	}
	return available.Sub(shipped), decimal.Zero
}

// LedgerRecord is the single per-(pipeline, date) entry of the processing ledger.
type LedgerRecord struct {
	Pipeline     PipelineKind    `json:"pipeline"`
	Date         Day             `json:"date"`
	RawInput     decimal.Decimal `json:"raw_input"`
	RawUnitPrice decimal.Decimal `json:"raw_unit_price"`
	Lines        []CategoryLine  `json:"lines"`
	Note         string          `json:"note"`
	Version      int64           `json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewLedgerRecord builds an empty record for the day with catalog default
// prices and the supplied opening balances.
func NewLedgerRecord(p Pipeline, day Day, opening map[Category]decimal.Decimal) *LedgerRecord {
	rec := &LedgerRecord{
		Pipeline:     p.Kind,
		Date:         day,
		RawInput:     decimal.Zero,
		RawUnitPrice: p.DefaultRawUnitPrice,
		Lines:        make([]CategoryLine, 0, len(p.Categories)),
	}
	for _, c := range p.Categories {
		rec.Lines = append(rec.Lines, CategoryLine{
			Category:          c,
			OpeningCarryOver:  opening[c],
			Produced:          decimal.Zero,
			UnitPrice:         p.DefaultUnitPrices[c],
			Shipped:           decimal.Zero,
			ReconciledShipped: decimal.Zero,
			PlannedShipped:    decimal.Zero,
		})
	}
	rec.Recompute()
	return rec
}

// Line returns the mutable line for c, or nil.
func (r *LedgerRecord) Line(c Category) *CategoryLine {
	for i := range r.Lines {
		if r.Lines[i].Category == c {
			return &r.Lines[i]
		}
	}
	return nil
}

// Recompute refreshes every line and reports whether anything changed.
func (r *LedgerRecord) Recompute() bool {
	changed := false
	for i := range r.Lines {
		if r.Lines[i].Recompute() {
			changed = true
		}
	}
	return changed
}

// ApplyOpening replaces opening balances with the given carry-over and reports
// whether any of them moved.
func (r *LedgerRecord) ApplyOpening(opening map[Category]decimal.Decimal) bool {
	changed := false
	for i := range r.Lines {
		next, ok := opening[r.Lines[i].Category]
		if !ok {
			next = decimal.Zero
		}
		if !next.Equal(r.Lines[i].OpeningCarryOver) {
			r.Lines[i].OpeningCarryOver = next
			changed = true
		}
	}
	return changed
}

// Opening returns the opening carry-over per category.
func (r LedgerRecord) Opening() map[Category]decimal.Decimal {
	out := make(map[Category]decimal.Decimal, len(r.Lines))
	for _, l := range r.Lines {
		out[l.Category] = l.OpeningCarryOver
	}
	return out
}

// Closing returns the closing surplus per category.
func (r LedgerRecord) Closing() map[Category]decimal.Decimal {
	out := make(map[Category]decimal.Decimal, len(r.Lines))
	for _, l := range r.Lines {
		out[l.Category] = l.ClosingSurplus
	}
	return out
}

// RawCost is the day's raw input valued at the day's raw price.
func (r LedgerRecord) RawCost() decimal.Decimal {
	return r.RawInput.Mul(r.RawUnitPrice)
}

// Shortfalls lists the lines where shipments exceeded available stock.
func (r LedgerRecord) Shortfalls() []Shortfall {
	var out []Shortfall
	for _, l := range r.Lines {
		if l.Shortfall.IsPositive() {
			out = append(out, Shortfall{Pipeline: r.Pipeline, Date: r.Date, Category: l.Category, Amount: l.Shortfall})
		}
	}
	return out
}

// HasShortfall flags a record with at least one over-shipped line.
func (r LedgerRecord) HasShortfall() bool {
	return len(r.Shortfalls()) > 0
}

// Clone returns a copy whose lines can be mutated independently.
func (r LedgerRecord) Clone() LedgerRecord {
	out := r
	out.Lines = make([]CategoryLine, len(r.Lines))
	copy(out.Lines, r.Lines)
	return out
}

// Shortfall reports quantity shipped beyond supply for one category and day.
type Shortfall struct {
	Pipeline PipelineKind    `json:"pipeline"`
	Date     Day             `json:"date"`
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

func (s Shortfall) String() string {
	return fmt.Sprintf("%s %s %s short by %s", s.Pipeline, s.Date, s.Category, s.Amount)
}

// LineFields are the editable per-category values. Nil leaves a value as is.
type LineFields struct {
	Produced  *decimal.Decimal `json:"produced,omitempty"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	// Shipped is a manual override of the reconciled shipped quantity.
	Shipped *decimal.Decimal `json:"shipped,omitempty"`
	// ClearOverride drops a previous manual override so shipments reconcile again.
	ClearOverride bool `json:"clear_override,omitempty"`
}

// RecordFields is a partial edit of a ledger day. Opening carry-over and
// closing surplus are derived and cannot be supplied.
type RecordFields struct {
	RawInput     *decimal.Decimal        `json:"raw_input,omitempty"`
	RawUnitPrice *decimal.Decimal        `json:"raw_unit_price,omitempty"`
	Lines        map[Category]LineFields `json:"lines,omitempty"`
	Note         *string                 `json:"note,omitempty"`
}

// Validate rejects negative values and categories foreign to the pipeline.
func (f RecordFields) Validate(p Pipeline) error {
	if err := nonNegative("raw_input", f.RawInput); err != nil {
		return err
	}
	if err := nonNegative("raw_unit_price", f.RawUnitPrice); err != nil {
		return err
	}
	for c, lf := range f.Lines {
		if !p.HasCategory(c) {
			return &ValidationError{Field: "category", Reason: fmt.Sprintf("category %q does not belong to pipeline %s", c, p.Kind)}
		}
		if err := nonNegative(string(c)+".produced", lf.Produced); err != nil {
			return err
		}
		if err := nonNegative(string(c)+".unit_price", lf.UnitPrice); err != nil {
			return err
		}
		if err := nonNegative(string(c)+".shipped", lf.Shipped); err != nil {
			return err
		}
		if lf.Shipped != nil && lf.ClearOverride {
			return &ValidationError{Field: string(c) + ".shipped", Reason: "cannot set and clear the override at once"}
		}
	}
	return nil
}

// Apply merges the supplied fields into rec. A supplied Shipped value becomes a
// manual override; clearing one falls back to the reconciled quantity.
func (f RecordFields) Apply(rec *LedgerRecord) {
	if f.RawInput != nil {
		rec.RawInput = *f.RawInput
	}
	if f.RawUnitPrice != nil {
		rec.RawUnitPrice = *f.RawUnitPrice
	}
	if f.Note != nil {
		rec.Note = *f.Note
	}
	for c, lf := range f.Lines {
		line := rec.Line(c)
		if line == nil {
			continue
		}
		if lf.Produced != nil {
			line.Produced = *lf.Produced
		}
		if lf.UnitPrice != nil {
			line.UnitPrice = *lf.UnitPrice
		}
		if lf.ClearOverride {
			line.ShippedOverride = false
			line.Shipped = line.ReconciledShipped
		}
		if lf.Shipped != nil {
			line.Shipped = *lf.Shipped
			line.ShippedOverride = true
		}
	}
}

func nonNegative(field string, v *decimal.Decimal) error {
	if v != nil && v.IsNegative() {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must not be negative, got %s", v)}
	}
	return nil
}
