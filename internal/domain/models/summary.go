package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RevenueBasis selects which quantity is valued at the day's unit price.
type RevenueBasis string

const (
	RevenueOnProduced RevenueBasis = "produced"
	RevenueOnShipped  RevenueBasis = "shipped"
)

// CategorySummary aggregates one output over a period.
type CategorySummary struct {
	Category Category        `json:"category"`
	Produced decimal.Decimal `json:"produced"`
	Shipped  decimal.Decimal `json:"shipped"`
	Revenue  decimal.Decimal `json:"revenue"`
	// ClosingSurplus is the closing balance of the last recorded day in the period.
	ClosingSurplus decimal.Decimal `json:"closing_surplus"`
}

// PeriodSummary rolls daily ledger records into a week, month or custom range.
type PeriodSummary struct {
	Pipeline      PipelineKind      `json:"pipeline"`
	Period        Period            `json:"period"`
	Basis         RevenueBasis      `json:"revenue_basis"`
	DayCount      int               `json:"day_count"`
	ShortfallDays int               `json:"shortfall_days"`
	RawInput      decimal.Decimal   `json:"raw_input"`
	RawCost       decimal.Decimal   `json:"raw_cost"`
	Categories    []CategorySummary `json:"categories"`
	Revenue       decimal.Decimal   `json:"revenue"`
	NetResult     decimal.Decimal   `json:"net_result"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

// Category returns the summary line for c, or nil.
func (s *PeriodSummary) Category(c Category) *CategorySummary {
	for i := range s.Categories {
		if s.Categories[i].Category == c {
			return &s.Categories[i]
		}
	}
	return nil
}
