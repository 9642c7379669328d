package mongodb

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/foodstation/internal/domain/models"
)

// Decimals are stored as strings so no precision is lost to float64.

type lineDocument struct {
	Category          string `bson:"category"`
	OpeningCarryOver  string `bson:"opening_carry_over"`
	Produced          string `bson:"produced"`
	UnitPrice         string `bson:"unit_price"`
	Shipped           string `bson:"shipped"`
	ShippedOverride   bool   `bson:"shipped_override"`
	ReconciledShipped string `bson:"reconciled_shipped"`
	PlannedShipped    string `bson:"planned_shipped"`
	ClosingSurplus    string `bson:"closing_surplus"`
	Shortfall         string `bson:"shortfall"`
}

type ledgerDocument struct {
	ID           string         `bson:"_id"`
	Pipeline     string         `bson:"pipeline"`
	Date         string         `bson:"date"`
	RawInput     string         `bson:"raw_input"`
	RawUnitPrice string         `bson:"raw_unit_price"`
	Lines        []lineDocument `bson:"lines"`
	Note         string         `bson:"note,omitempty"`
	Version      int64          `bson:"version"`
	CreatedAt    time.Time      `bson:"created_at"`
	UpdatedAt    time.Time      `bson:"updated_at"`
}

func ledgerID(pipeline models.PipelineKind, day models.Day) string {
	return string(pipeline) + "|" + string(day)
}

func toLedgerDocument(rec models.LedgerRecord) ledgerDocument {
	doc := ledgerDocument{
		ID:           ledgerID(rec.Pipeline, rec.Date),
		Pipeline:     string(rec.Pipeline),
		Date:         string(rec.Date),
		RawInput:     rec.RawInput.String(),
		RawUnitPrice: rec.RawUnitPrice.String(),
		Lines:        make([]lineDocument, 0, len(rec.Lines)),
		Note:         rec.Note,
		Version:      rec.Version,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	for _, l := range rec.Lines {
		doc.Lines = append(doc.Lines, lineDocument{
			Category:          string(l.Category),
			OpeningCarryOver:  l.OpeningCarryOver.String(),
			Produced:          l.Produced.String(),
			UnitPrice:         l.UnitPrice.String(),
			Shipped:           l.Shipped.String(),
			ShippedOverride:   l.ShippedOverride,
			ReconciledShipped: l.ReconciledShipped.String(),
			PlannedShipped:    l.PlannedShipped.String(),
			ClosingSurplus:    l.ClosingSurplus.String(),
			Shortfall:         l.Shortfall.String(),
		})
	}
	return doc
}

func (d ledgerDocument) toModel() (*models.LedgerRecord, error) {
	var p decimalParser
	rec := &models.LedgerRecord{
		Pipeline:     models.PipelineKind(d.Pipeline),
		Date:         models.Day(d.Date),
		RawInput:     p.parse("raw_input", d.RawInput),
		RawUnitPrice: p.parse("raw_unit_price", d.RawUnitPrice),
		Lines:        make([]models.CategoryLine, 0, len(d.Lines)),
		Note:         d.Note,
		Version:      d.Version,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	for _, l := range d.Lines {
		rec.Lines = append(rec.Lines, models.CategoryLine{
			Category:          models.Category(l.Category),
			OpeningCarryOver:  p.parse("opening_carry_over", l.OpeningCarryOver),
			Produced:          p.parse("produced", l.Produced),
			UnitPrice:         p.parse("unit_price", l.UnitPrice),
			Shipped:           p.parse("shipped", l.Shipped),
			ShippedOverride:   l.ShippedOverride,
			ReconciledShipped: p.parse("reconciled_shipped", l.ReconciledShipped),
			PlannedShipped:    p.parse("planned_shipped", l.PlannedShipped),
			ClosingSurplus:    p.parse("closing_surplus", l.ClosingSurplus),
			Shortfall:         p.parse("shortfall", l.Shortfall),
		})
	}
	if p.err != nil {
		return nil, fmt.Errorf("decode ledger record %s: %w", d.ID, p.err)
	}
	return rec, nil
}

type markerDocument struct {
	Pipeline string    `bson:"_id"`
	From     string    `bson:"from"`
	MarkedAt time.Time `bson:"marked_at"`
}

type shipmentDocument struct {
	ID         string    `bson:"_id"`
	Pipeline   string    `bson:"pipeline"`
	Category   string    `bson:"category"`
	Quantity   string    `bson:"quantity"`
	Type       string    `bson:"event_type"`
	OccurredAt time.Time `bson:"occurred_at"`
	Reference  string    `bson:"reference,omitempty"`
}

func toShipmentDocument(e models.ShipmentEvent) shipmentDocument {
	return shipmentDocument{
		ID:         e.ID,
		Pipeline:   string(e.Pipeline),
		Category:   string(e.Category),
		Quantity:   e.Quantity.String(),
		Type:       string(e.Type),
		OccurredAt: e.OccurredAt.UTC(),
		Reference:  e.Reference,
	}
}

func (d shipmentDocument) toModel() (models.ShipmentEvent, error) {
	qty, err := decimal.NewFromString(d.Quantity)
	if err != nil {
		return models.ShipmentEvent{}, fmt.Errorf("decode shipment %s quantity: %w", d.ID, err)
	}
	return models.ShipmentEvent{
		ID:         d.ID,
		Pipeline:   models.PipelineKind(d.Pipeline),
		Category:   models.Category(d.Category),
		Quantity:   qty,
		Type:       models.ShipmentType(d.Type),
		OccurredAt: d.OccurredAt,
		Reference:  d.Reference,
	}, nil
}

type categorySummaryDocument struct {
	Category       string `bson:"category"`
	Produced       string `bson:"produced"`
	Shipped        string `bson:"shipped"`
	Revenue        string `bson:"revenue"`
	ClosingSurplus string `bson:"closing_surplus"`
}

type summaryDocument struct {
	ID            string                    `bson:"_id"`
	Pipeline      string                    `bson:"pipeline"`
	PeriodStart   string                    `bson:"period_start"`
	PeriodEnd     string                    `bson:"period_end"`
	Basis         string                    `bson:"revenue_basis"`
	DayCount      int                       `bson:"day_count"`
	ShortfallDays int                       `bson:"shortfall_days"`
	RawInput      string                    `bson:"raw_input"`
	RawCost       string                    `bson:"raw_cost"`
	Categories    []categorySummaryDocument `bson:"categories"`
	Revenue       string                    `bson:"revenue"`
	NetResult     string                    `bson:"net_result"`
	GeneratedAt   time.Time                 `bson:"generated_at"`
}

func toSummaryDocument(s models.PeriodSummary) summaryDocument {
	doc := summaryDocument{
		ID:            fmt.Sprintf("%s|%s|%s", s.Pipeline, s.Period.Start, s.Period.End),
		Pipeline:      string(s.Pipeline),
		PeriodStart:   string(s.Period.Start),
		PeriodEnd:     string(s.Period.End),
		Basis:         string(s.Basis),
		DayCount:      s.DayCount,
		ShortfallDays: s.ShortfallDays,
		RawInput:      s.RawInput.String(),
		RawCost:       s.RawCost.String(),
		Categories:    make([]categorySummaryDocument, 0, len(s.Categories)),
		Revenue:       s.Revenue.String(),
		NetResult:     s.NetResult.String(),
		GeneratedAt:   s.GeneratedAt,
	}
	for _, c := range s.Categories {
		doc.Categories = append(doc.Categories, categorySummaryDocument{
			Category:       string(c.Category),
			Produced:       c.Produced.String(),
			Shipped:        c.Shipped.String(),
			Revenue:        c.Revenue.String(),
			ClosingSurplus: c.ClosingSurplus.String(),
		})
	}
	return doc
}

// decimalParser keeps the first parse failure so a document decodes in one pass.
type decimalParser struct {
	err error
}

func (p *decimalParser) parse(field, value string) decimal.Decimal {
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("field %s: %w", field, err)
	}
	return d
}
