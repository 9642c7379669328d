package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ShipmentType separates scheduled shipments from fulfilled ones.
type ShipmentType string

const (
	ShipmentPlanned ShipmentType = "planned"
	ShipmentActual  ShipmentType = "actual"
)

// ParseShipmentType accepts planned or actual.
func ParseShipmentType(value string) (ShipmentType, error) {
	switch t := ShipmentType(strings.ToLower(strings.TrimSpace(value))); t {
	case ShipmentPlanned, ShipmentActual:
		return t, nil
	default:
		return "", &ValidationError{Field: "event_type", Reason: fmt.Sprintf("unknown shipment type %q", value)}
	}
}

// ShipmentEvent is an externally recorded shipment of processed output.
type ShipmentEvent struct {
	ID         string          `json:"id"`
	Pipeline   PipelineKind    `json:"pipeline"`
	Category   Category        `json:"category"`
	Quantity   decimal.Decimal `json:"quantity"`
	Type       ShipmentType    `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Reference  string          `json:"reference,omitempty"`
}

// Validate checks the event against the catalog.
func (e ShipmentEvent) Validate() error {
	p, ok := LookupPipeline(e.Pipeline)
	if !ok {
		return &ValidationError{Field: "pipeline", Reason: fmt.Sprintf("unknown pipeline %q", e.Pipeline)}
	}
	if !p.HasCategory(e.Category) {
		return &ValidationError{Field: "category", Reason: fmt.Sprintf("category %q does not belong to pipeline %s", e.Category, e.Pipeline)}
	}
	if e.Quantity.IsNegative() {
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	if e.Type != ShipmentPlanned && e.Type != ShipmentActual {
		return &ValidationError{Field: "event_type", Reason: fmt.Sprintf("unknown shipment type %q", e.Type)}
	}
	if e.OccurredAt.IsZero() {
		return &ValidationError{Field: "occurred_at", Reason: "timestamp is required"}
	}
	return nil
}
