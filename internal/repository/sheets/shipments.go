package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/domain/models"
	"github.com/mamadbah2/foodstation/internal/domain/repositories"
)

const (
	shipmentsRange = "Shipments!A:G"
	summariesRange = "Summaries!A:L"

	// Shipment timestamps without an offset are read in the station's zone.
	localTimestampLayout = "2006-01-02 15:04"
)

// ShipmentSheet reads and appends shipment events kept in a spreadsheet tab.
// Columns: id, occurred_at, pipeline, category, quantity, event_type, reference.
type ShipmentSheet struct {
	repo     Repository
	location *time.Location
	logger   *zap.Logger
}

var _ repositories.ShipmentRepository = (*ShipmentSheet)(nil)

// NewShipmentSheet wraps repo. loc interprets timestamps without an offset.
func NewShipmentSheet(repo Repository, loc *time.Location, logger *zap.Logger) *ShipmentSheet {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ShipmentSheet{repo: repo, location: loc, logger: logger}
}

// ListShipments scans the tab and keeps the pipeline's rows in [from, to).
func (s *ShipmentSheet) ListShipments(ctx context.Context, pipeline models.PipelineKind, from, to time.Time) ([]models.ShipmentEvent, error) {
	rows, err := s.repo.ReadRange(ctx, shipmentsRange)
	if err != nil {
		return nil, fmt.Errorf("load shipments range: %w", err)
	}

	var out []models.ShipmentEvent
	for i, row := range rows {
		if len(row) < 6 {
			continue
		}
		event, err := s.parseRow(row)
		if err != nil {
			// Header rows land here too.
			s.logger.Debug("skip shipment row", zap.Int("row", i+1), zap.Error(err))
			continue
		}
		if event.Pipeline != pipeline {
			continue
		}
		if event.OccurredAt.Before(from) || !event.OccurredAt.Before(to) {
			continue
		}
		out = append(out, event)
	}
	return out, nil
}

// AppendShipment writes the event as a new row.
func (s *ShipmentSheet) AppendShipment(ctx context.Context, event models.ShipmentEvent) error {
	row := []interface{}{
		event.ID,
		event.OccurredAt.Format(time.RFC3339),
		string(event.Pipeline),
		string(event.Category),
		event.Quantity.String(),
		string(event.Type),
		event.Reference,
	}
	if err := s.repo.WriteRow(ctx, shipmentsRange, row); err != nil {
		return fmt.Errorf("append shipment %s: %w", event.ID, err)
	}
	return nil
}

func (s *ShipmentSheet) parseRow(row []interface{}) (models.ShipmentEvent, error) {
	occurredAt, err := s.parseTimestamp(row[1])
	if err != nil {
		return models.ShipmentEvent{}, err
	}
	qty, err := parseDecimal(row[4])
	if err != nil {
		return models.ShipmentEvent{}, err
	}
	kind, err := models.ParsePipelineKind(fmt.Sprint(row[2]))
	if err != nil {
		return models.ShipmentEvent{}, err
	}
	typ, err := models.ParseShipmentType(fmt.Sprint(row[5]))
	if err != nil {
		return models.ShipmentEvent{}, err
	}

	event := models.ShipmentEvent{
		ID:         fmt.Sprint(row[0]),
		Pipeline:   kind,
		Category:   models.Category(strings.ToLower(strings.TrimSpace(fmt.Sprint(row[3])))),
		Quantity:   qty,
		Type:       typ,
		OccurredAt: occurredAt,
	}
	if len(row) > 6 {
		event.Reference = fmt.Sprint(row[6])
	}
	if err := event.Validate(); err != nil {
		return models.ShipmentEvent{}, err
	}
	return event, nil
}

func (s *ShipmentSheet) parseTimestamp(value interface{}) (time.Time, error) {
	str := strings.TrimSpace(fmt.Sprint(value))
	if str == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, str); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(localTimestampLayout, str, s.location); err == nil {
		return t, nil
	}
	return time.ParseInLocation(models.DayLayout, str, s.location)
}

func parseDecimal(value interface{}) (decimal.Decimal, error) {
	str := strings.TrimSpace(fmt.Sprint(value))
	if str == "" {
		return decimal.Zero, fmt.Errorf("empty numeric value")
	}
	return decimal.NewFromString(str)
}
