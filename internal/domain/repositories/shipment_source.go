package repositories

import (
	"context"
	"time"

	"github.com/mamadbah2/foodstation/internal/domain/models"
)

// ShipmentSource is queried for shipment events of a pipeline whose
// timestamps fall in [from, to).
type ShipmentSource interface {
	ListShipments(ctx context.Context, pipeline models.PipelineKind, from, to time.Time) ([]models.ShipmentEvent, error)
}

// ShipmentLog accepts newly recorded shipment events.
type ShipmentLog interface {
	AppendShipment(ctx context.Context, event models.ShipmentEvent) error
}

// ShipmentRepository is a source that also accepts writes.
type ShipmentRepository interface {
	ShipmentSource
	ShipmentLog
}
