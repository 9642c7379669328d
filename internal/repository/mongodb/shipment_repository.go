package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/foodstation/internal/domain/models"
)

// AppendShipment stores a shipment event. Replaying an event with a known ID
// is a no-op.
func (r *MongoDBRepository) AppendShipment(ctx context.Context, event models.ShipmentEvent) error {
	doc := toShipmentDocument(event)
	if _, err := r.collection(shipmentCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert shipment %s: %w", event.ID, err)
	}
	return nil
}

// ListShipments returns the events of pipeline with from <= occurred_at < to.
func (r *MongoDBRepository) ListShipments(ctx context.Context, pipeline models.PipelineKind, from, to time.Time) ([]models.ShipmentEvent, error) {
	filter := bson.M{
		"pipeline":    string(pipeline),
		"occurred_at": bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}})

	cursor, err := r.collection(shipmentCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find shipments: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []shipmentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode shipments: %w", err)
	}

	out := make([]models.ShipmentEvent, 0, len(docs))
	for _, doc := range docs {
		event, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}
