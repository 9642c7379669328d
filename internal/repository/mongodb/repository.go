package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/domain/repositories"
)

const (
	ledgerCollection    = "ledger_records"
	markerCollection    = "cascade_markers"
	shipmentCollection  = "shipment_events"
	summariesCollection = "period_summaries"
)

// MongoDBRepository stores ledger records, cascade markers, shipment events
// and archived summaries in one database.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
	logger *zap.Logger
	now    func() time.Time
}

var (
	_ repositories.LedgerRepository   = (*MongoDBRepository)(nil)
	_ repositories.ShipmentRepository = (*MongoDBRepository)(nil)
	_ repositories.SummaryStore       = (*MongoDBRepository)(nil)
)

// NewMongoDBRepository connects, pings and ensures the indexes exist.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	repo := &MongoDBRepository{
		client: client,
		dbName: dbName,
		logger: logger,
		now:    time.Now,
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	ledgerIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "pipeline", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("pipeline_date"),
	}
	if _, err := r.collection(ledgerCollection).Indexes().CreateOne(ctx, ledgerIdx); err != nil {
		return fmt.Errorf("create ledger index: %w", err)
	}

	shipmentIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "pipeline", Value: 1}, {Key: "occurred_at", Value: 1}},
		Options: options.Index().SetName("pipeline_occurred_at"),
	}
	if _, err := r.collection(shipmentCollection).Indexes().CreateOne(ctx, shipmentIdx); err != nil {
		return fmt.Errorf("create shipment index: %w", err)
	}

	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
