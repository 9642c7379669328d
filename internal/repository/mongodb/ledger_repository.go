package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/foodstation/internal/domain/models"
)

// Get loads the record for (pipeline, day).
func (r *MongoDBRepository) Get(ctx context.Context, pipeline models.PipelineKind, day models.Day) (*models.LedgerRecord, error) {
	filter := bson.M{"_id": ledgerID(pipeline, day)}
	return r.findOneRecord(ctx, filter, nil)
}

// ListRange returns records with from <= date <= to in ascending order.
func (r *MongoDBRepository) ListRange(ctx context.Context, pipeline models.PipelineKind, from, to models.Day) ([]models.LedgerRecord, error) {
	filter := bson.M{
		"pipeline": string(pipeline),
		"date":     bson.M{"$gte": string(from), "$lte": string(to)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})

	cursor, err := r.collection(ledgerCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find ledger records: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []ledgerDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode ledger records: %w", err)
	}

	out := make([]models.LedgerRecord, 0, len(docs))
	for _, doc := range docs {
		rec, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Previous returns the latest record strictly before day.
func (r *MongoDBRepository) Previous(ctx context.Context, pipeline models.PipelineKind, day models.Day) (*models.LedgerRecord, error) {
	filter := bson.M{"pipeline": string(pipeline), "date": bson.M{"$lt": string(day)}}
	return r.findOneRecord(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}}))
}

// Next returns the earliest record strictly after day.
func (r *MongoDBRepository) Next(ctx context.Context, pipeline models.PipelineKind, day models.Day) (*models.LedgerRecord, error) {
	filter := bson.M{"pipeline": string(pipeline), "date": bson.M{"$gt": string(day)}}
	return r.findOneRecord(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "date", Value: 1}}))
}

// Save inserts a new record or replaces the stored one when versions match.
func (r *MongoDBRepository) Save(ctx context.Context, record *models.LedgerRecord) error {
	now := r.now().UTC()
	coll := r.collection(ledgerCollection)

	doc := toLedgerDocument(*record)
	doc.Version = record.Version + 1
	doc.UpdatedAt = now

	if record.Version == 0 {
		doc.CreatedAt = now
		if _, err := coll.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("insert %s: %w", doc.ID, models.ErrConflict)
			}
			return fmt.Errorf("insert ledger record %s: %w", doc.ID, err)
		}
	} else {
		filter := bson.M{"_id": doc.ID, "version": record.Version}
		res, err := coll.ReplaceOne(ctx, filter, doc)
		if err != nil {
			return fmt.Errorf("replace ledger record %s: %w", doc.ID, err)
		}
		if res.MatchedCount == 0 {
			return fmt.Errorf("replace %s at version %d: %w", doc.ID, record.Version, models.ErrConflict)
		}
	}

	record.Version = doc.Version
	record.CreatedAt = doc.CreatedAt
	record.UpdatedAt = now

	r.logger.Debug("ledger record saved", zap.String("id", doc.ID), zap.Int64("version", doc.Version))
	return nil
}

// MarkPending records the start of a cascade, keeping the earliest start.
func (r *MongoDBRepository) MarkPending(ctx context.Context, pipeline models.PipelineKind, from models.Day) error {
	update := bson.M{
		"$min": bson.M{"from": string(from)},
		"$set": bson.M{"marked_at": r.now().UTC()},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := r.collection(markerCollection).UpdateOne(ctx, bson.M{"_id": string(pipeline)}, update, opts); err != nil {
		return fmt.Errorf("mark cascade for %s: %w", pipeline, err)
	}
	return nil
}

// PendingFrom returns the unfinished cascade start for pipeline, if any.
func (r *MongoDBRepository) PendingFrom(ctx context.Context, pipeline models.PipelineKind) (models.Day, bool, error) {
	var doc markerDocument
	err := r.collection(markerCollection).FindOne(ctx, bson.M{"_id": string(pipeline)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cascade marker for %s: %w", pipeline, err)
	}
	return models.Day(doc.From), true, nil
}

// ClearPending drops the cascade marker of pipeline.
func (r *MongoDBRepository) ClearPending(ctx context.Context, pipeline models.PipelineKind) error {
	if _, err := r.collection(markerCollection).DeleteOne(ctx, bson.M{"_id": string(pipeline)}); err != nil {
		return fmt.Errorf("clear cascade marker for %s: %w", pipeline, err)
	}
	return nil
}

func (r *MongoDBRepository) findOneRecord(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*models.LedgerRecord, error) {
	var doc ledgerDocument
	var err error
	if opts != nil {
		err = r.collection(ledgerCollection).FindOne(ctx, filter, opts).Decode(&doc)
	} else {
		err = r.collection(ledgerCollection).FindOne(ctx, filter).Decode(&doc)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find ledger record: %w", err)
	}
	return doc.toModel()
}
