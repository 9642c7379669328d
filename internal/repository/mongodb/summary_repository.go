package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/foodstation/internal/domain/models"
)

// SavePeriodSummary upserts the summary keyed by pipeline and period.
func (r *MongoDBRepository) SavePeriodSummary(ctx context.Context, summary models.PeriodSummary) error {
	doc := toSummaryDocument(summary)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection(summariesCollection).ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("save period summary %s: %w", doc.ID, err)
	}
	return nil
}
