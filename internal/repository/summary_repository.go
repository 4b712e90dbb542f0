package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lsm-digest/internal/model"
)

type SummaryRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewSummaryRepository(db *mongo.Database, collection string) *SummaryRepository {
	return &SummaryRepository{
		coll: db.Collection(collection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *SummaryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("date_unique"),
	})
	if err != nil {
		return fmt.Errorf("create summary date index failed: %w", err)
	}
	return nil
}

// Upsert replaces the summaries stored for day, creating the document on the
// first write. Concurrent writes for the same day are last-write-wins.
func (r *SummaryRepository) Upsert(ctx context.Context, day time.Time, summaries []model.Summary) (*model.UpsertResult, error) {
	filter := bson.M{"date": DayStart(day)}
	update := summaryUpdate(day, summaries, r.now())

	res, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return nil, fmt.Errorf("upsert daily summary failed: %w", err)
	}

	result := &model.UpsertResult{
		DidUpsert:     res.UpsertedCount > 0,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}
	switch id := res.UpsertedID.(type) {
	case primitive.ObjectID:
		result.UpsertedID = id.Hex()
	case nil:
	default:
		result.UpsertedID = fmt.Sprint(id)
	}
	return result, nil
}

// GetByDate returns nil when no summary exists for day.
func (r *SummaryRepository) GetByDate(ctx context.Context, day time.Time) (*model.DailySummary, error) {
	opts := options.FindOne().SetProjection(bson.M{"_id": 0, "date": 1, "summaries": 1, "updated_at": 1})

	var doc model.DailySummary
	err := r.coll.FindOne(ctx, bson.M{"date": DayStart(day)}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get daily summary failed: %w", err)
	}
	return &doc, nil
}
