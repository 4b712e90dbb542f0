package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"lsm-digest/internal/model"
)

type RequestLogRepository struct {
	coll *mongo.Collection
}

func NewRequestLogRepository(db *mongo.Database, collection string) *RequestLogRepository {
	return &RequestLogRepository{coll: db.Collection(collection)}
}

func (r *RequestLogRepository) Insert(ctx context.Context, entry *model.RequestLog) error {
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert request log failed: %w", err)
	}
	return nil
}
