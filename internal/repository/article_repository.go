package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"lsm-digest/internal/model"
)

type ArticleRepository struct {
	coll *mongo.Collection
}

func NewArticleRepository(db *mongo.Database, collection string) *ArticleRepository {
	return &ArticleRepository{coll: db.Collection(collection)}
}

// FetchForSummary returns the articles of day eligible for summarization,
// in store order.
func (r *ArticleRepository) FetchForSummary(ctx context.Context, day time.Time) ([]model.Article, error) {
	opts := options.Find().SetProjection(projection("_id", "url", "title", "category", "article"))
	cursor, err := r.coll.Find(ctx, summaryArticlesFilter(day), opts)
	if err != nil {
		return nil, fmt.Errorf("find summary articles failed: %w", err)
	}

	articles := make([]model.Article, 0)
	if err := cursor.All(ctx, &articles); err != nil {
		return nil, fmt.Errorf("decode summary articles failed: %w", err)
	}
	return articles, nil
}

// ListByDate returns up to limit articles published on day, optionally of a
// single category, with only the requested fields populated.
func (r *ArticleRepository) ListByDate(ctx context.Context, day time.Time, category string, limit int64, fields ...string) ([]model.Article, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	opts := options.Find().SetProjection(projection(fields...)).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, listingFilter(day, category), opts)
	if err != nil {
		return nil, fmt.Errorf("find articles failed: %w", err)
	}

	articles := make([]model.Article, 0)
	if err := cursor.All(ctx, &articles); err != nil {
		return nil, fmt.Errorf("decode articles failed: %w", err)
	}
	return articles, nil
}
