package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SummaryArticle struct {
	ArticleID primitive.ObjectID `bson:"article_id" json:"id"`
	Title     string             `bson:"title" json:"title"`
	URL       string             `bson:"url" json:"url"`
	AISummary string             `bson:"ai_summary" json:"ai_summary"`
}

type Summary struct {
	Category string           `bson:"category" json:"category"`
	Articles []SummaryArticle `bson:"articles" json:"articles"`
}

// DailySummary is unique per calendar date (UTC midnight).
type DailySummary struct {
	Date      time.Time `bson:"date" json:"date"`
	Summaries []Summary `bson:"summaries" json:"summaries"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type UpsertResult struct {
	DidUpsert     bool   `json:"did_upsert"`
	MatchedCount  int64  `json:"matched_count"`
	ModifiedCount int64  `json:"modified_count"`
	UpsertedID    string `json:"upserted_id,omitempty"`
}
