package app

import (
	"context"
	"time"

	"lsm-digest/internal/ai"
	"lsm-digest/internal/model"
)

type ArticleStore interface {
	FetchForSummary(ctx context.Context, day time.Time) ([]model.Article, error)
	ListByDate(ctx context.Context, day time.Time, category string, limit int64, fields ...string) ([]model.Article, error)
}

type SummaryStore interface {
	Upsert(ctx context.Context, day time.Time, summaries []model.Summary) (*model.UpsertResult, error)
	GetByDate(ctx context.Context, day time.Time) (*model.DailySummary, error)
}

type SessionEnsurer interface {
	Ensure(ctx context.Context, ref ai.SessionRef) (*ai.Session, error)
}

type AgentRunner interface {
	Run(ctx context.Context, ref ai.SessionRef, content ai.Content) (*ai.RunReply, error)
}

type RequestLogPublisher interface {
	Publish(ctx context.Context, entry model.RequestLog) error
}

type SummaryCache interface {
	Get(ctx context.Context, day time.Time) (*model.DailySummary, bool, error)
	Set(ctx context.Context, day time.Time, doc *model.DailySummary) error
	Delete(ctx context.Context, day time.Time) error
	Lock(ctx context.Context, day time.Time) (func(context.Context) error, bool, error)
}

type RunObserver interface {
	ObserveSummaryRun(outcome string)
}
