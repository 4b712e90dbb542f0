package app

import (
	"context"

	"lsm-digest/internal/logger"
)

// categoryKeys maps the short path keys of the listing endpoints onto stored
// category names. An empty name means no filter.
var categoryKeys = map[string]string{
	"c0": "",
	"c1": "Latvijā",
	"c2": "Pasaulē",
}

// CategoryForKey returns the category for key. Unknown keys mean no filter.
func CategoryForKey(key string) string {
	return categoryKeys[key]
}

type ArticleService struct {
	articles ArticleStore
	log      logger.Logger
}

func NewArticleService(articles ArticleStore, log logger.Logger) *ArticleService {
	return &ArticleService{articles: articles, log: log}
}

// Articles returns the full texts of the articles published on date.
func (s *ArticleService) Articles(ctx context.Context, date string) ([]string, error) {
	return s.field(ctx, date, "", "article")
}

// Titles returns the titles of the articles published on date, optionally
// narrowed to the category behind categoryKey.
func (s *ArticleService) Titles(ctx context.Context, date, categoryKey string) ([]string, error) {
	return s.field(ctx, date, CategoryForKey(categoryKey), "title")
}

func (s *ArticleService) field(ctx context.Context, date, category, field string) ([]string, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	articles, err := s.articles.ListByDate(ctx, day, category, 0, field)
	if err != nil {
		return nil, err
	}

	values := make([]string, 0, len(articles))
	for _, a := range articles {
		switch field {
		case "title":
			values = append(values, a.Title)
		case "article":
			values = append(values, a.Article)
		}
	}
	s.log.Info("listed articles",
		logger.String("date", date),
		logger.String("category", category),
		logger.String("field", field),
		logger.Int("count", len(values)))
	return values, nil
}
