package repository

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"lsm-digest/internal/model"
)

// Late publications up to 03:00 next day still belong to the previous day.
const summaryGracePeriod = 3 * time.Hour

const defaultListLimit int64 = 100

// SkipCategories are never summarized.
var SkipCategories = []string{
	"Vaļasprieki",
	"Virtuve",
	"Laika ziņas",
	"Ceļošana",
	"Cilvēkstāsti",
	"Ikdienai",
	"Ziņas vieglajā valodā",
	"Podkāsti",
	"Vēsture",
	"Sarunas",
	"Skatpunts",
}

// DayStart returns UTC midnight of the calendar date of t.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SummaryWindow is the half-open interval [midnight, midnight+27h).
func SummaryWindow(day time.Time) (time.Time, time.Time) {
	start := DayStart(day)
	return start, start.Add(24*time.Hour + summaryGracePeriod)
}

func summaryArticlesFilter(day time.Time) bson.M {
	start, end := SummaryWindow(day)
	return bson.M{
		"date": bson.M{
			"$gte": start,
			"$lt":  end,
		},
		"category": bson.M{
			"$nin": SkipCategories,
		},
	}
}

func listingFilter(day time.Time, category string) bson.M {
	start := DayStart(day)
	filter := bson.M{
		"date": bson.M{
			"$gte": start,
			"$lt":  start.Add(24 * time.Hour),
		},
	}
	if category != "" {
		filter["category"] = category
	}
	return filter
}

func projection(fields ...string) bson.M {
	p := bson.M{}
	hasID := false
	for _, f := range fields {
		p[f] = 1
		if f == "_id" {
			hasID = true
		}
	}
	if !hasID {
		p["_id"] = 0
	}
	return p
}

// summaryUpdate replaces date, summaries and updated_at as a whole. updated_at
// is bumped past the stored value so it strictly increases even when two writes
// land in the same millisecond.
func summaryUpdate(day time.Time, summaries []model.Summary, now time.Time) mongo.Pipeline {
	if summaries == nil {
		summaries = []model.Summary{}
	}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "date", Value: DayStart(day)},
			{Key: "summaries", Value: bson.D{{Key: "$literal", Value: summaries}}},
			{Key: "updated_at", Value: bson.D{{Key: "$max", Value: bson.A{
				now,
				bson.D{{Key: "$add", Value: bson.A{
					bson.D{{Key: "$ifNull", Value: bson.A{"$updated_at", now}}},
					1,
				}}},
			}}}},
		}}},
	}
}
