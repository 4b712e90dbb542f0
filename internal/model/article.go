package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Article is written by the external collector and read-only here.
type Article struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title    string             `bson:"title" json:"title"`
	URL      string             `bson:"url" json:"url"`
	Category string             `bson:"category" json:"category"`
	Date     time.Time          `bson:"date" json:"date"`
	Article  string             `bson:"article" json:"article"`
}
