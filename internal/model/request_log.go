package model

import "time"

// RequestLog is an audit record of one raw agent reply.
type RequestLog struct {
	Kind      string    `bson:"kind" json:"kind"`
	Date      string    `bson:"date,omitempty" json:"date,omitempty"`
	AppName   string    `bson:"app_name" json:"app_name"`
	UserID    string    `bson:"user_id" json:"user_id"`
	SessionID string    `bson:"session_id" json:"session_id"`
	Response  string    `bson:"response" json:"response"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

const (
	RequestLogKindChat    = "chat"
	RequestLogKindSummary = "daily_summary"
)
