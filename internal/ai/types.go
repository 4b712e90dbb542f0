package ai

import (
	"encoding/json"
	"net/url"
	"strings"
)

const RoleUser = "user"

type Part struct {
	Text string `json:"text"`
}

// Content is one message exchanged with the agent runtime: a role and an
// ordered list of text parts.
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

func UserText(texts ...string) Content {
	parts := make([]Part, 0, len(texts))
	for _, t := range texts {
		parts = append(parts, Part{Text: t})
	}
	return Content{Role: RoleUser, Parts: parts}
}

// SessionRef identifies a session owned by the agent runtime.
type SessionRef struct {
	AppName   string
	UserID    string
	SessionID string
}

func (r SessionRef) Valid() bool {
	return strings.TrimSpace(r.AppName) != "" &&
		strings.TrimSpace(r.UserID) != "" &&
		strings.TrimSpace(r.SessionID) != ""
}

func (r SessionRef) path() string {
	return "/apps/" + url.PathEscape(r.AppName) +
		"/users/" + url.PathEscape(r.UserID) +
		"/sessions/" + url.PathEscape(r.SessionID)
}

type Session struct {
	ID             string  `json:"id"`
	AppName        string  `json:"appName"`
	UserID         string  `json:"userId"`
	LastUpdateTime float64 `json:"lastUpdateTime"`
}

type runRequest struct {
	AppName    string  `json:"appName"`
	UserID     string  `json:"userId"`
	SessionID  string  `json:"sessionId"`
	NewMessage Content `json:"newMessage"`
}

// Event is the subset of an agent runtime event this service reads.
type Event struct {
	ID           string   `json:"id"`
	Author       string   `json:"author"`
	InvocationID string   `json:"invocationId"`
	Content      *Content `json:"content,omitempty"`
	Timestamp    float64  `json:"timestamp"`
}

// RunReply keeps the raw body next to the decoded events so callers can pass
// the reply through untouched.
type RunReply struct {
	Raw    json.RawMessage
	Events []Event
}

// FinalText returns the joined text parts of the last event that has text.
func (r *RunReply) FinalText() string {
	for i := len(r.Events) - 1; i >= 0; i-- {
		content := r.Events[i].Content
		if content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range content.Parts {
			b.WriteString(p.Text)
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			return text
		}
	}
	return ""
}
