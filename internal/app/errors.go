package app

import (
	"errors"
	"regexp"
	"time"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidDate       = errors.New("invalid date format, use YYYYMMDD")
	ErrNoArticles        = errors.New("no articles found in the specified date range")
	ErrSummaryNotFound   = errors.New("daily summary not found")
	ErrSummaryInProgress = errors.New("daily summary for this date is already running")
	ErrPayloadTooLarge   = errors.New("summary request exceeds the token limit")
	// ErrAgentReplyInvalid and ErrUnresolvedArticle are contract violations by
	// the agent; callers only ever see a generic message for them.
	ErrAgentReplyInvalid = errors.New("agent reply does not match the summary contract")
	ErrUnresolvedArticle = errors.New("agent referenced an unknown article")
)

const dateLayout = "20060102"

var datePattern = regexp.MustCompile(`^\d{8}$`)

// ParseDate parses a YYYYMMDD date as UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	if !datePattern.MatchString(raw) {
		return time.Time{}, ErrInvalidDate
	}
	day, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return day, nil
}

func FormatDate(day time.Time) string {
	return day.UTC().Format(dateLayout)
}
