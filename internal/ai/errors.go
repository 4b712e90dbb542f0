package ai

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is the probe outcome that leads to session creation.
	ErrSessionNotFound = errors.New("agent session not found")
	// ErrSessionUnavailable means a session could not be created within the
	// configured number of attempts.
	ErrSessionUnavailable = errors.New("agent session unavailable")
)

// CallError is a non-2xx answer from the agent runtime.
type CallError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("agent %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// UnreachableError is a transport-level failure talking to the agent runtime.
type UnreachableError struct {
	Op      string
	BaseURL string
	Err     error
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("agent %s: could not reach %s: %v", e.Op, e.BaseURL, e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}

// SessionCall reports whether the failed call was a session probe or create
// rather than an agent run.
func (e *CallError) SessionCall() bool {
	return e.Op == opGetSession || e.Op == opCreateSession
}
