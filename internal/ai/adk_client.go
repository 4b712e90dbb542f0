package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	opGetSession    = "get_session"
	opCreateSession = "create_session"
	opRun           = "run"

	maxErrorBody = 4 << 10
)

// CallObserver receives one observation per outbound call.
type CallObserver interface {
	ObserveAgentCall(op, outcome string, elapsed time.Duration)
}

type ADKClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	RunTimeout     time.Duration
	HTTPClient     *http.Client
	Observer       CallObserver
}

// ADKClient talks to an agent runtime api server. Each method performs
// exactly one HTTP call; retries belong to the callers.
type ADKClient struct {
	baseURL        string
	httpClient     *http.Client
	requestTimeout time.Duration
	runTimeout     time.Duration
	observer       CallObserver
}

func NewADKClient(cfg ADKClientConfig) *ADKClient {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 10 * time.Minute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &ADKClient{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:     cfg.HTTPClient,
		requestTimeout: cfg.RequestTimeout,
		runTimeout:     cfg.RunTimeout,
		observer:       cfg.Observer,
	}
}

// GetSession returns ErrSessionNotFound on 404.
func (c *ADKClient) GetSession(ctx context.Context, ref SessionRef) (*Session, error) {
	status, raw, err := c.do(ctx, opGetSession, http.MethodGet, ref.path(), nil, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusOK:
		return decodeSession(raw)
	case status == http.StatusNotFound:
		return nil, ErrSessionNotFound
	default:
		return nil, &CallError{Op: opGetSession, StatusCode: status, Body: truncate(raw)}
	}
}

func (c *ADKClient) CreateSession(ctx context.Context, ref SessionRef) (*Session, error) {
	status, raw, err := c.do(ctx, opCreateSession, http.MethodPost, ref.path(), map[string]any{}, c.requestTimeout)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &CallError{Op: opCreateSession, StatusCode: status, Body: truncate(raw)}
	}
	return decodeSession(raw)
}

// Run sends content to the agent within the given session and returns the
// events the agent produced.
func (c *ADKClient) Run(ctx context.Context, ref SessionRef, content Content) (*RunReply, error) {
	body := runRequest{
		AppName:    ref.AppName,
		UserID:     ref.UserID,
		SessionID:  ref.SessionID,
		NewMessage: content,
	}
	status, raw, err := c.do(ctx, opRun, http.MethodPost, "/run", body, c.runTimeout)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &CallError{Op: opRun, StatusCode: status, Body: truncate(raw)}
	}

	var events []Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("decode agent run reply failed: %w", err)
	}
	return &RunReply{Raw: json.RawMessage(raw), Events: events}, nil
}

func (c *ADKClient) do(
	ctx context.Context,
	op, method, path string,
	payload any,
	timeout time.Duration,
) (int, []byte, error) {
	start := time.Now()
	status, raw, err := c.roundTrip(ctx, op, method, path, payload, timeout)
	if c.observer != nil {
		outcome := "ok"
		switch {
		case err != nil:
			outcome = "unreachable"
		case status >= 300:
			outcome = fmt.Sprintf("http_%d", status)
		}
		c.observer.ObserveAgentCall(op, outcome, time.Since(start))
	}
	return status, raw, err
}

func (c *ADKClient) roundTrip(
	ctx context.Context,
	op, method, path string,
	payload any,
	timeout time.Duration,
) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		bodyBytes, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal agent %s request failed: %w", op, err)
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("build agent %s request failed: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &UnreachableError{Op: op, BaseURL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &UnreachableError{Op: op, BaseURL: c.baseURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return resp.StatusCode, raw, nil
}

func decodeSession(raw []byte) (*Session, error) {
	var session Session
	if len(bytes.TrimSpace(raw)) == 0 {
		return &session, nil
	}
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode agent session failed: %w", err)
	}
	return &session, nil
}

func truncate(raw []byte) string {
	if len(raw) > maxErrorBody {
		return string(raw[:maxErrorBody]) + "..."
	}
	return string(raw)
}
