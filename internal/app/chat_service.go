package app

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"lsm-digest/internal/ai"
	"lsm-digest/internal/logger"
	"lsm-digest/internal/model"
)

type ChatService struct {
	sessions  SessionEnsurer
	agent     AgentRunner
	publisher RequestLogPublisher
	log       logger.Logger
	now       func() time.Time
}

type ChatInput struct {
	AgentName string
	Username  string
	SessionID string
	Prompt    string
}

func NewChatService(
	sessions SessionEnsurer,
	agent AgentRunner,
	publisher RequestLogPublisher,
	log logger.Logger,
) *ChatService {
	if log == nil {
		log = logger.NewNop()
	}
	return &ChatService{
		sessions:  sessions,
		agent:     agent,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

// Chat forwards prompt to the named agent within the caller's session and
// returns the agent runtime reply untouched.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (json.RawMessage, error) {
	ref := ai.SessionRef{
		AppName:   strings.TrimSpace(in.AgentName),
		UserID:    strings.TrimSpace(in.Username),
		SessionID: strings.TrimSpace(in.SessionID),
	}
	if !ref.Valid() || strings.TrimSpace(in.Prompt) == "" {
		return nil, ErrInvalidInput
	}

	if _, err := s.sessions.Ensure(ctx, ref); err != nil {
		return nil, err
	}

	reply, err := s.agent.Run(ctx, ref, ai.UserText(in.Prompt))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, model.RequestLogKindChat, "", ref, reply.Raw)
	return reply.Raw, nil
}

func (s *ChatService) audit(ctx context.Context, kind, date string, ref ai.SessionRef, raw json.RawMessage) {
	publishRequestLog(ctx, s.publisher, s.log, model.RequestLog{
		Kind:      kind,
		Date:      date,
		AppName:   ref.AppName,
		UserID:    ref.UserID,
		SessionID: ref.SessionID,
		Response:  string(raw),
		CreatedAt: s.now().UTC(),
	})
}

// publishRequestLog is best effort; the caller's result never depends on it.
func publishRequestLog(ctx context.Context, publisher RequestLogPublisher, log logger.Logger, entry model.RequestLog) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, entry); err != nil {
		log.Warn("publish request log failed",
			logger.String("kind", entry.Kind),
			logger.String("app_name", entry.AppName),
			logger.Error(err))
	}
}
