package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lsm-digest/internal/ai"
	"lsm-digest/internal/logger"
	"lsm-digest/internal/model"
	"lsm-digest/internal/repository"
)

// Identity is the agent runtime user and session a summary run is made under.
type Identity struct {
	UserID    string
	SessionID string
}

type SummaryServiceConfig struct {
	DefaultAgent string
	// SystemIdentity is used for scheduled runs and whenever the caller
	// supplies no identity of its own.
	SystemIdentity Identity
	SystemPrompt   string
	// TokenLimit disables the payload guard when zero.
	TokenLimit int
}

type SummarizeInput struct {
	Day       time.Time
	Limit     int
	AgentName string
	Identity  *Identity
}

type SummaryService struct {
	articles  ArticleStore
	summaries SummaryStore
	sessions  SessionEnsurer
	agent     AgentRunner
	tokens    ai.TokenCounter
	cache     SummaryCache
	publisher RequestLogPublisher
	observer  RunObserver
	cfg       SummaryServiceConfig
	log       logger.Logger
	newID     func() string
	now       func() time.Time
}

type SummaryServiceDeps struct {
	Articles  ArticleStore
	Summaries SummaryStore
	Sessions  SessionEnsurer
	Agent     AgentRunner
	Tokens    ai.TokenCounter
	Cache     SummaryCache
	Publisher RequestLogPublisher
	Observer  RunObserver
}

func NewSummaryService(deps SummaryServiceDeps, cfg SummaryServiceConfig, log logger.Logger) *SummaryService {
	if log == nil {
		log = logger.NewNop()
	}
	if deps.Tokens == nil {
		deps.Tokens = ai.HeuristicTokenCounter{}
	}
	return &SummaryService{
		articles:  deps.Articles,
		summaries: deps.Summaries,
		sessions:  deps.Sessions,
		agent:     deps.Agent,
		tokens:    deps.Tokens,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		observer:  deps.Observer,
		cfg:       cfg,
		log:       log,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Summarize builds and persists the daily summary for in.Day. The agent only
// ever sees correlation ids, never store ids, titles or urls.
func (s *SummaryService) Summarize(ctx context.Context, in SummarizeInput) (result *model.UpsertResult, err error) {
	day := repository.DayStart(in.Day)
	ref := s.sessionRef(in)
	log := s.log.With(
		logger.String("date", FormatDate(day)),
		logger.String("app_name", ref.AppName),
		logger.String("user_id", ref.UserID),
	)
	defer func() {
		if s.observer != nil {
			s.observer.ObserveSummaryRun(runOutcome(err))
		}
	}()

	if in.Limit < 0 || !ref.Valid() {
		return nil, ErrInvalidInput
	}

	if s.cache != nil {
		release, locked, lockErr := s.cache.Lock(ctx, day)
		if lockErr != nil {
			return nil, fmt.Errorf("acquire summary lock failed: %w", lockErr)
		}
		if !locked {
			return nil, ErrSummaryInProgress
		}
		defer func() {
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
				log.Warn("release summary lock failed", logger.Error(relErr))
			}
		}()
	}

	articles, err := s.articles.FetchForSummary(ctx, day)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		log.Info("no articles to summarize")
		return nil, ErrNoArticles
	}
	if in.Limit > 0 && in.Limit < len(articles) {
		articles = articles[:in.Limit]
	}

	req, err := buildSummaryRequest(s.cfg.SystemPrompt, articles, s.newID)
	if err != nil {
		return nil, err
	}

	if s.cfg.TokenLimit > 0 {
		tokens, countErr := s.tokens.CountTokens(ctx, req.content)
		if countErr != nil {
			return nil, countErr
		}
		log.Info("counted summary request tokens",
			logger.Int("tokens", tokens),
			logger.Int("limit", s.cfg.TokenLimit),
			logger.Int("articles", len(articles)))
		if tokens > s.cfg.TokenLimit {
			return nil, fmt.Errorf("%w: %d tokens, limit %d", ErrPayloadTooLarge, tokens, s.cfg.TokenLimit)
		}
	}

	if _, err := s.sessions.Ensure(ctx, ref); err != nil {
		return nil, err
	}

	reply, err := s.agent.Run(ctx, ref, req.content)
	if err != nil {
		return nil, err
	}
	publishRequestLog(ctx, s.publisher, s.log, model.RequestLog{
		Kind:      model.RequestLogKindSummary,
		Date:      FormatDate(day),
		AppName:   ref.AppName,
		UserID:    ref.UserID,
		SessionID: ref.SessionID,
		Response:  string(reply.Raw),
		CreatedAt: s.now().UTC(),
	})

	parsed, err := parseAgentSummary(reply.FinalText())
	if err != nil {
		log.Error("agent summary reply rejected", logger.Error(err))
		return nil, err
	}
	summaries, missing, err := req.rehydrate(parsed)
	if err != nil {
		log.Error("agent summary reply rejected", logger.Error(err))
		return nil, err
	}
	if missing > 0 {
		log.Warn("agent left articles out of the summary", logger.Int("missing", missing))
	}

	result, err = s.summaries.Upsert(ctx, day, summaries)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if delErr := s.cache.Delete(ctx, day); delErr != nil {
			log.Warn("invalidate summary cache failed", logger.Error(delErr))
		}
	}

	log.Info("daily summary stored",
		logger.Int("articles", len(articles)),
		logger.Int("categories", len(summaries)),
		logger.Bool("did_upsert", result.DidUpsert))
	return result, nil
}

// Get returns the stored summary for day, reading through the cache.
func (s *SummaryService) Get(ctx context.Context, day time.Time) (*model.DailySummary, error) {
	day = repository.DayStart(day)

	if s.cache != nil {
		doc, ok, err := s.cache.Get(ctx, day)
		switch {
		case err != nil:
			s.log.Warn("read summary cache failed", logger.String("date", FormatDate(day)), logger.Error(err))
		case ok:
			return doc, nil
		}
	}

	doc, err := s.summaries.GetByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrSummaryNotFound
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, day, doc); err != nil {
			s.log.Warn("fill summary cache failed", logger.String("date", FormatDate(day)), logger.Error(err))
		}
	}
	return doc, nil
}

func (s *SummaryService) sessionRef(in SummarizeInput) ai.SessionRef {
	agent := strings.TrimSpace(in.AgentName)
	if agent == "" {
		agent = s.cfg.DefaultAgent
	}
	identity := s.cfg.SystemIdentity
	if in.Identity != nil {
		identity = *in.Identity
	}
	return ai.SessionRef{AppName: agent, UserID: identity.UserID, SessionID: identity.SessionID}
}

func runOutcome(err error) string {
	var callErr *ai.CallError
	var unreachable *ai.UnreachableError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoArticles):
		return "no_articles"
	case errors.Is(err, ErrSummaryInProgress):
		return "in_progress"
	case errors.Is(err, ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, ai.ErrSessionUnavailable):
		return "session_unavailable"
	case errors.Is(err, ErrAgentReplyInvalid), errors.Is(err, ErrUnresolvedArticle):
		return "invalid_reply"
	case errors.As(err, &callErr), errors.As(err, &unreachable):
		return "agent_error"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
