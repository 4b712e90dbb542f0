package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"lsm-digest/internal/ai"
	appsvc "lsm-digest/internal/app"
	"lsm-digest/internal/cache"
	"lsm-digest/internal/config"
	"lsm-digest/internal/logger"
	"lsm-digest/internal/metrics"
	mongoClient "lsm-digest/internal/platform/mongo"
	rabbitmqClient "lsm-digest/internal/platform/rabbitmq"
	redisClient "lsm-digest/internal/platform/redis"
	"lsm-digest/internal/repository"
	"lsm-digest/internal/scheduler"
	"lsm-digest/internal/worker"
)

type App struct {
	Config  *config.Config
	Logger  logger.Logger
	Metrics *metrics.Metrics

	Mongo            *mongo.Client
	Redis            *redis.Client
	MQConn           *amqp.Connection
	RequestLogWorker *worker.RequestLogWorker
	Scheduler        *scheduler.DailySummary

	ArticleService *appsvc.ArticleService
	ChatService    *appsvc.ChatService
	SummaryService *appsvc.SummaryService

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log, err := logger.New(logger.Config{Level: cfg.App.LogLevel, Development: cfg.IsDev()})
	if err != nil {
		return nil, fmt.Errorf("create logger failed: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    log,
		Metrics:   metrics.New(),
		StartedAt: time.Now(),
	}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config

	mongoCli, err := mongoClient.New(ctx, cfg.Mongo.URI)
	if err != nil {
		return err
	}
	a.Mongo = mongoCli
	db := mongoCli.Database(cfg.Mongo.DB)

	articleRepo := repository.NewArticleRepository(db, cfg.Mongo.ArticleCollection)
	summaryRepo := repository.NewSummaryRepository(db, cfg.Mongo.SummaryCollection)
	requestLogRepo := repository.NewRequestLogRepository(db, cfg.Mongo.RequestLogCollection)
	if err := summaryRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	var summaryCache appsvc.SummaryCache
	if cfg.Redis.Addr != "" {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		a.Redis = redisCli
		summaryCache = cache.NewSummaryCache(redisCli, cfg.Summary.CacheTTL(), cfg.Summary.LockTTL())
	} else {
		a.Logger.Warn("redis disabled, summary cache and run lock are off")
	}

	var publisher appsvc.RequestLogPublisher
	if cfg.RabbitMQ.URL != "" {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.App.Name)
		if err != nil {
			return err
		}
		a.MQConn = mqConn
		publisher = rabbitmqClient.NewRequestLogPublisher(mqConn, cfg.RabbitMQ.RequestLogQueue)

		a.RequestLogWorker = worker.NewRequestLogWorker(mqConn, requestLogRepo, cfg.RabbitMQ.RequestLogQueue, a.Logger)
		if err := a.RequestLogWorker.Start(ctx); err != nil {
			return fmt.Errorf("start request log worker failed: %w", err)
		}
	} else {
		a.Logger.Warn("rabbitmq disabled, agent replies are not audited")
	}

	tokens, err := newTokenCounter(ctx, cfg.GCP, a.Logger)
	if err != nil {
		return err
	}

	adk := ai.NewADKClient(ai.ADKClientConfig{
		BaseURL:        cfg.ADK.BaseURL,
		RequestTimeout: cfg.ADK.RequestTimeout(),
		RunTimeout:     cfg.ADK.RunTimeout(),
		Observer:       a.Metrics,
	})
	sessions := ai.NewSessionBootstrapper(adk, ai.SessionBootstrapConfig{
		MaxAttempts: cfg.ADK.SessionMaxAttempts,
		BackoffUnit: time.Second,
		Observer:    a.Metrics,
	}, a.Logger.With(logger.String("component", "session_bootstrap")))

	a.ArticleService = appsvc.NewArticleService(articleRepo, a.Logger)
	a.ChatService = appsvc.NewChatService(sessions, adk, publisher, a.Logger)
	a.SummaryService = appsvc.NewSummaryService(appsvc.SummaryServiceDeps{
		Articles:  articleRepo,
		Summaries: summaryRepo,
		Sessions:  sessions,
		Agent:     adk,
		Tokens:    tokens,
		Cache:     summaryCache,
		Publisher: publisher,
		Observer:  a.Metrics,
	}, appsvc.SummaryServiceConfig{
		DefaultAgent: cfg.ADK.DefaultAgent,
		SystemIdentity: appsvc.Identity{
			UserID:    cfg.ADK.SystemUsername,
			SessionID: cfg.ADK.SystemSessionID,
		},
		SystemPrompt: cfg.Summary.SystemPrompt,
		TokenLimit:   cfg.Summary.TokenLimit,
	}, a.Logger.With(logger.String("component", "summary")))

	if cfg.Summary.Schedule != "" {
		a.Scheduler, err = scheduler.NewDailySummary(a.SummaryService, cfg.Summary.Schedule, cfg.ADK.RunTimeout()+time.Minute, a.Logger)
		if err != nil {
			return err
		}
		a.Scheduler.Start(ctx)
	}
	return nil
}

// newTokenCounter prefers Vertex AI token counting and falls back to the
// character heuristic when no project is configured.
func newTokenCounter(ctx context.Context, cfg config.GCPConfig, log logger.Logger) (ai.TokenCounter, error) {
	if cfg.ProjectID == "" {
		log.Info("GCP project not set, estimating tokens from characters")
		return ai.HeuristicTokenCounter{}, nil
	}
	counter, err := ai.NewGenAITokenCounter(ctx, cfg.ProjectID, cfg.Region, cfg.ModelID)
	if err != nil {
		return nil, err
	}
	return counter, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.RequestLogWorker != nil {
		a.RequestLogWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Mongo.Disconnect(ctx); err != nil {
			closeErr = err
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
