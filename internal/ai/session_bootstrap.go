package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lsm-digest/internal/logger"
)

type BootstrapState string

const (
	StateChecking  BootstrapState = "checking"
	StateCreating  BootstrapState = "creating"
	StateSucceeded BootstrapState = "succeeded"
	StateFailed    BootstrapState = "failed"
)

const DefaultSessionMaxAttempts = 5

// SessionAPI is the part of the agent runtime the bootstrapper needs.
type SessionAPI interface {
	GetSession(ctx context.Context, ref SessionRef) (*Session, error)
	CreateSession(ctx context.Context, ref SessionRef) (*Session, error)
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// AttemptObserver is told about every create attempt.
type AttemptObserver interface {
	ObserveSessionCreateAttempt(success bool)
}

type SessionBootstrapConfig struct {
	MaxAttempts int
	// BackoffUnit is multiplied by 2^attempt after each failed create.
	BackoffUnit time.Duration
	Sleep       Sleeper
	Observer    AttemptObserver
}

// SessionBootstrapper makes sure a session exists on the agent runtime,
// creating it when the probe reports 404. Only creation is retried.
type SessionBootstrapper struct {
	api         SessionAPI
	maxAttempts int
	unit        time.Duration
	sleep       Sleeper
	observer    AttemptObserver
	log         logger.Logger
}

func NewSessionBootstrapper(api SessionAPI, cfg SessionBootstrapConfig, log logger.Logger) *SessionBootstrapper {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultSessionMaxAttempts
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = time.Second
	}
	if cfg.Sleep == nil {
		cfg.Sleep = SleepContext
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &SessionBootstrapper{
		api:         api,
		maxAttempts: cfg.MaxAttempts,
		unit:        cfg.BackoffUnit,
		sleep:       cfg.Sleep,
		observer:    cfg.Observer,
		log:         log,
	}
}

// Ensure runs CHECKING -> CREATING -> ... until SUCCEEDED or FAILED.
// Probe failures other than 404 fail immediately. A failed create is retried
// after 2^attempt backoff units; exhausting the attempts yields an error
// wrapping ErrSessionUnavailable.
func (b *SessionBootstrapper) Ensure(ctx context.Context, ref SessionRef) (*Session, error) {
	log := b.log.With(
		logger.String("app_name", ref.AppName),
		logger.String("user_id", ref.UserID),
		logger.String("session_id", ref.SessionID),
	)

	var (
		state   = StateChecking
		attempt int
		session *Session
		failure error
	)

	for {
		switch state {
		case StateChecking:
			found, err := b.api.GetSession(ctx, ref)
			switch {
			case err == nil:
				log.Info("using existing agent session", stateField(StateSucceeded), logger.Int("attempt", attempt))
				session = found
				state = StateSucceeded
			case errors.Is(err, ErrSessionNotFound):
				log.Info("agent session not found", stateField(StateCreating), logger.Int("attempt", attempt))
				state = StateCreating
			default:
				log.Error("agent session probe failed", stateField(StateFailed), logger.Int("attempt", attempt), logger.Error(err))
				failure = err
				state = StateFailed
			}

		case StateCreating:
			attempt++
			created, err := b.api.CreateSession(ctx, ref)
			if b.observer != nil {
				b.observer.ObserveSessionCreateAttempt(err == nil)
			}
			if err == nil {
				log.Info("created agent session", stateField(StateSucceeded), logger.Int("attempt", attempt))
				session = created
				state = StateSucceeded
				continue
			}

			if attempt >= b.maxAttempts {
				log.Error("agent session create failed, giving up",
					stateField(StateFailed), logger.Int("attempt", attempt), logger.Error(err))
				failure = fmt.Errorf("%w after %d attempts: %w", ErrSessionUnavailable, attempt, err)
				state = StateFailed
				continue
			}

			delay := b.unit * time.Duration(1<<attempt)
			log.Warn("agent session create failed, retrying",
				stateField(StateChecking),
				logger.Int("attempt", attempt),
				logger.Duration("backoff", delay),
				logger.Error(err))
			if sleepErr := b.sleep(ctx, delay); sleepErr != nil {
				failure = fmt.Errorf("%w: interrupted after %d attempts: %w", ErrSessionUnavailable, attempt, sleepErr)
				state = StateFailed
				continue
			}
			state = StateChecking

		case StateSucceeded:
			return session, nil

		case StateFailed:
			return nil, failure
		}
	}
}

func stateField(state BootstrapState) logger.Field {
	return logger.String("state", string(state))
}

func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
