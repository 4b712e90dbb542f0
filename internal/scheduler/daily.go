package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"lsm-digest/internal/app"
	"lsm-digest/internal/logger"
	"lsm-digest/internal/model"
)

type SummaryRunner interface {
	Summarize(ctx context.Context, in app.SummarizeInput) (*model.UpsertResult, error)
}

// DailySummary triggers the summary of the previous UTC day on a cron
// schedule, using the system identity.
type DailySummary struct {
	cron     *cron.Cron
	parser   cron.Parser
	runner   SummaryRunner
	schedule string
	timeout  time.Duration
	log      logger.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

func NewDailySummary(runner SummaryRunner, schedule string, timeout time.Duration, log logger.Logger) (*DailySummary, error) {
	if log == nil {
		log = logger.NewNop()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, fmt.Errorf("parse summary schedule %q failed: %w", schedule, err)
	}

	d := &DailySummary{
		parser:   parser,
		runner:   runner,
		schedule: schedule,
		timeout:  timeout,
		log:      log.With(logger.String("schedule", schedule)),
		now:      time.Now,
	}
	d.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := d.cron.AddFunc(schedule, d.tick); err != nil {
		return nil, fmt.Errorf("register summary schedule failed: %w", err)
	}
	return d, nil
}

func (d *DailySummary) Start(ctx context.Context) {
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.cron.Start()

	next, _ := d.parser.Parse(d.schedule)
	d.log.Info("daily summary scheduler started", logger.Time("next_run", next.Next(d.now().UTC())))
}

// Stop waits for a running summary to finish.
func (d *DailySummary) Stop() {
	stopped := d.cron.Stop()
	if d.cancel != nil {
		d.cancel()
	}
	<-stopped.Done()
}

func (d *DailySummary) tick() {
	ctx := d.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	_ = d.RunOnce(ctx)
}

// RunOnce summarizes the day before now.
func (d *DailySummary) RunOnce(ctx context.Context) error {
	day := d.now().UTC().AddDate(0, 0, -1)
	log := d.log.With(logger.String("date", app.FormatDate(day)))

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := d.now()
	result, err := d.runner.Summarize(ctx, app.SummarizeInput{Day: day})
	switch {
	case errors.Is(err, app.ErrNoArticles):
		log.Info("scheduled summary skipped, no articles")
		return err
	case errors.Is(err, app.ErrSummaryInProgress):
		log.Info("scheduled summary skipped, run already in progress")
		return err
	case err != nil:
		log.Error("scheduled summary failed", logger.Error(err))
		return err
	}

	log.Info("scheduled summary stored",
		logger.Bool("did_upsert", result.DidUpsert),
		logger.Duration("elapsed", d.now().Sub(start)))
	return nil
}
