package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocron "github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	"github.com/CZERTAINLY/contribart/internal/model"
)

// DailyFunc is the unit fired by the Scheduler, usually Task.Daily.
type DailyFunc func(ctx context.Context) (model.TaskResult, error)

// Scheduler fires a DailyFunc on a cron expression and publishes each
// successful result to all sinks.
type Scheduler struct {
	scheduler gocron.Scheduler
	job       gocron.Job
	daily     DailyFunc
	sinks     []model.Sink
	location  *time.Location
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewScheduler(ctx context.Context, cfg model.Schedule, daily DailyFunc, sinks ...model.Sink) (*Scheduler, error) {
	if daily == nil {
		return nil, errors.New("daily func is nil")
	}
	if _, err := model.ParseCron(cfg.Cron); err != nil {
		return nil, fmt.Errorf("parsing schedule.cron: %w", err)
	}
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("parsing schedule.timezone: %w", err)
		}
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("initializing gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	sch := &Scheduler{
		scheduler: s,
		daily:     daily,
		sinks:     sinks,
		location:  loc,
		ctx:       ctx,
		cancel:    cancel,
	}
	job, err := s.NewJob(
		gocron.CronJob(cfg.Cron, false),
		gocron.NewTask(sch.fire),
		gocron.WithName(DailyTaskID),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = s.Shutdown()
		return nil, fmt.Errorf("initializing gocron job: %w", err)
	}
	sch.job = job
	slog.DebugContext(ctx, "scheduler configured", "cron", cfg.Cron, "timezone", loc.String())
	return sch, nil
}

// Start starts the scheduler without blocking.
func (s *Scheduler) Start() {
	s.scheduler.Start()
}

// Do starts the scheduler and blocks until ctx is canceled.
func (s *Scheduler) Do(ctx context.Context) error {
	s.Start()
	if next, err := s.job.NextRun(); err == nil {
		slog.InfoContext(ctx, "scheduler started", "job", DailyTaskID, "next_run", next.In(s.location))
	}
	<-ctx.Done()
	return s.Shutdown()
}

// RunNow fires the job out of schedule. The scheduler must be started.
func (s *Scheduler) RunNow() error {
	return s.job.RunNow()
}

// NextRun returns the next activation time in the scheduler time zone.
func (s *Scheduler) NextRun() (time.Time, error) {
	next, err := s.job.NextRun()
	if err != nil {
		return time.Time{}, err
	}
	return next.In(s.location), nil
}

// Shutdown stops the scheduler, cancels a running job and closes the sinks.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	err := s.scheduler.Shutdown()
	if err != nil {
		err = fmt.Errorf("shutting down gocron: %w", err)
	}
	for _, sink := range s.sinks {
		if closer, ok := sink.(model.SinkCloser); ok {
			if cerr := closer.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}
	}
	s.sinks = nil
	return err
}

func (s *Scheduler) fire() {
	ctx := s.ctx
	result, err := s.daily(ctx)
	if err != nil {
		// the task already logged the details, nothing is retried
		slog.ErrorContext(ctx, "scheduled run failed", "job", DailyTaskID, "error", err)
		return
	}
	if err := s.publish(ctx, result); err != nil {
		slog.ErrorContext(ctx, "publishing result failed", "job", DailyTaskID, "error", err)
	}
}

func (s *Scheduler) publish(ctx context.Context, result model.TaskResult) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sink := range s.sinks {
		g.Go(func() error {
			if err := sink.Write(ctx, result); err != nil {
				return fmt.Errorf("sink %T: %w", sink, err)
			}
			return nil
		})
	}
	return g.Wait()
}
