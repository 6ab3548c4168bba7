package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/CZERTAINLY/contribart/internal/model"
	"github.com/CZERTAINLY/contribart/internal/service"

	"github.com/stretchr/testify/require"
)

type chanSink struct {
	results chan model.TaskResult
}

func (s chanSink) Write(_ context.Context, r model.TaskResult) error {
	s.results <- r
	return nil
}

type closeSink struct {
	mx     sync.Mutex
	closed bool
}

func (s *closeSink) Write(context.Context, model.TaskResult) error { return nil }

func (s *closeSink) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.closed = true
	return nil
}

func dailySchedule() model.Schedule {
	return model.Schedule{Enabled: true, Cron: service.DailyCron, Timezone: "UTC"}
}

func TestNewScheduler_Fail(t *testing.T) {
	t.Parallel()
	daily := func(context.Context) (model.TaskResult, error) { return model.TaskResult{}, nil }

	_, err := service.NewScheduler(t.Context(), model.Schedule{Cron: "* * 32 * *"}, daily)
	require.Error(t, err)
	require.ErrorContains(t, err, "parsing schedule.cron")

	_, err = service.NewScheduler(t.Context(), model.Schedule{Cron: service.DailyCron, Timezone: "Mars/Olympus"}, daily)
	require.Error(t, err)
	require.ErrorContains(t, err, "parsing schedule.timezone")

	_, err = service.NewScheduler(t.Context(), dailySchedule(), nil)
	require.Error(t, err)
}

func TestScheduler(t *testing.T) {
	t.Parallel()
	want := model.TaskResult{
		Text:     "TRIGGER",
		RepoPath: "/srv/art",
		Branch:   "main",
		Summary:  model.Summary{"addedCommits": float64(42)},
	}
	var calls atomic.Int32
	daily := func(ctx context.Context) (model.TaskResult, error) {
		calls.Add(1)
		return want, nil
	}

	sink := chanSink{results: make(chan model.TaskResult, 1)}
	closer := &closeSink{}
	sch, err := service.NewScheduler(t.Context(), dailySchedule(), daily, sink, closer)
	require.NoError(t, err)
	sch.Start()

	require.Eventually(t, func() bool {
		next, err := sch.NextRun()
		return err == nil && !next.IsZero()
	}, 2*time.Second, 10*time.Millisecond)
	next, err := sch.NextRun()
	require.NoError(t, err)
	require.Equal(t, 6, next.Hour())
	require.Equal(t, 0, next.Minute())
	require.True(t, next.After(time.Now()))

	require.NoError(t, sch.RunNow())
	select {
	case got := <-sink.results:
		require.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for the scheduled result")
	}
	require.Equal(t, int32(1), calls.Load())

	require.NoError(t, sch.Shutdown())
	closer.mx.Lock()
	require.True(t, closer.closed)
	closer.mx.Unlock()
}

func TestSchedulerFailedRun(t *testing.T) {
	t.Parallel()
	done := make(chan struct{})
	daily := func(context.Context) (model.TaskResult, error) {
		defer close(done)
		return model.TaskResult{}, errors.New("exit status 1")
	}
	sink := chanSink{results: make(chan model.TaskResult, 1)}
	sch, err := service.NewScheduler(t.Context(), dailySchedule(), daily, sink)
	require.NoError(t, err)
	sch.Start()
	require.NoError(t, sch.RunNow())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for the scheduled run")
	}
	require.NoError(t, sch.Shutdown())
	require.Empty(t, sink.results)
}

func TestSchedulerDo(t *testing.T) {
	t.Parallel()
	task := fakeTask(t, okGenerator)
	sink := chanSink{results: make(chan model.TaskResult, 1)}
	sch, err := service.NewScheduler(t.Context(), dailySchedule(), task.Daily, sink)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	errs := make(chan error, 1)
	go func() {
		errs <- sch.Do(ctx)
	}()

	require.Eventually(t, func() bool {
		return sch.RunNow() == nil
	}, 2*time.Second, 50*time.Millisecond)

	select {
	case got := <-sink.results:
		require.Equal(t, "TRIGGER", got.Text)
		require.Equal(t, model.Summary{"addedCommits": float64(42)}, got.Summary)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for the scheduled result")
	}

	cancel()
	require.NoError(t, <-errs)
}
