package service

import (
	"context"
	"testing"
	"time"

	"tradesignal/internal/monitor/config"
	"tradesignal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	calls chan struct{}
	panic bool
}

func (e *stubEngine) RunCycle(ctx context.Context) error {
	e.calls <- struct{}{}
	if e.panic {
		panic("boom")
	}
	return nil
}

func newSchedulerFixture(t *testing.T, schedule string, engine DecisionEngine) *Scheduler {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Monitor.CheckSchedule = schedule
	cfg.Monitor.CycleTimeout = time.Minute
	cfg.Monitor.ShutdownGracePeriod = 10 * time.Millisecond

	s, err := NewScheduler(cfg, log, engine)
	require.NoError(t, err)
	return s
}

func TestNewSchedulerRejectsInvalidSchedule(t *testing.T) {
	log, err := logger.New("error", "console")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Monitor.CheckSchedule = "not a schedule"

	_, err = NewScheduler(cfg, log, &stubEngine{})
	assert.Error(t, err)
}

func TestSchedulerRunsFirstCycleImmediately(t *testing.T) {
	engine := &stubEngine{calls: make(chan struct{}, 1)}
	s := newSchedulerFixture(t, "@every 1h", engine)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	select {
	case <-engine.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not run immediately")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}

func TestSchedulerSurvivesCyclePanic(t *testing.T) {
	engine := &stubEngine{calls: make(chan struct{}, 1), panic: true}
	s := newSchedulerFixture(t, "@every 1h", engine)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	select {
	case <-engine.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("cycle did not run")
	}

	// The panic must be contained inside the cycle; the scheduler keeps
	// running until canceled.
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not recover from cycle panic")
	}
}
