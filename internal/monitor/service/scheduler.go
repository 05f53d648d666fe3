package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"tradesignal/internal/monitor/config"
	"tradesignal/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler invokes the decision engine on the configured schedule. One
// cycle runs at a time; the next tick is computed only after the current
// cycle returns, so cycles never overlap.
type Scheduler struct {
	log          *logger.Logger
	engine       DecisionEngine
	schedule     cron.Schedule
	cycleTimeout time.Duration
	gracePeriod  time.Duration
}

// NewScheduler parses the check schedule (cron expression or descriptor
// such as "@every 10m") and creates a Scheduler.
func NewScheduler(cfg *config.Config, log *logger.Logger, engine DecisionEngine) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(cfg.Monitor.CheckSchedule)
	if err != nil {
		return nil, fmt.Errorf("invalid check schedule %q: %w", cfg.Monitor.CheckSchedule, err)
	}
	return &Scheduler{
		log:          log,
		engine:       engine,
		schedule:     schedule,
		cycleTimeout: cfg.Monitor.CycleTimeout,
		gracePeriod:  cfg.Monitor.ShutdownGracePeriod,
	}, nil
}

// Run blocks until the context is canceled. The first cycle starts
// immediately; a failure or panic inside a cycle is logged and the loop
// proceeds to the next tick.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("Scheduler started")

	s.runCycle(ctx)

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("Scheduler stopped")
			return
		case <-timer.C:
			s.runCycle(ctx)
		}

		if ctx.Err() != nil {
			s.log.Info("Scheduler stopped")
			return
		}
	}
}

// runCycle executes one engine cycle under the cycle timeout. Shutdown does
// not cancel a running cycle outright: the cycle is detached from the
// parent's cancellation and abandoned only after the grace period, so no
// decision or alert is left half-written.
func (s *Scheduler) runCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cycleTimeout)
	defer cancel()

	stopWatcher := make(chan struct{})
	defer close(stopWatcher)
	go func() {
		select {
		case <-ctx.Done():
			graceTimer := time.NewTimer(s.gracePeriod)
			defer graceTimer.Stop()
			select {
			case <-graceTimer.C:
				cancel()
			case <-stopWatcher:
			}
		case <-stopWatcher:
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Cycle panicked",
				logger.Field("panic", r),
				logger.StringField("stack", string(debug.Stack())),
			)
		}
	}()

	if err := s.engine.RunCycle(cycleCtx); err != nil {
		s.log.Error("Cycle finished with error", logger.ErrorField(err))
	}
}
