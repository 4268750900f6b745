// Package scheduler fires collection cycles on a cron-aligned cadence
// and guarantees at most one cycle runs at a time.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrCycleRunning is returned by Trigger when a cycle is in flight.
var ErrCycleRunning = errors.New("collection cycle already running")

// CycleRunner runs one collection cycle to completion.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// CycleRunnerFunc is a function adapter for CycleRunner.
type CycleRunnerFunc func(ctx context.Context) error

func (f CycleRunnerFunc) RunCycle(ctx context.Context) error { return f(ctx) }

// Status is the scheduler state exposed to the health aggregator.
type Status struct {
	Running         bool
	LastSuccess     time.Time // zero when no cycle has succeeded yet
	LastFailure     time.Time // zero when no cycle has failed yet
	LastFailureKind string    // most recent failure, for observability
	NextFire        time.Time
}

// Scheduler owns the single "is a cycle running" flag and the outcome
// record. Independent schedulers can be instantiated for tests; there
// is no ambient global.
type Scheduler struct {
	schedule cron.Schedule
	runner   CycleRunner
	logger   *slog.Logger

	mu          sync.Mutex
	running     bool
	lastSuccess time.Time
	lastFailure time.Time
	lastKind    string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler firing per the cron expression.
func New(expr string, runner CycleRunner, logger *slog.Logger) (*Scheduler, error) {
	sched, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		schedule: sched,
		runner:   runner,
		logger:   logger,
	}, nil
}

// Start begins the firing loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("scheduler started",
		"next_fire", s.schedule.Next(time.Now()),
	)
	return nil
}

// Stop shuts down the firing loop. An in-flight cycle is not cancelled
// mid-way; Stop waits for it up to the context deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run sleeps until each cron boundary and fires.
func (s *Scheduler) run() {
	defer s.wg.Done()

	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.fire()
		}
	}
}

// fire starts a cycle unless one is already running, in which case the
// firing is skipped.
func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("cycle still running, skipping this firing")
		return
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// The cycle runs on a context detached from the stop signal,
		// so shutdown waits for it instead of aborting it mid-fetch.
		err := s.runner.RunCycle(context.WithoutCancel(s.ctx))
		s.finish(err)
	}()
}

// Trigger runs one cycle synchronously, outside the cron cadence. It
// refuses to overlap an in-flight cycle.
func (s *Scheduler) Trigger(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrCycleRunning
	}
	s.running = true
	s.mu.Unlock()

	err := s.runner.RunCycle(ctx)
	s.finish(err)
	return err
}

// finish transitions back to idle and records the outcome.
func (s *Scheduler) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	now := time.Now().UTC()
	if err != nil {
		s.lastFailure = now
		s.lastKind = err.Error()
		s.logger.Error("collection cycle failed", "err", err)
		return
	}
	s.lastSuccess = now
}

// Status returns the current scheduler state. It never blocks on an
// in-progress cycle.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:         s.running,
		LastSuccess:     s.lastSuccess,
		LastFailure:     s.lastFailure,
		LastFailureKind: s.lastKind,
		NextFire:        s.schedule.Next(time.Now()),
	}
}
