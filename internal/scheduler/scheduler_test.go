package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_OverlapSkipped(t *testing.T) {
	var starts atomic.Int32
	started := make(chan struct{})
	block := make(chan struct{})

	runner := CycleRunnerFunc(func(ctx context.Context) error {
		starts.Add(1)
		close(started)
		<-block
		return nil
	})

	s, err := New("*/15 * * * *", runner, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	defer s.cancel()

	s.fire()
	<-started

	// A second firing while the cycle is running must not start
	// another cycle.
	s.fire()

	if got := starts.Load(); got != 1 {
		t.Fatalf("starts = %d, want 1", got)
	}

	close(block)
	s.wg.Wait()

	st := s.Status()
	if st.Running {
		t.Error("scheduler still reports running after cycle completion")
	}
	if st.LastSuccess.IsZero() {
		t.Error("LastSuccess not recorded")
	}
}

func TestScheduler_TriggerRefusedWhileRunning(t *testing.T) {
	started := make(chan struct{})
	block := make(chan struct{})

	runner := CycleRunnerFunc(func(ctx context.Context) error {
		close(started)
		<-block
		return nil
	})

	s, err := New("*/15 * * * *", runner, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	go s.Trigger(context.Background())
	<-started

	if err := s.Trigger(context.Background()); !errors.Is(err, ErrCycleRunning) {
		t.Errorf("Trigger = %v, want ErrCycleRunning", err)
	}

	close(block)
}

func TestScheduler_FailureRecorded(t *testing.T) {
	boom := errors.New("fetch exploded")
	runner := CycleRunnerFunc(func(ctx context.Context) error {
		return boom
	})

	s, err := New("*/15 * * * *", runner, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.Trigger(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Trigger = %v, want %v", err, boom)
	}

	st := s.Status()
	if st.LastFailure.IsZero() {
		t.Error("LastFailure not recorded")
	}
	if st.LastFailureKind != boom.Error() {
		t.Errorf("LastFailureKind = %q, want %q", st.LastFailureKind, boom.Error())
	}
	if !st.LastSuccess.IsZero() {
		t.Error("LastSuccess should be untouched by a failed cycle")
	}
}

func TestScheduler_StopDoesNotCancelInFlightCycle(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	cycleErr := make(chan error, 1)

	runner := CycleRunnerFunc(func(ctx context.Context) error {
		close(started)
		<-release
		cycleErr <- ctx.Err()
		return nil
	})

	s, err := New("*/15 * * * *", runner, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	s.fire()
	<-started

	// Deliver the shutdown signal while the cycle is in flight, then
	// let the cycle observe its context.
	s.cancel()
	close(release)

	if err := <-cycleErr; err != nil {
		t.Errorf("cycle context cancelled by shutdown: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	runner := CycleRunnerFunc(func(ctx context.Context) error { return nil })

	s, err := New("*/15 * * * *", runner, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}
