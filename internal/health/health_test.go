package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"pixhistorial/internal/quote"
	"pixhistorial/internal/scheduler"
	"pixhistorial/internal/store"
)

// stubGateway only implements the probe; reads are unused here.
type stubGateway struct {
	pingErr   error
	pingDelay time.Duration
}

func (s *stubGateway) Commit(ctx context.Context, snap quote.Snapshot) error { return nil }

func (s *stubGateway) ReadLatest(ctx context.Context) (quote.Snapshot, bool, error) {
	return quote.Snapshot{}, false, nil
}

func (s *stubGateway) RangeQuery(ctx context.Context, appName string, since, until time.Time, order store.Order) ([]quote.HistoryRecord, error) {
	return nil, nil
}

func (s *stubGateway) Ping(ctx context.Context) error {
	if s.pingDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pingDelay):
		}
	}
	return s.pingErr
}

func newSched(t *testing.T, runner scheduler.CycleRunner) *scheduler.Scheduler {
	t.Helper()
	s, err := scheduler.New("*/15 * * * *", runner, nil)
	if err != nil {
		t.Fatalf("scheduler.New failed: %v", err)
	}
	return s
}

func TestStatus_Reachable(t *testing.T) {
	sched := newSched(t, scheduler.CycleRunnerFunc(func(ctx context.Context) error { return nil }))
	startedAt := time.Now().Add(-time.Minute)

	agg := New(&stubGateway{}, sched, time.Second, startedAt, nil)

	st := agg.Status(context.Background())
	if !st.StorageReachable {
		t.Error("StorageReachable = false, want true")
	}
	if !st.Healthy() {
		t.Error("Healthy() = false, want true")
	}
	if st.Uptime < time.Minute {
		t.Errorf("Uptime = %v, want >= 1m", st.Uptime)
	}
	if !st.LastSuccessfulCollection.IsZero() {
		t.Error("LastSuccessfulCollection should be absent before any cycle")
	}
}

func TestStatus_ProbeFailureReported(t *testing.T) {
	sched := newSched(t, scheduler.CycleRunnerFunc(func(ctx context.Context) error { return nil }))

	agg := New(&stubGateway{pingErr: errors.New("refused")}, sched, time.Second, time.Now(), nil)

	st := agg.Status(context.Background())
	if st.StorageReachable {
		t.Error("StorageReachable = true, want false")
	}
	if st.Healthy() {
		t.Error("Healthy() = true, want false")
	}
}

func TestStatus_ProbeBoundedByTimeout(t *testing.T) {
	sched := newSched(t, scheduler.CycleRunnerFunc(func(ctx context.Context) error { return nil }))

	// Probe hangs well past the timeout; Status must return promptly
	// and report unreachable.
	agg := New(&stubGateway{pingDelay: time.Minute}, sched, 50*time.Millisecond, time.Now(), nil)

	start := time.Now()
	st := agg.Status(context.Background())
	elapsed := time.Since(start)

	if st.StorageReachable {
		t.Error("StorageReachable = true, want false on timeout")
	}
	if elapsed > time.Second {
		t.Errorf("Status took %v, want bounded by probe timeout", elapsed)
	}
}

func TestStatus_ReflectsCycleOutcomes(t *testing.T) {
	boom := errors.New("exhausted")
	fail := true
	sched := newSched(t, scheduler.CycleRunnerFunc(func(ctx context.Context) error {
		if fail {
			return boom
		}
		return nil
	}))

	agg := New(&stubGateway{}, sched, time.Second, time.Now(), nil)

	// Failed cycle: failure recorded, success still absent.
	sched.Trigger(context.Background())
	st := agg.Status(context.Background())
	if st.LastFailure.IsZero() {
		t.Error("LastFailure not reported")
	}
	if st.LastFailureKind != boom.Error() {
		t.Errorf("LastFailureKind = %q, want %q", st.LastFailureKind, boom.Error())
	}
	if !st.LastSuccessfulCollection.IsZero() {
		t.Error("LastSuccessfulCollection should be unchanged by a failed cycle")
	}

	// Successful cycle updates the success timestamp.
	fail = false
	sched.Trigger(context.Background())
	st = agg.Status(context.Background())
	if st.LastSuccessfulCollection.IsZero() {
		t.Error("LastSuccessfulCollection not reported after success")
	}
}
