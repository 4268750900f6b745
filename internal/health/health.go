// Package health aggregates storage reachability, collection outcomes,
// and process uptime into a single status.
package health

import (
	"context"
	"log/slog"
	"time"

	"pixhistorial/internal/scheduler"
	"pixhistorial/internal/store"
)

// State is the transient health snapshot, computed on every read and
// never persisted.
type State struct {
	StorageReachable         bool
	StorageLatency           time.Duration
	LastSuccessfulCollection time.Time // zero when absent
	LastFailure              time.Time // zero when absent
	LastFailureKind          string
	CycleRunning             bool
	Uptime                   time.Duration
}

// Healthy reports whether the service should answer as healthy.
func (s State) Healthy() bool {
	return s.StorageReachable
}

// Aggregator computes health state on demand. It probes storage with
// its own bounded timeout and reads the scheduler's outcome record, so
// a status call never blocks on an in-progress collection cycle.
type Aggregator struct {
	gateway      store.Gateway
	sched        *scheduler.Scheduler
	probeTimeout time.Duration
	startedAt    time.Time
	logger       *slog.Logger
}

// New creates an Aggregator. startedAt is the process start time.
func New(gateway store.Gateway, sched *scheduler.Scheduler, probeTimeout time.Duration, startedAt time.Time, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		gateway:      gateway,
		sched:        sched,
		probeTimeout: probeTimeout,
		startedAt:    startedAt,
		logger:       logger,
	}
}

// Status computes the current health state. A storage probe failure is
// reported, never raised.
func (a *Aggregator) Status(ctx context.Context) State {
	probeCtx, cancel := context.WithTimeout(ctx, a.probeTimeout)
	defer cancel()

	probeStart := time.Now()
	err := a.gateway.Ping(probeCtx)
	latency := time.Since(probeStart)
	if err != nil {
		a.logger.Warn("storage probe failed", "err", err, "latency", latency)
	}

	st := a.sched.Status()

	return State{
		StorageReachable:         err == nil,
		StorageLatency:           latency,
		LastSuccessfulCollection: st.LastSuccess,
		LastFailure:              st.LastFailure,
		LastFailureKind:          st.LastFailureKind,
		CycleRunning:             st.Running,
		Uptime:                   time.Since(a.startedAt),
	}
}
