// Package collector drives one collection cycle: fetch the quote
// payload under the retry policy, normalize it, and commit the
// resulting snapshot.
package collector

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"pixhistorial/internal/quote"
	"pixhistorial/internal/retry"
	"pixhistorial/internal/source"
	"pixhistorial/internal/store"
)

// Config holds cycle settings.
type Config struct {
	MaxAttempts      int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	JitterFraction   float64
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Collector runs collection cycles. The scheduler serializes calls to
// RunCycle; the collector itself keeps no cycle-concurrency state.
type Collector struct {
	client  *source.Client
	gateway store.Gateway
	policy  retry.Policy
	breaker *retry.Breaker
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Collector.
func New(cfg Config, client *source.Client, gateway store.Gateway, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		client:  client,
		gateway: gateway,
		policy: retry.Policy{
			MaxAttempts:    cfg.MaxAttempts,
			BaseDelay:      cfg.BaseDelay,
			MaxDelay:       cfg.MaxDelay,
			JitterFraction: cfg.JitterFraction,
			Logger:         logger,
		},
		breaker: retry.NewBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
		logger:  logger,
		now:     time.Now,
	}
}

// RunCycle executes one collection cycle. Retryable fetch failures are
// contained by the retry policy; any error returned here is terminal
// for this cycle and leaves the committed data untouched.
func (c *Collector) RunCycle(ctx context.Context) error {
	cycleID := uuid.NewString()
	logger := c.logger.With("cycle_id", cycleID)
	start := c.now()

	if err := c.breaker.Allow(); err != nil {
		logger.Warn("cycle skipped", "breaker", c.breaker.State().String())
		return err
	}

	entries, err := retry.Do(ctx, c.policy, c.client.Fetch)
	if err != nil {
		if retry.IsExhausted(err) {
			c.breaker.RecordExhaustion()
		} else {
			c.breaker.RecordFailure()
		}
		return err
	}

	result, err := quote.Normalize(entries, c.now())
	if err != nil {
		c.breaker.RecordFailure()
		logger.Error("payload rejected", "err", err)
		return err
	}
	if result.Rejected > 0 {
		logger.Warn("dropped invalid entries", "rejected", result.Rejected)
	}

	if err := c.gateway.Commit(ctx, result.Snapshot); err != nil {
		c.breaker.RecordFailure()
		return err
	}

	c.breaker.RecordSuccess()
	logger.Info("collection cycle complete",
		"quotes", len(result.Snapshot.Quotes),
		"rejected", result.Rejected,
		"duration", time.Since(start),
	)
	return nil
}

// BreakerState exposes the circuit breaker state for observability.
func (c *Collector) BreakerState() retry.BreakerState {
	return c.breaker.State()
}
