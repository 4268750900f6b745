package retry

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a cycle without
// attempting the underlying operation.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerState is the tagged state of the circuit breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breakerCore is the pure state of the breaker: the tagged variant plus
// the consecutive-exhaustion count. Transitions below are pure
// functions of (core, now) so they can be tested without a clock.
type breakerCore struct {
	state       BreakerState
	openUntil   time.Time // valid when state == BreakerOpen
	consecutive int       // consecutive exhausted cycles while closed
}

// allowTransition decides whether a cycle may proceed. An open breaker
// whose cool-down has elapsed moves to half-open and lets one probe
// through.
func allowTransition(c breakerCore, now time.Time) (breakerCore, bool) {
	switch c.state {
	case BreakerOpen:
		if now.Before(c.openUntil) {
			return c, false
		}
		c.state = BreakerHalfOpen
		return c, true
	default:
		return c, true
	}
}

// successTransition records a successful cycle: any state returns to
// closed and the exhaustion count resets.
func successTransition(c breakerCore) breakerCore {
	return breakerCore{state: BreakerClosed}
}

// exhaustionTransition records a fully-exhausted cycle. Reaching the
// threshold while closed, or failing the half-open probe, opens the
// breaker until now+cooldown.
func exhaustionTransition(c breakerCore, threshold int, cooldown time.Duration, now time.Time) breakerCore {
	switch c.state {
	case BreakerClosed:
		c.consecutive++
		if c.consecutive >= threshold {
			return breakerCore{state: BreakerOpen, openUntil: now.Add(cooldown), consecutive: c.consecutive}
		}
		return c
	case BreakerHalfOpen:
		return breakerCore{state: BreakerOpen, openUntil: now.Add(cooldown), consecutive: c.consecutive}
	default:
		return c
	}
}

// failureTransition records a terminal, non-exhaustion cycle failure.
// While closed it does not count toward the threshold, but a failed
// half-open probe re-opens the breaker and restarts the cool-down,
// whatever kind of failure ended the probe.
func failureTransition(c breakerCore, cooldown time.Duration, now time.Time) breakerCore {
	if c.state == BreakerHalfOpen {
		return breakerCore{state: BreakerOpen, openUntil: now.Add(cooldown), consecutive: c.consecutive}
	}
	return c
}

// Breaker gates collection cycles after repeated exhausted retry runs.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu   sync.Mutex
	core breakerCore
}

// NewBreaker creates a closed breaker. threshold is the number of
// consecutive exhausted cycles that opens it; cooldown is how long it
// stays open before allowing a probe.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether the next cycle may run. It returns
// ErrCircuitOpen while the breaker is open and inside its cool-down.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	core, ok := allowTransition(b.core, b.now())
	b.core = core
	if !ok {
		return ErrCircuitOpen
	}
	return nil
}

// RecordSuccess closes the breaker and resets the exhaustion count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.core = successTransition(b.core)
}

// RecordExhaustion counts a fully-exhausted cycle and opens the breaker
// once the threshold is reached.
func (b *Breaker) RecordExhaustion() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.core = exhaustionTransition(b.core, b.threshold, b.cooldown, b.now())
}

// RecordFailure records a terminal cycle failure that was not a retry
// exhaustion. It re-opens the breaker only from half-open, so a single
// bad probe restarts the cool-down.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.core = failureTransition(b.core, b.cooldown, b.now())
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.core.state
}
