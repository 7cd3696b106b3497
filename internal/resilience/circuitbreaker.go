// Package resilience protects the transcription engine boundary.
//
// [Breaker] is a three-state circuit breaker (closed → open → half-open)
// that stops the pipeline from hammering an engine that is failing hard,
// e.g. a whisper server that lost its model or a hosted API rejecting every
// request. [EngineFallback] pairs a primary engine with a fallback behind
// per-engine breakers, so a tripped primary is bypassed automatically.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Do] while the breaker is open and
// the cool-down has not yet elapsed.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// BreakerState is a [Breaker]'s operating mode.
type BreakerState int

const (
	// BreakerClosed forwards every call; consecutive failures are counted.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects calls with [ErrBreakerOpen] until the cool-down
	// elapses.
	BreakerOpen

	// BreakerHalfOpen lets a bounded number of probe calls through; enough
	// successes close the breaker, any failure re-opens it.
	BreakerHalfOpen
)

// String returns the human-readable name of the state.
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

// BreakerConfig holds tuning knobs for a [Breaker].
type BreakerConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// MaxFailures is the number of consecutive failures that opens the
	// breaker. Default: 5.
	MaxFailures int

	// CoolDown is how long the breaker stays open before probing again.
	// Default: 30s.
	CoolDown time.Duration

	// ProbeBudget is the number of half-open probe calls allowed before the
	// breaker decides whether to close. Default: 3.
	ProbeBudget int
}

// Breaker is a three-state circuit breaker. Safe for concurrent use.
type Breaker struct {
	name        string
	maxFailures int
	coolDown    time.Duration
	probeBudget int

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	probes      int
	probeFails  int
}

// NewBreaker creates a [Breaker]; zero-value config fields get defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	if cfg.ProbeBudget <= 0 {
		cfg.ProbeBudget = 3
	}
	return &Breaker{
		name:        cfg.Name,
		maxFailures: cfg.MaxFailures,
		coolDown:    cfg.CoolDown,
		probeBudget: cfg.ProbeBudget,
	}
}

// Do runs fn if the breaker allows it, then feeds the outcome back into the
// state machine. In the open state fn is not called and [ErrBreakerOpen] is
// returned.
func (b *Breaker) Do(fn func() error) error {
	probing, err := b.allow()
	if err != nil {
		return err
	}

	err = fn()
	b.record(err == nil, probing)
	return err
}

// allow decides whether a call may proceed, transitioning open → half-open
// when the cool-down has elapsed. The returned flag marks the call as a
// half-open probe for [Breaker.record].
func (b *Breaker) allow() (probing bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if time.Since(b.lastFailure) < b.coolDown {
			return false, ErrBreakerOpen
		}
		b.state = BreakerHalfOpen
		b.probes = 0
		b.probeFails = 0
		slog.Info("circuit breaker transitioning to half-open", "name", b.name)

	case BreakerHalfOpen:
		if b.probes >= b.probeBudget {
			return false, ErrBreakerOpen
		}
	}

	if b.state == BreakerHalfOpen {
		b.probes++
		return true, nil
	}
	return false, nil
}

// record feeds a call outcome back into the state machine.
func (b *Breaker) record(ok, probing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !ok {
		b.lastFailure = time.Now()
		if probing {
			// Any probe failure re-opens immediately.
			b.probeFails++
			b.state = BreakerOpen
			b.failures = b.maxFailures
			slog.Warn("circuit breaker re-opened from half-open", "name", b.name)
			return
		}
		b.failures++
		if b.failures >= b.maxFailures {
			b.state = BreakerOpen
			slog.Warn("circuit breaker opened",
				"name", b.name, "consecutive_failures", b.failures)
		}
		return
	}

	if probing {
		if b.probes-b.probeFails >= b.probeBudget {
			b.state = BreakerClosed
			b.failures = 0
			b.probes = 0
			b.probeFails = 0
			slog.Info("circuit breaker closed after successful probes", "name", b.name)
		}
		return
	}
	b.failures = 0
}

// State returns the breaker's current state. An open breaker whose cool-down
// has elapsed reports [BreakerHalfOpen]; the actual transition happens on the
// next [Breaker.Do] call.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerOpen && time.Since(b.lastFailure) >= b.coolDown {
		return BreakerHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to [BreakerClosed], clearing all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = BreakerClosed
	b.failures = 0
	b.probes = 0
	b.probeFails = 0
	slog.Info("circuit breaker manually reset", "name", b.name)
}
