// Package resilience shields the capture pipeline from flaky speech backends.
//
// The central type is [Breaker], a three-state circuit breaker
// (closed → open → half-open) that stops the front desk from hammering an STT
// service that keeps refusing sessions. [Chain] composes a primary backend with
// ordered fallbacks, each guarded by its own breaker, so a dead primary is
// bypassed in favour of a healthy standby.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Do] when the breaker is open and the
// cool-down has not yet elapsed.
var ErrBreakerOpen = errors.New("resilience: breaker is open")

// State represents the current operating mode of a [Breaker].
type State int

const (
	// StateClosed is the normal operating state. All calls are forwarded.
	StateClosed State = iota

	// StateOpen means the breaker tripped after consecutive failures. Calls
	// are rejected with [ErrBreakerOpen] until the cool-down elapses.
	StateOpen

	// StateHalfOpen is the probe state entered after the cool-down. A limited
	// number of calls are let through; if they succeed the breaker closes,
	// otherwise it re-opens.
	StateHalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds tuning knobs for a [Breaker].
type BreakerConfig struct {
	// Name is a human-readable label used in log messages, typically the STT
	// backend name ("deepgram", "whisper").
	Name string

	// MaxFailures is the number of consecutive failures in the closed state
	// before the breaker opens. Default: 5.
	MaxFailures int

	// CoolDown is how long the breaker stays open before transitioning to
	// half-open. Default: 30s.
	CoolDown time.Duration

	// ProbeMax is the maximum number of probe calls allowed in the half-open
	// state before the breaker decides whether to close or re-open. Default: 3.
	ProbeMax int

	// Logger receives state-transition events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Breaker implements the three-state circuit breaker pattern.
// It is safe for concurrent use from multiple goroutines.
type Breaker struct {
	name     string
	maxFails int
	coolDown time.Duration
	probeMax int
	logger   *slog.Logger

	mu          sync.Mutex
	state       State
	consecutive int
	lastFailure time.Time
	probeCalls  int
	probeFails  int
}

// NewBreaker creates a [Breaker] with the supplied configuration. Zero-value
// config fields are replaced with defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	if cfg.ProbeMax <= 0 {
		cfg.ProbeMax = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Breaker{
		name:     cfg.Name,
		maxFails: cfg.MaxFailures,
		coolDown: cfg.CoolDown,
		probeMax: cfg.ProbeMax,
		logger:   cfg.Logger,
		state:    StateClosed,
	}
}

// Do runs fn if the breaker allows it. In the open state it returns
// [ErrBreakerOpen] without calling fn. In the half-open state a limited number
// of probe calls are permitted.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case StateOpen:
		if time.Since(b.lastFailure) >= b.coolDown {
			b.state = StateHalfOpen
			b.probeCalls = 0
			b.probeFails = 0
			b.logger.Info("breaker transitioning to half-open", "name", b.name)
		} else {
			b.mu.Unlock()
			return ErrBreakerOpen
		}

	case StateHalfOpen:
		if b.probeCalls >= b.probeMax {
			// Probe budget exhausted. Stay open.
			b.mu.Unlock()
			return ErrBreakerOpen
		}
	}

	// Record that we're about to make a call (relevant for half-open accounting).
	probing := b.state == StateHalfOpen
	if probing {
		b.probeCalls++
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.recordFailure(probing)
	} else {
		b.recordSuccess(probing)
	}
	return err
}

// recordFailure handles failure accounting. Must be called with b.mu held.
func (b *Breaker) recordFailure(probing bool) {
	b.lastFailure = time.Now()

	if probing {
		b.probeFails++
		// Any failure in half-open immediately re-opens.
		b.state = StateOpen
		b.consecutive = b.maxFails
		b.logger.Warn("breaker re-opened from half-open", "name", b.name)
		return
	}

	b.consecutive++
	if b.consecutive >= b.maxFails {
		b.state = StateOpen
		b.logger.Warn("breaker opened",
			"name", b.name,
			"consecutive_failures", b.consecutive)
	}
}

// recordSuccess handles success accounting. Must be called with b.mu held.
func (b *Breaker) recordSuccess(probing bool) {
	if probing {
		successes := b.probeCalls - b.probeFails
		if successes >= b.probeMax {
			b.state = StateClosed
			b.consecutive = 0
			b.probeCalls = 0
			b.probeFails = 0
			b.logger.Info("breaker closed after successful probes", "name", b.name)
		}
		return
	}

	// Closed state. A success resets the consecutive failure counter.
	b.consecutive = 0
}

// State returns the current [State] of the breaker. If the breaker is open and
// the cool-down has elapsed, the returned state is [StateHalfOpen] (the actual
// transition happens on the next [Do] call).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && time.Since(b.lastFailure) >= b.coolDown {
		return StateHalfOpen
	}
	return b.state
}

// Reset manually forces the breaker back to [StateClosed], clearing all
// failure counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.consecutive = 0
	b.probeCalls = 0
	b.probeFails = 0
	b.logger.Info("breaker manually reset", "name", b.name)
}
