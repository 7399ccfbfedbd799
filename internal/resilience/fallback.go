package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every backend in a [Chain] fails or has an
// open breaker.
var ErrAllFailed = errors.New("resilience: all backends failed")

// ChainConfig configures the per-backend breaker created for each entry in a
// [Chain].
type ChainConfig struct {
	Breaker BreakerConfig

	// Logger receives failover events. Defaults to slog.Default().
	Logger *slog.Logger
}

// chainEntry pairs a backend value with its dedicated breaker.
type chainEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Chain wraps a primary and zero or more fallback instances of the same
// backend type. When the primary fails (or its breaker is open), the next
// healthy fallback is tried in registration order.
//
// Chain is safe for concurrent use once all fallbacks are registered.
type Chain[T any] struct {
	entries []chainEntry[T]
	cfg     ChainConfig
	logger  *slog.Logger
}

// NewChain creates a [Chain] with primary as the first entry. Additional
// fallbacks are registered via [Chain.AddFallback].
func NewChain[T any](primary T, primaryName string, cfg ChainConfig) *Chain[T] {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	bc := cfg.Breaker
	bc.Name = primaryName
	bc.Logger = cfg.Logger
	return &Chain[T]{
		entries: []chainEntry[T]{
			{name: primaryName, value: primary, breaker: NewBreaker(bc)},
		},
		cfg:    cfg,
		logger: cfg.Logger,
	}
}

// AddFallback appends a fallback backend. Fallbacks are tried in the order
// they are added, after the primary. Not safe to call concurrently with Do.
func (c *Chain[T]) AddFallback(name string, fallback T) {
	bc := c.cfg.Breaker
	bc.Name = name
	bc.Logger = c.logger
	c.entries = append(c.entries, chainEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewBreaker(bc),
	})
}

// Do tries fn against each entry in order until one succeeds. Entries with an
// open breaker are skipped. Returns [ErrAllFailed] wrapped with the last error
// if every entry fails.
func (c *Chain[T]) Do(fn func(T) error) error {
	var lastErr error
	for i := range c.entries {
		entry := &c.entries[i]
		err := entry.breaker.Do(func() error {
			return fn(entry.value)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			c.logger.Debug("skipping backend (breaker open)", "backend", entry.name)
		} else {
			c.logger.Warn("backend failed, trying next",
				"backend", entry.name, "err", err)
		}
	}
	return fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// DoWithResult tries fn against each entry in the chain until one succeeds,
// returning both the result value and error. This is a package-level function
// because Go does not support method-level type parameters.
func DoWithResult[T any, R any](c *Chain[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range c.entries {
		entry := &c.entries[i]
		var result R
		err := entry.breaker.Do(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			c.logger.Debug("skipping backend (breaker open)", "backend", entry.name)
		} else {
			c.logger.Warn("backend failed, trying next",
				"backend", entry.name, "err", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}
