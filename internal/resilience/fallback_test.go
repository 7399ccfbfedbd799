package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestChain_PrimarySuccess(t *testing.T) {
	c := NewChain("primary", "primary", ChainConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	c.AddFallback("secondary", "secondary")

	var called string
	err := c.Do(func(v string) error {
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "primary" {
		t.Fatalf("called = %q, want primary", called)
	}
}

func TestChain_PrimaryFailFallbackSuccess(t *testing.T) {
	c := NewChain("primary", "primary", ChainConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	c.AddFallback("secondary", "secondary")

	var called string
	err := c.Do(func(v string) error {
		if v == "primary" {
			return errBackend
		}
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "secondary" {
		t.Fatalf("called = %q, want secondary", called)
	}
}

func TestChain_AllFail(t *testing.T) {
	c := NewChain("primary", "primary", ChainConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	c.AddFallback("secondary", "secondary")

	err := c.Do(func(v string) error {
		return errBackend
	})
	if err == nil {
		t.Fatal("expected error when all backends fail")
	}
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestChain_BreakerSkipsOpenBackend(t *testing.T) {
	c := NewChain("primary", "primary", ChainConfig{
		Breaker: BreakerConfig{
			MaxFailures: 2,
			CoolDown:    time.Hour,
		},
	})
	c.AddFallback("secondary", "secondary")

	// Fail the primary enough to open its breaker.
	for range 2 {
		_ = c.Do(func(v string) error {
			if v == "primary" {
				return errBackend
			}
			return nil
		})
	}

	// The primary's breaker is now open; calls should go straight to secondary.
	var called string
	err := c.Do(func(v string) error {
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "secondary" {
		t.Fatalf("called = %q, want secondary (primary breaker should be open)", called)
	}
}

func TestDoWithResult_Success(t *testing.T) {
	c := NewChain(10, "ten", ChainConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	c.AddFallback("twenty", 20)

	result, err := DoWithResult(c, func(v int) (string, error) {
		if v == 10 {
			return "from-ten", nil
		}
		return "from-twenty", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-ten" {
		t.Fatalf("result = %q, want from-ten", result)
	}
}

func TestDoWithResult_Failover(t *testing.T) {
	c := NewChain(10, "ten", ChainConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})
	c.AddFallback("twenty", 20)

	result, err := DoWithResult(c, func(v int) (string, error) {
		if v == 10 {
			return "", errBackend
		}
		return "from-twenty", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "from-twenty" {
		t.Fatalf("result = %q, want from-twenty", result)
	}
}

func TestDoWithResult_AllFail(t *testing.T) {
	c := NewChain(10, "ten", ChainConfig{
		Breaker: BreakerConfig{MaxFailures: 3},
	})

	_, err := DoWithResult(c, func(v int) (string, error) {
		return "", errBackend
	})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}
