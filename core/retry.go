package core

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"github.com/santiagomed/chef/logger"
)

type BackoffConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
	}
}

// NextBackoffDelay returns the wait after failed attempt N (1-based).
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if cfg.InitialDelay <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if cfg.Multiplier < 1.0 {
		cfg.Multiplier = 1.0
	}
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.Multiplier, float64(attempt-1))
	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		f := 0.5
		if rng != nil {
			f = 0.5 + rng.Float64()
		}
		delay = delay * f
	}
	return time.Duration(delay)
}

// RetryPolicy reruns a whole batch when it fails outright. It bounds the
// number of attempts, not individual steps.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffConfig
	logger      logger.Logger
	rng         *rand.Rand
}

func NewRetryPolicy(maxAttempts int, backoff BackoffConfig, l logger.Logger) *RetryPolicy {
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     backoff,
		logger:      l,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out.
func (p *RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn(ctx, attempt)
		if err == nil || !retryable(ctx, err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		delay := NextBackoffDelay(p.Backoff, attempt, p.rng)
		p.logger.Warn(fmt.Sprintf("Attempt %d of %d failed: %v; retrying in %v", attempt, maxAttempts, err, delay))
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}

	p.logger.Error(fmt.Sprintf("Giving up after %d attempts: %v", maxAttempts, err))
	return errors.Wrapf(err, "giving up after %d attempts", maxAttempts)
}

func retryable(ctx context.Context, err error) bool {
	if errors.Is(err, ErrSuperseded) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return ctx.Err() == nil
}
