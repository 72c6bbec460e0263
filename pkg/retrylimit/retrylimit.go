// Package retrylimit paces and retries operations that talk to rate limited
// remote services.
//
// Example usage:
//
//	pacer := retrylimit.NewPacer(5*time.Second, 1)
//	if err := pacer.Wait(ctx); err != nil {
//	    return err
//	}
//	err := retrylimit.Do(ctx, retrylimit.DefaultConfig(), func(ctx context.Context) error {
//	    return session.Open()
//	})
package retrylimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// Pacer
// =============================================================================

// Pacer lets at most burst operations start per interval.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer returns a pacer admitting burst starts every interval. A
// non-positive interval disables pacing.
func NewPacer(interval time.Duration, burst int) *Pacer {
	if burst < 1 {
		burst = 1
	}
	if interval <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, burst)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(interval/time.Duration(burst)), burst)}
}

// Wait blocks until the next start is allowed or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// =============================================================================
// Errors
// =============================================================================

// FatalError stops retries immediately.
type FatalError struct {
	Err error
}

func (f *FatalError) Error() string { return f.Err.Error() }
func (f *FatalError) Unwrap() error { return f.Err }

// Fatal marks err as not worth retrying.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// ErrMaxAttempts is returned, wrapped with the last failure, when every
// attempt failed.
var ErrMaxAttempts = errors.New("max attempts exceeded")

// =============================================================================
// Retry
// =============================================================================

type Config struct {
	MaxAttempts  int           // at least 1
	InitialDelay time.Duration // delay after the first failure
	MaxDelay     time.Duration // cap for exponential growth
	Multiplier   float64       // growth factor between attempts
	Jitter       bool          // add up to 25% random delay

	// OnRetry is called before sleeping after a failed attempt.
	OnRetry func(attempt int, err error, wait time.Duration)
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Do runs fn until it succeeds, returns a FatalError, ctx is done, or
// MaxAttempts is reached.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}

	delay := cfg.InitialDelay
	var last error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = fn(ctx)
		if last == nil {
			return nil
		}

		var fatal *FatalError
		if errors.As(last, &fatal) {
			return fatal.Err
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		if cfg.Jitter {
			wait = addJitter(delay)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, last, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("%w (%d): %w", ErrMaxAttempts, cfg.MaxAttempts, last)
}

// addJitter adds 0-25% of delay.
func addJitter(delay time.Duration) time.Duration {
	if delay < 4 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(delay/4)))
}
