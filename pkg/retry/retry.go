// ABOUTME: This file implements retry logic with exponential backoff and jitter for HTTP attempts.
// ABOUTME: It retries network errors, attempt timeouts and retryable server statuses, nothing else.

package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// Defaults for Policy
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxJitter   = time.Second
)

// ErrExhausted marks an error returned after every attempt failed transiently
var ErrExhausted = errors.New("retry attempts exhausted")

// HTTPError interface for errors that have an HTTP status code
type HTTPError interface {
	error
	HTTPStatusCode() int
}

// ExhaustedError wraps the last transient error once the attempt budget is spent
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v after %d attempts: %v", ErrExhausted, e.Attempts, e.Last)
}

// Unwrap exposes both the sentinel and the last error
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// Attempt performs one try. n is the 1-based attempt number.
type Attempt func(ctx context.Context, n int) error

// Policy retries an Attempt with exponential backoff.
//
// The delay before retry k (k = 1..MaxAttempts-1) is BaseDelay*2^k plus a
// uniformly random jitter in [0, MaxJitter). With the defaults that is 2s+j
// then 4s+j.
type Policy struct {
	Enabled     bool
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration

	// IsTransient decides whether an error is worth another attempt.
	// Defaults to IsTransient.
	IsTransient func(error) bool

	// OnRetry, when set, is called before each backoff wait
	OnRetry func(attempt int, delay time.Duration, err error)

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
}

// NewPolicy returns a Policy with the default schedule
func NewPolicy() *Policy {
	return &Policy{
		Enabled:     true,
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxJitter:   DefaultMaxJitter,
	}
}

// Run calls attempt until it succeeds, fails terminally, the budget runs out,
// or ctx is done. Terminal errors are returned unchanged; exhaustion returns
// an *ExhaustedError.
func (p *Policy) Run(ctx context.Context, attempt Attempt) error {
	maxAttempts := p.attempts()
	isTransient := p.IsTransient
	if isTransient == nil {
		isTransient = IsTransient
	}

	var lastErr error
	for n := 1; n <= maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := attempt(ctx, n)
		if err == nil {
			return nil
		}
		lastErr = err

		// The caller gave up; the attempt's failure is a consequence of that
		if ctx.Err() != nil {
			return err
		}

		if !isTransient(err) {
			return err
		}

		if n == maxAttempts {
			break
		}

		delay := p.Delay(n)
		if p.OnRetry != nil {
			p.OnRetry(n, delay, err)
		}
		if err := p.wait(ctx, delay); err != nil {
			return err
		}
	}

	if maxAttempts == 1 {
		return lastErr
	}
	return &ExhaustedError{Attempts: maxAttempts, Last: lastErr}
}

// Delay returns the wait before retry k: BaseDelay*2^k plus jitter
func (p *Policy) Delay(k int) time.Duration {
	base := p.BaseDelay
	if base < 0 {
		base = 0
	}
	delay := base * time.Duration(1<<uint(k))

	if p.MaxJitter > 0 {
		jitter := p.jitter
		if jitter == nil {
			jitter = randomJitter
		}
		delay += jitter(p.MaxJitter)
	}
	return delay
}

func (p *Policy) attempts() int {
	if !p.Enabled {
		return 1
	}
	if p.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p *Policy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	return sleepContext(ctx, d)
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// randomJitter returns a uniform duration in [0, max)
func randomJitter(max time.Duration) time.Duration {
	return time.Duration(rand.Int64N(int64(max)))
}
