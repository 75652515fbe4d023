// ABOUTME: Circuit breaker around Debit API dispatch using Sony's gobreaker
// ABOUTME: Only transient failures count toward tripping; an open breaker fails fast

package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/harper/blinkpay-mcp/pkg/apierror"
	"github.com/harper/blinkpay-mcp/pkg/logging"
	"github.com/harper/blinkpay-mcp/pkg/retry"
	"github.com/sony/gobreaker"
)

// BreakerConfig holds the configuration for the circuit breaker
type BreakerConfig struct {
	// MaxFailures is the number of consecutive transient failures that opens the breaker
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before going half-open
	OpenTimeout time.Duration
	// HalfOpenRequests is how many trial requests are let through while half-open
	HalfOpenRequests uint32
}

// DefaultBreakerConfig returns a sensible default configuration
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:      5,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// Breaker wraps gobreaker for the executor
type Breaker struct {
	name    string
	breaker *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker. Zero fields in cfg take their defaults.
func NewBreaker(name string, cfg BreakerConfig, logger logging.Logger) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = def.HalfOpenRequests
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenRequests,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()))
		},
		// 4xx answers mean the service is up
		IsSuccessful: func(err error) bool {
			return err == nil || !retry.IsTransient(err)
		},
	}

	return &Breaker{
		name:    name,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Execute runs fn through the breaker. A rejected call returns a ServiceError
// wrapping gobreaker.ErrOpenState or gobreaker.ErrTooManyRequests.
func (b *Breaker) Execute(fn func() error) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apierror.Wrap(apierror.ServiceError,
			fmt.Sprintf("circuit breaker '%s' is rejecting requests", b.name), err)
	}
	return err
}

// State returns the breaker state name: closed, half-open or open
func (b *Breaker) State() string {
	return b.breaker.State().String()
}
