// ABOUTME: Wires an Executor and its token cache from loaded configuration
// ABOUTME: Fake mode swaps the token endpoint for a fixed bearer value

package client

import (
	"net/http"

	"github.com/harper/blinkpay-mcp/pkg/auth"
	"github.com/harper/blinkpay-mcp/pkg/config"
	"github.com/harper/blinkpay-mcp/pkg/logging"
	"github.com/harper/blinkpay-mcp/pkg/retry"
)

// FromConfig builds the issuer, token cache and executor described by cfg.
// cfg should already be validated.
func FromConfig(cfg *config.Config, logger logging.Logger) (*Executor, *auth.Cache) {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	var issuer auth.Issuer
	if cfg.FakeToken != "" {
		logger.Info("Using fake access token", logging.String("token", auth.MaskToken(cfg.FakeToken)))
		issuer = auth.NewFakeIssuer(cfg.FakeToken)
	} else {
		tokenClient := &http.Client{Timeout: cfg.Timeout}
		issuer = auth.NewClientCredentialsIssuer(cfg.ResolvedTokenURL(), cfg.ClientID, cfg.ClientSecret, tokenClient, logger)
	}
	cache := auth.NewCache(issuer, auth.WithLogger(logger))

	policy := retry.NewPolicy()
	policy.Enabled = cfg.Retry.Enabled
	policy.MaxAttempts = cfg.Retry.MaxAttempts

	opts := []Option{
		WithRetryPolicy(policy),
		WithTimeout(cfg.Timeout),
		WithRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		WithLogger(logger),
	}
	if cfg.CircuitBreaker.Enabled {
		opts = append(opts, WithBreaker(NewBreaker("blinkpay-debit", BreakerConfig{
			MaxFailures: cfg.CircuitBreaker.MaxFailures,
			OpenTimeout: cfg.CircuitBreaker.OpenTimeout,
		}, logger)))
	}

	return New(cfg.DebitURL, cache, opts...), cache
}
