// ABOUTME: Thread-safe cache for the current bearer token
// ABOUTME: Lock-free reads, at most one refresh in flight, cancellable waits

package auth

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/harper/blinkpay-mcp/pkg/logging"
	"golang.org/x/sync/semaphore"
)

// Cache holds the current token and refreshes it through an Issuer when it is
// missing or inside the expiry buffer.
//
// Only one refresh runs at a time. Callers queued behind a refresh re-check
// the cache once it finishes: if it succeeded they reuse the new token, if it
// failed they get the same error rather than issuing again. A refresh that
// stopped because its own caller was cancelled is not shared; the next queued
// caller refreshes instead.
type Cache struct {
	issuer Issuer
	buffer time.Duration
	now    func() time.Time
	logger logging.Logger

	current atomic.Pointer[Token]
	gate    *semaphore.Weighted

	// generation increments each time a refresh outcome is published
	generation atomic.Uint64
	lastErr    error // guarded by gate
}

// CacheOption configures a Cache
type CacheOption func(*Cache)

// WithBuffer overrides DefaultExpiryBuffer
func WithBuffer(buffer time.Duration) CacheOption {
	return func(c *Cache) {
		c.buffer = buffer
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the cache's logger
func WithLogger(logger logging.Logger) CacheOption {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache creates an empty cache in front of issuer
func NewCache(issuer Issuer, opts ...CacheOption) *Cache {
	c := &Cache{
		issuer: issuer,
		buffer: DefaultExpiryBuffer,
		now:    time.Now,
		gate:   semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.GetGlobalLogger()
	}
	return c
}

// GetValidToken returns a token that is fresh at the time it is selected,
// refreshing first if needed
func (c *Cache) GetValidToken(ctx context.Context) (Token, error) {
	return c.get(ctx, c.now)
}

// GetValidTokenAt is GetValidToken with freshness judged at now
func (c *Cache) GetValidTokenAt(ctx context.Context, now time.Time) (Token, error) {
	return c.get(ctx, func() time.Time { return now })
}

func (c *Cache) get(ctx context.Context, clock func() time.Time) (Token, error) {
	if tok, ok := c.fresh(clock()); ok {
		return tok, nil
	}

	seen := c.generation.Load()
	if err := c.gate.Acquire(ctx, 1); err != nil {
		return Token{}, err
	}
	defer c.gate.Release(1)

	if tok, ok := c.fresh(clock()); ok {
		return tok, nil
	}
	// Another caller finished a refresh while this one waited; share its
	// result even when the token carries no usable expiry
	if c.generation.Load() != seen {
		if c.lastErr != nil {
			return Token{}, c.lastErr
		}
		if tok := c.current.Load(); tok != nil {
			return *tok, nil
		}
	}

	c.logger.Debug("Refreshing access token")
	tok, err := c.issuer.Issue(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.lastErr = err
			c.generation.Add(1)
		}
		c.logger.Warn("Access token refresh failed", logging.Err(err))
		return Token{}, err
	}

	c.current.Store(&tok)
	c.lastErr = nil
	c.generation.Add(1)
	return tok, nil
}

func (c *Cache) fresh(now time.Time) (Token, bool) {
	tok := c.current.Load()
	if tok == nil || !tok.ValidAt(now, c.buffer) {
		return Token{}, false
	}
	return *tok, true
}

// Peek returns the cached token without refreshing
func (c *Cache) Peek() (Token, bool) {
	tok := c.current.Load()
	if tok == nil {
		return Token{}, false
	}
	return *tok, true
}

// Info describes the cached token for display
func (c *Cache) Info() TokenInfo {
	tok, ok := c.Peek()
	if !ok {
		return TokenInfo{Valid: false}
	}
	return tok.Info(c.now(), c.buffer)
}

// Invalidate drops the cached token so the next call refreshes
func (c *Cache) Invalidate() {
	c.current.Store(nil)
}
