// ABOUTME: Executes Debit API calls: decorate once, then retry authenticated attempts
// ABOUTME: Each attempt gets a fresh request, a fresh token check and its own timeout

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harper/blinkpay-mcp/pkg/apierror"
	"github.com/harper/blinkpay-mcp/pkg/auth"
	"github.com/harper/blinkpay-mcp/pkg/logging"
	"github.com/harper/blinkpay-mcp/pkg/request"
	"github.com/harper/blinkpay-mcp/pkg/retry"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single HTTP attempt
const DefaultTimeout = 10 * time.Second

// TokenSource hands out a currently valid bearer token
type TokenSource interface {
	GetValidToken(ctx context.Context) (auth.Token, error)
}

// Executor runs request descriptors against the Debit API
type Executor struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	policy     retry.Policy
	timeout    time.Duration
	limiter    *rate.Limiter
	breaker    *Breaker
	logger     logging.Logger
}

// Option configures an Executor
type Option func(*Executor)

// WithHTTPClient sets the client used for dispatch. Its Timeout should be zero;
// per-attempt timeouts come from WithTimeout.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) {
		e.httpClient = c
	}
}

// WithRetryPolicy replaces the default retry policy
func WithRetryPolicy(p *retry.Policy) Option {
	return func(e *Executor) {
		e.policy = *p
	}
}

// WithTimeout sets the per-attempt timeout
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithRateLimit throttles attempts to rps with the given burst. rps <= 0 turns
// throttling off.
func WithRateLimit(rps float64, burst int) Option {
	return func(e *Executor) {
		if rps <= 0 {
			e.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithBreaker routes dispatch through b
func WithBreaker(b *Breaker) Option {
	return func(e *Executor) {
		e.breaker = b
	}
}

// WithLogger sets the executor's logger
func WithLogger(l logging.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// New creates an executor for the API at baseURL
func New(baseURL string, tokens TokenSource, opts ...Option) *Executor {
	e := &Executor{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{},
		policy:     *retry.NewPolicy(),
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.GetGlobalLogger()
	}

	// Token failures end the call even when their cause looks like a network error
	transient := e.policy.IsTransient
	if transient == nil {
		transient = retry.IsTransient
	}
	e.policy.IsTransient = func(err error) bool {
		return !apierror.Is(err, apierror.AuthenticationFailed) && transient(err)
	}
	return e
}

// Execute performs one logical call with freshly generated identifiers
func (e *Executor) Execute(ctx context.Context, d *request.Descriptor) (*request.Response, error) {
	return e.ExecuteWith(ctx, d, nil)
}

// ExecuteWith performs one logical call reusing the identifiers in existing
// where the descriptor does not carry its own. It returns the 2xx response or
// an *apierror.Error.
func (e *Executor) ExecuteWith(ctx context.Context, d *request.Descriptor, existing *request.IdempotencyContext) (*request.Response, error) {
	ids := request.Decorate(d, existing)
	log := e.logger.WithFields(
		logging.String("request_id", ids.RequestID),
		logging.String("correlation_id", ids.CorrelationID),
	)

	var resp *request.Response
	err := e.policy.Run(ctx, func(ctx context.Context, n int) error {
		r, err := e.attempt(ctx, d, ids, log, n)
		if err != nil {
			log.Warn("Attempt failed",
				logging.Int("attempt", n),
				logging.String("operation", d.Operation.String()),
				logging.Err(err))
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, e.finish(err, ids, log)
	}

	resp.IDs = ids
	return resp, nil
}

func (e *Executor) attempt(ctx context.Context, d *request.Descriptor, ids request.IdempotencyContext, log logging.Logger, n int) (*request.Response, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, apierror.Wrap(apierror.InternalError, "rate limiter refused request", err)
		}
	}

	tok, err := e.tokens.GetValidToken(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if apierror.Is(err, apierror.AuthenticationFailed) {
			return nil, err
		}
		return nil, apierror.Wrap(apierror.AuthenticationFailed, "unable to obtain access token", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := d.HTTPRequest(attemptCtx, e.baseURL)
	if err != nil {
		return nil, apierror.Wrap(apierror.InternalError, "invalid request", err)
	}
	ids.Apply(req.Header)
	req.Header.Set(request.HeaderAuthorization, tok.AuthorizationHeader())

	log.Debug("Sending request",
		logging.Int("attempt", n),
		logging.String("method", req.Method),
		logging.String("url", req.URL.String()),
		logging.Any("headers", sanitizeHeaders(req.Header)),
		logging.String("body", truncateBody(d.Body)))

	var resp *request.Response
	dispatch := func() error {
		r, err := e.dispatch(req, log)
		resp = r
		return err
	}
	if e.breaker != nil {
		err = e.breaker.Execute(dispatch)
	} else {
		err = dispatch()
	}
	return resp, err
}

// dispatch sends req and reads the whole body. Non-2xx statuses come back as
// classified errors; retryable statuses stay retryable through HTTPStatusCode.
func (e *Executor) dispatch(req *http.Request, log logging.Logger) (*request.Response, error) {
	start := time.Now()
	httpResp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	log.Debug("Received response",
		logging.Int("status", httpResp.StatusCode),
		logging.Duration("elapsed", time.Since(start)),
		logging.Any("headers", sanitizeHeaders(httpResp.Header)),
		logging.String("body", truncateBody(body)))

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, apierror.Classify(httpResp.StatusCode, httpResp.Header, body)
	}

	return &request.Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

// finish turns the policy's final error into an *apierror.Error
func (e *Executor) finish(err error, ids request.IdempotencyContext, log logging.Logger) error {
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		out := apierror.Wrap(apierror.RetryExhausted,
			fmt.Sprintf("request failed after %d attempts", exhausted.Attempts), exhausted)
		var last *apierror.Error
		out.CorrelationID = ids.CorrelationID
		if errors.As(exhausted.Last, &last) {
			out.StatusCode = last.StatusCode
			out.Code = last.Code
			if last.CorrelationID != "" {
				out.CorrelationID = last.CorrelationID
				out.Message += fmt.Sprintf(" (correlation id %s)", last.CorrelationID)
			}
		}
		log.Error("Retries exhausted", out)
		return out
	}

	// Copied: token failures are shared between concurrent callers
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		out := *apiErr
		if out.CorrelationID == "" {
			out.CorrelationID = ids.CorrelationID
		}
		log.Error("Request failed", &out, logging.String("kind", string(out.Kind)))
		return &out
	}

	var out *apierror.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		out = apierror.Wrap(apierror.InternalError, "request cancelled", err)
	default:
		out = apierror.Wrap(apierror.ServiceError, "request failed", err)
	}
	out.CorrelationID = ids.CorrelationID
	log.Error("Request failed", out)
	return out
}
