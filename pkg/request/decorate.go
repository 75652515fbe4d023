// ABOUTME: Stamps request-id, correlation-id and idempotency-key onto a call
// ABOUTME: Values are fixed once per logical call and re-applied on every attempt

package request

import (
	"net/http"

	"github.com/google/uuid"
)

// Wire header names
const (
	HeaderRequestID         = "request-id"
	HeaderCorrelationID     = "x-correlation-id"
	HeaderIdempotencyKey    = "idempotency-key"
	HeaderAuthorization     = "Authorization"
	HeaderCustomerIP        = "x-customer-ip"
	HeaderCustomerUserAgent = "x-customer-user-agent"
)

// IdempotencyContext holds the identifiers of one logical call. IdempotencyKey
// is empty for calls that do not create anything.
type IdempotencyContext struct {
	RequestID      string
	CorrelationID  string
	IdempotencyKey string
}

// Apply writes the identifiers onto h, overwriting whatever is there
func (c IdempotencyContext) Apply(h http.Header) {
	h.Set(HeaderRequestID, c.RequestID)
	h.Set(HeaderCorrelationID, c.CorrelationID)
	if c.IdempotencyKey != "" {
		h.Set(HeaderIdempotencyKey, c.IdempotencyKey)
	} else {
		h.Del(HeaderIdempotencyKey)
	}
}

// Decorate fixes the identifiers for d. Header values the caller already set
// win; then values from existing (if non-nil); otherwise fresh UUIDs. The
// idempotency key is only assigned to create operations.
func Decorate(d *Descriptor, existing *IdempotencyContext) IdempotencyContext {
	if d.Header == nil {
		d.Header = http.Header{}
	}

	var prior IdempotencyContext
	if existing != nil {
		prior = *existing
	}

	ctx := IdempotencyContext{
		RequestID:     pick(d.Header.Get(HeaderRequestID), prior.RequestID),
		CorrelationID: pick(d.Header.Get(HeaderCorrelationID), prior.CorrelationID),
	}
	if d.Operation == OpCreate {
		ctx.IdempotencyKey = pick(d.Header.Get(HeaderIdempotencyKey), prior.IdempotencyKey)
	}

	ctx.Apply(d.Header)
	return ctx
}

func pick(supplied, prior string) string {
	if supplied != "" {
		return supplied
	}
	if prior != "" {
		return prior
	}
	return uuid.NewString()
}
