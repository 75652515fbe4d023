// ABOUTME: Request and response descriptors handed to the executor
// ABOUTME: Transport-neutral: method, path, headers, body in; status, headers, body out

package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Operation says what a call does to server state, which decides whether it
// gets an idempotency key
type Operation int

const (
	// OpRead fetches or lists resources
	OpRead Operation = iota
	// OpCreate creates a consent, payment or refund
	OpCreate
	// OpRevoke revokes an existing consent or quick payment
	OpRevoke
)

// String returns the operation name used in logs
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpRevoke:
		return "revoke"
	default:
		return "read"
	}
}

// Descriptor describes one logical API call. Header keys are canonicalised by
// http.Header, so lookups are case-insensitive.
type Descriptor struct {
	Method    string
	Path      string
	Header    http.Header
	Body      []byte
	Operation Operation
}

// New creates a descriptor with an empty header set
func New(method, path string, op Operation) *Descriptor {
	return &Descriptor{
		Method:    method,
		Path:      path,
		Header:    http.Header{},
		Operation: op,
	}
}

// NewJSON creates a descriptor whose body is v encoded as JSON
func NewJSON(method, path string, op Operation, v interface{}) (*Descriptor, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unable to encode request body: %w", err)
	}
	d := New(method, path, op)
	d.Body = body
	d.Header.Set("Content-Type", "application/json")
	return d, nil
}

// SetHeader sets a header unless value is empty
func (d *Descriptor) SetHeader(key, value string) {
	if value == "" {
		return
	}
	if d.Header == nil {
		d.Header = http.Header{}
	}
	d.Header.Set(key, value)
}

// HTTPRequest builds a fresh *http.Request for one attempt. Each attempt gets
// its own header copy and body reader, so nothing a transport does to the
// request leaks into the next attempt.
func (d *Descriptor) HTTPRequest(ctx context.Context, baseURL string) (*http.Request, error) {
	url := strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(d.Path, "/")

	var body io.Reader
	if d.Body != nil {
		body = bytes.NewReader(d.Body)
	}

	req, err := http.NewRequestWithContext(ctx, d.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("unable to build request: %w", err)
	}
	req.Header = d.Header.Clone()
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	return req, nil
}

// Response is what came back from a single successful dispatch
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// IDs are the identifiers the call was sent with
	IDs IdempotencyContext
}

// DecodeJSON decodes the response body into v. An empty body leaves v untouched.
func (r *Response) DecodeJSON(v interface{}) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("unable to decode response body: %w", err)
	}
	return nil
}
