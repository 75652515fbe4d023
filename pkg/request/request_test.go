// ABOUTME: Tests for request decoration and descriptor handling
// ABOUTME: Validates id generation, caller overrides, and per-attempt request building

package request

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecorate_CreateGetsAllThreeIDs(t *testing.T) {
	d := New(http.MethodPost, "/payments/v1/payments", OpCreate)

	ids := Decorate(d, nil)

	for _, v := range []string{ids.RequestID, ids.CorrelationID, ids.IdempotencyKey} {
		_, err := uuid.Parse(v)
		assert.NoError(t, err, "expected UUID, got %q", v)
	}
	assert.NotEqual(t, ids.RequestID, ids.CorrelationID)
	assert.NotEqual(t, ids.RequestID, ids.IdempotencyKey)
	assert.NotEqual(t, ids.CorrelationID, ids.IdempotencyKey)

	assert.Equal(t, ids.RequestID, d.Header.Get(HeaderRequestID))
	assert.Equal(t, ids.CorrelationID, d.Header.Get(HeaderCorrelationID))
	assert.Equal(t, ids.IdempotencyKey, d.Header.Get(HeaderIdempotencyKey))
}

func TestDecorate_ReadAndRevokeNeverGetIdempotencyKey(t *testing.T) {
	for _, op := range []Operation{OpRead, OpRevoke} {
		t.Run(op.String(), func(t *testing.T) {
			d := New(http.MethodGet, "/payments/v1/meta", op)
			d.Header.Set(HeaderIdempotencyKey, "should-be-removed")

			ids := Decorate(d, nil)

			assert.Empty(t, ids.IdempotencyKey)
			assert.Empty(t, d.Header.Get(HeaderIdempotencyKey))
			assert.NotEmpty(t, ids.RequestID)
			assert.NotEmpty(t, ids.CorrelationID)
		})
	}
}

func TestDecorate_PreservesCallerValues(t *testing.T) {
	d := New(http.MethodPost, "/payments/v1/refunds", OpCreate)
	d.Header.Set("Request-Id", "req-1")
	d.Header.Set("X-Correlation-ID", "corr-1")
	d.Header.Set("Idempotency-Key", "idem-1")

	ids := Decorate(d, nil)

	assert.Equal(t, IdempotencyContext{RequestID: "req-1", CorrelationID: "corr-1", IdempotencyKey: "idem-1"}, ids)
}

func TestDecorate_ReusesExistingContext(t *testing.T) {
	existing := &IdempotencyContext{RequestID: "r", CorrelationID: "c", IdempotencyKey: "k"}
	d := New(http.MethodPost, "/payments/v1/payments", OpCreate)

	ids := Decorate(d, existing)

	assert.Equal(t, *existing, ids)
}

func TestDecorate_IndependentCallsDiffer(t *testing.T) {
	a := Decorate(New(http.MethodPost, "/payments/v1/payments", OpCreate), nil)
	b := Decorate(New(http.MethodPost, "/payments/v1/payments", OpCreate), nil)

	assert.NotEqual(t, a.RequestID, b.RequestID)
	assert.NotEqual(t, a.CorrelationID, b.CorrelationID)
	assert.NotEqual(t, a.IdempotencyKey, b.IdempotencyKey)
}

func TestDescriptor_HTTPRequestIsolatesAttempts(t *testing.T) {
	d, err := NewJSON(http.MethodPost, "payments/v1/payments", OpCreate, map[string]string{"consent_id": "abc"})
	require.NoError(t, err)
	Decorate(d, nil)

	first, err := d.HTTPRequest(context.Background(), "https://debit.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://debit.example.com/payments/v1/payments", first.URL.String())

	// A transport mangling the first attempt must not affect the second
	first.Header.Del(HeaderIdempotencyKey)
	body, _ := io.ReadAll(first.Body)
	assert.JSONEq(t, `{"consent_id":"abc"}`, string(body))

	second, err := d.HTTPRequest(context.Background(), "https://debit.example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, second.Header.Get(HeaderIdempotencyKey))
	body, _ = io.ReadAll(second.Body)
	assert.JSONEq(t, `{"consent_id":"abc"}`, string(body))
	assert.Equal(t, "application/json", second.Header.Get("Accept"))
}

func TestResponse_DecodeJSON(t *testing.T) {
	var out struct {
		PaymentID string `json:"payment_id"`
	}

	r := &Response{Body: []byte(`{"payment_id":"p-1"}`)}
	require.NoError(t, r.DecodeJSON(&out))
	assert.Equal(t, "p-1", out.PaymentID)

	require.NoError(t, (&Response{}).DecodeJSON(&out))
	assert.Error(t, (&Response{Body: []byte("not json")}).DecodeJSON(&out))
}
