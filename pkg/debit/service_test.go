// ABOUTME: Tests for the Debit service against an httptest API
// ABOUTME: Checks paths, methods, bodies, per-call headers and error passthrough

package debit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/harper/blinkpay-mcp/pkg/apierror"
	"github.com/harper/blinkpay-mcp/pkg/auth"
	"github.com/harper/blinkpay-mcp/pkg/client"
	"github.com/harper/blinkpay-mcp/pkg/logging"
	"github.com/harper/blinkpay-mcp/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seenRequest struct {
	method string
	path   string
	header http.Header
	body   []byte
}

type stubAPI struct {
	mu   sync.Mutex
	seen []seenRequest
}

func (a *stubAPI) last(t *testing.T) seenRequest {
	t.Helper()
	a.mu.Lock()
	defer a.mu.Unlock()
	require.NotEmpty(t, a.seen)
	return a.seen[len(a.seen)-1]
}

func (a *stubAPI) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.seen)
}

// newTestService serves status and body for every request
func newTestService(t *testing.T, status int, body string) (*Service, *stubAPI) {
	t.Helper()
	api := &stubAPI{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		api.mu.Lock()
		api.seen = append(api.seen, seenRequest{method: r.Method, path: r.URL.EscapedPath(), header: r.Header.Clone(), body: b})
		api.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	exec := client.New(srv.URL, auth.NewCache(auth.NewFakeIssuer("test-token")),
		client.WithRetryPolicy(&retry.Policy{Enabled: true, MaxAttempts: 2}),
		client.WithLogger(logging.NewNop()),
	)
	return NewService(exec), api
}

func TestService_CreateSingleConsent(t *testing.T) {
	svc, api := newTestService(t, http.StatusCreated, `{"consent_id":"c-1","redirect_uri":"https://bank.example/auth"}`)

	resp, err := svc.CreateSingleConsent(context.Background(), validSingleConsent(), CallOptions{
		CorrelationID: "corr-7",
		CustomerIP:    "203.0.113.9",
	})
	require.NoError(t, err)
	assert.Equal(t, "c-1", resp.ConsentID)
	assert.Equal(t, "https://bank.example/auth", resp.RedirectURI)

	got := api.last(t)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/payments/v1/single-consents", got.path)
	assert.Equal(t, "Bearer test-token", got.header.Get("Authorization"))
	assert.Equal(t, "corr-7", got.header.Get("x-correlation-id"))
	assert.Equal(t, "203.0.113.9", got.header.Get("x-customer-ip"))
	assert.NotEmpty(t, got.header.Get("idempotency-key"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(got.body, &body))
	detail := body["flow"].(map[string]interface{})["detail"].(map[string]interface{})
	assert.Equal(t, "redirect", detail["type"])
	assert.Equal(t, "BNZ", detail["bank"])
}

func TestService_InvalidRequestNeverSent(t *testing.T) {
	svc, api := newTestService(t, http.StatusCreated, `{}`)

	req := validSingleConsent()
	req.Amount.Currency = "USD"
	_, err := svc.CreateSingleConsent(context.Background(), req, CallOptions{})

	assert.True(t, apierror.Is(err, apierror.InvalidValue))
	assert.Equal(t, 0, api.count())
}

func TestService_Paths(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		call   func(s *Service) error
		method string
		path   string
	}{
		{"get single consent", func(s *Service) error { _, err := s.GetSingleConsent(ctx, "c-1", CallOptions{}); return err }, http.MethodGet, "/payments/v1/single-consents/c-1"},
		{"revoke single consent", func(s *Service) error { return s.RevokeSingleConsent(ctx, "c-1", CallOptions{}) }, http.MethodDelete, "/payments/v1/single-consents/c-1"},
		{"get enduring consent", func(s *Service) error { _, err := s.GetEnduringConsent(ctx, "e-1", CallOptions{}); return err }, http.MethodGet, "/payments/v1/enduring-consents/e-1"},
		{"revoke enduring consent", func(s *Service) error { return s.RevokeEnduringConsent(ctx, "e-1", CallOptions{}) }, http.MethodDelete, "/payments/v1/enduring-consents/e-1"},
		{"get quick payment", func(s *Service) error { _, err := s.GetQuickPayment(ctx, "q-1", CallOptions{}); return err }, http.MethodGet, "/payments/v1/quick-payments/q-1"},
		{"revoke quick payment", func(s *Service) error { return s.RevokeQuickPayment(ctx, "q-1", CallOptions{}) }, http.MethodDelete, "/payments/v1/quick-payments/q-1"},
		{"get payment", func(s *Service) error { _, err := s.GetPayment(ctx, "p-1", CallOptions{}); return err }, http.MethodGet, "/payments/v1/payments/p-1"},
		{"get refund", func(s *Service) error { _, err := s.GetRefund(ctx, "r-1", CallOptions{}); return err }, http.MethodGet, "/payments/v1/refunds/r-1"},
		{"escaped id", func(s *Service) error { _, err := s.GetPayment(ctx, "a/b", CallOptions{}); return err }, http.MethodGet, "/payments/v1/payments/a%2Fb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, api := newTestService(t, http.StatusOK, `{}`)
			require.NoError(t, tt.call(svc))

			got := api.last(t)
			assert.Equal(t, tt.method, got.method)
			assert.Equal(t, tt.path, got.path)
			assert.Empty(t, got.header.Get("idempotency-key"))
		})
	}
}

func TestService_EmptyIDRejected(t *testing.T) {
	svc, api := newTestService(t, http.StatusOK, `{}`)

	_, err := svc.GetSingleConsent(context.Background(), "", CallOptions{})
	assert.True(t, apierror.Is(err, apierror.InvalidValue))
	assert.Equal(t, 0, api.count())
}

func TestService_CreatePaymentAndRefund(t *testing.T) {
	svc, api := newTestService(t, http.StatusCreated, `{"payment_id":"p-9","refund_id":"r-9"}`)
	ctx := context.Background()

	pay, err := svc.CreatePayment(ctx, &PaymentRequest{ConsentID: "c-1"}, CallOptions{IdempotencyKey: "idem-1"})
	require.NoError(t, err)
	assert.Equal(t, "p-9", pay.PaymentID)
	assert.Equal(t, "/payments/v1/payments", api.last(t).path)
	assert.Equal(t, "idem-1", api.last(t).header.Get("idempotency-key"))

	refund, err := svc.CreateRefund(ctx, FullRefund{PaymentID: "p-9", Pcr: Pcr{Particulars: "refund"}}, CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "r-9", refund.RefundID)

	got := api.last(t)
	assert.Equal(t, "/payments/v1/refunds", got.path)
	detail, err := DecodeRefundDetail(got.body)
	require.NoError(t, err)
	assert.Equal(t, RefundFull, detail.RefundType())
}

func TestService_CreateQuickPaymentAndEnduringConsent(t *testing.T) {
	svc, api := newTestService(t, http.StatusCreated, `{"quick_payment_id":"q-1","consent_id":"e-1"}`)
	ctx := context.Background()

	qp, err := svc.CreateQuickPayment(ctx, &QuickPaymentRequest{
		Flow:   AuthFlow{Detail: GatewayFlow{RedirectURI: "https://shop.example/return"}},
		Pcr:    Pcr{Particulars: "order-1"},
		Amount: NZD("9.99"),
	}, CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "q-1", qp.QuickPaymentID)
	assert.Equal(t, "/payments/v1/quick-payments", api.last(t).path)

	from := mustTime(t, "2026-02-01T00:00:00Z")
	ec, err := svc.CreateEnduringConsent(ctx, &EnduringConsentRequest{
		Flow:                AuthFlow{Detail: DecoupledFlow{Bank: BankWestpac, IdentifierType: "phone_number", IdentifierValue: "+64210000"}},
		FromTimestamp:       from,
		Period:              PeriodWeekly,
		MaximumAmountPeriod: NZD("100.00"),
	}, CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "e-1", ec.ConsentID)
	assert.Equal(t, "/payments/v1/enduring-consents", api.last(t).path)
}

func TestService_GetMeta(t *testing.T) {
	svc, api := newTestService(t, http.StatusOK, `[{"name":"BNZ","features":{"decoupled_flow":{"enabled":true}}},{"name":"ASB"}]`)

	banks, err := svc.GetMeta(context.Background(), CallOptions{RequestID: "req-1"})
	require.NoError(t, err)
	require.Len(t, banks, 2)
	assert.Equal(t, BankBNZ, banks[0].Name)
	assert.Equal(t, BankASB, banks[1].Name)
	assert.Equal(t, "req-1", api.last(t).header.Get("request-id"))
}

func TestService_ErrorsPassThrough(t *testing.T) {
	svc, api := newTestService(t, http.StatusNotFound, `{"message":"consent not found"}`)

	_, err := svc.GetSingleConsent(context.Background(), "missing", CallOptions{CorrelationID: "corr-404"})

	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.NotFound, apiErr.Kind)
	assert.Equal(t, "corr-404", apiErr.CorrelationID)
	assert.Equal(t, 1, api.count())
}

func TestService_UndecodableResponse(t *testing.T) {
	svc, _ := newTestService(t, http.StatusOK, `["not","an","object"]`)

	_, err := svc.GetPayment(context.Background(), "p-1", CallOptions{})
	assert.True(t, apierror.Is(err, apierror.InternalError))
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}
