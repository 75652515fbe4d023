// ABOUTME: Debit API service for consents, quick payments, payments and refunds
// ABOUTME: Typed operations over the request executor

package debit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/harper/blinkpay-mcp/pkg/apierror"
	"github.com/harper/blinkpay-mcp/pkg/request"
)

// API paths, relative to the Debit API base URL
const (
	pathSingleConsents   = "/payments/v1/single-consents"
	pathEnduringConsents = "/payments/v1/enduring-consents"
	pathQuickPayments    = "/payments/v1/quick-payments"
	pathPayments         = "/payments/v1/payments"
	pathRefunds          = "/payments/v1/refunds"
	pathMeta             = "/payments/v1/meta"
)

// Executor runs one logical API call
type Executor interface {
	Execute(ctx context.Context, d *request.Descriptor) (*request.Response, error)
}

// CallOptions carries optional per-call headers. Empty fields are left for
// the executor to fill in.
type CallOptions struct {
	RequestID         string
	CorrelationID     string
	IdempotencyKey    string
	CustomerIP        string
	CustomerUserAgent string
}

func (o CallOptions) apply(d *request.Descriptor) {
	d.SetHeader(request.HeaderRequestID, o.RequestID)
	d.SetHeader(request.HeaderCorrelationID, o.CorrelationID)
	d.SetHeader(request.HeaderIdempotencyKey, o.IdempotencyKey)
	d.SetHeader(request.HeaderCustomerIP, o.CustomerIP)
	d.SetHeader(request.HeaderCustomerUserAgent, o.CustomerUserAgent)
}

// Service wraps Debit API operations
type Service struct {
	exec Executor
}

// NewService creates a new Debit service
func NewService(exec Executor) *Service {
	return &Service{exec: exec}
}

// CreateSingleConsent creates a consent for one payment
func (s *Service) CreateSingleConsent(ctx context.Context, req *SingleConsentRequest, opts CallOptions) (*CreateConsentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out CreateConsentResponse
	if err := s.create(ctx, pathSingleConsents, req, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetSingleConsent retrieves a single consent
func (s *Service) GetSingleConsent(ctx context.Context, consentID string, opts CallOptions) (*Consent, error) {
	var out Consent
	if err := s.get(ctx, pathSingleConsents, consentID, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeSingleConsent revokes a single consent
func (s *Service) RevokeSingleConsent(ctx context.Context, consentID string, opts CallOptions) error {
	return s.revoke(ctx, pathSingleConsents, consentID, opts)
}

// CreateEnduringConsent creates a consent for repeated payments
func (s *Service) CreateEnduringConsent(ctx context.Context, req *EnduringConsentRequest, opts CallOptions) (*CreateConsentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out CreateConsentResponse
	if err := s.create(ctx, pathEnduringConsents, req, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEnduringConsent retrieves an enduring consent
func (s *Service) GetEnduringConsent(ctx context.Context, consentID string, opts CallOptions) (*Consent, error) {
	var out Consent
	if err := s.get(ctx, pathEnduringConsents, consentID, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeEnduringConsent revokes an enduring consent
func (s *Service) RevokeEnduringConsent(ctx context.Context, consentID string, opts CallOptions) error {
	return s.revoke(ctx, pathEnduringConsents, consentID, opts)
}

// CreateQuickPayment creates a consent and its payment in one step
func (s *Service) CreateQuickPayment(ctx context.Context, req *QuickPaymentRequest, opts CallOptions) (*CreateQuickPaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out CreateQuickPaymentResponse
	if err := s.create(ctx, pathQuickPayments, req, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetQuickPayment retrieves a quick payment
func (s *Service) GetQuickPayment(ctx context.Context, quickPaymentID string, opts CallOptions) (*QuickPayment, error) {
	var out QuickPayment
	if err := s.get(ctx, pathQuickPayments, quickPaymentID, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeQuickPayment revokes a quick payment
func (s *Service) RevokeQuickPayment(ctx context.Context, quickPaymentID string, opts CallOptions) error {
	return s.revoke(ctx, pathQuickPayments, quickPaymentID, opts)
}

// CreatePayment pays against an authorised consent
func (s *Service) CreatePayment(ctx context.Context, req *PaymentRequest, opts CallOptions) (*PaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var out PaymentResponse
	if err := s.create(ctx, pathPayments, req, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetPayment retrieves a payment
func (s *Service) GetPayment(ctx context.Context, paymentID string, opts CallOptions) (*Payment, error) {
	var out Payment
	if err := s.get(ctx, pathPayments, paymentID, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRefund requests a refund
func (s *Service) CreateRefund(ctx context.Context, detail RefundDetail, opts CallOptions) (*RefundResponse, error) {
	if err := validateRefund(detail); err != nil {
		return nil, err
	}
	var out RefundResponse
	if err := s.create(ctx, pathRefunds, detail, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRefund retrieves a refund
func (s *Service) GetRefund(ctx context.Context, refundID string, opts CallOptions) (*Refund, error) {
	var out Refund
	if err := s.get(ctx, pathRefunds, refundID, opts, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMeta lists the supported banks and their features
func (s *Service) GetMeta(ctx context.Context, opts CallOptions) ([]BankMetadata, error) {
	d := request.New(http.MethodGet, pathMeta, request.OpRead)
	opts.apply(d)

	var out []BankMetadata
	if err := s.do(ctx, d, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) create(ctx context.Context, path string, body interface{}, opts CallOptions, out interface{}) error {
	d, err := request.NewJSON(http.MethodPost, path, request.OpCreate, body)
	if err != nil {
		return apierror.Wrap(apierror.InvalidValue, "unable to encode request", err)
	}
	opts.apply(d)
	return s.do(ctx, d, out)
}

func (s *Service) get(ctx context.Context, path, id string, opts CallOptions, out interface{}) error {
	p, err := resourcePath(path, id)
	if err != nil {
		return err
	}
	d := request.New(http.MethodGet, p, request.OpRead)
	opts.apply(d)
	return s.do(ctx, d, out)
}

func (s *Service) revoke(ctx context.Context, path, id string, opts CallOptions) error {
	p, err := resourcePath(path, id)
	if err != nil {
		return err
	}
	d := request.New(http.MethodDelete, p, request.OpRevoke)
	opts.apply(d)
	return s.do(ctx, d, nil)
}

func (s *Service) do(ctx context.Context, d *request.Descriptor, out interface{}) error {
	resp, err := s.exec.Execute(ctx, d)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := resp.DecodeJSON(out); err != nil {
		return apierror.Wrap(apierror.InternalError, fmt.Sprintf("unexpected response from %s", d.Path), err)
	}
	return nil
}

func resourcePath(base, id string) (string, error) {
	if id == "" {
		return "", apierror.New(apierror.InvalidValue, "id is required")
	}
	return base + "/" + url.PathEscape(id), nil
}
