// ABOUTME: MCP server implementation
// ABOUTME: Exposes BlinkPay Debit consents, payments and refunds as MCP tools

package server

import (
	"context"
	"fmt"
	"time"

	"github.com/harper/blinkpay-mcp/pkg/auth"
	"github.com/harper/blinkpay-mcp/pkg/client"
	"github.com/harper/blinkpay-mcp/pkg/config"
	"github.com/harper/blinkpay-mcp/pkg/debit"
	"github.com/harper/blinkpay-mcp/pkg/logging"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients and by the version command
const Version = "0.1.0"

// TokenStatus reports on the cached access token
type TokenStatus interface {
	GetValidToken(ctx context.Context) (auth.Token, error)
	Info() auth.TokenInfo
}

// Server is the MCP server for the BlinkPay Debit API
type Server struct {
	debit  *debit.Service
	tokens TokenStatus
	logger logging.Logger
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server from configuration
func NewServer(cfg *config.Config, logger logging.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	exec, cache := client.FromConfig(cfg, logger)
	return New(debit.NewService(exec), cache, logger), nil
}

// New creates a server over an existing Debit service and token cache
func New(svc *debit.Service, tokens TokenStatus, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	s := &Server{
		debit:  svc,
		tokens: tokens,
		logger: logger,
		mcp:    server.NewMCPServer("blinkpay-mcp", Version),
	}

	s.registerTools()
	s.registerPrompts()
	s.registerResources()

	return s
}

// Shared parameter sets

func callParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("request_id", mcp.Description("Request id to send (generated when omitted)")),
		mcp.WithString("correlation_id", mcp.Description("Correlation id to send (generated when omitted)")),
		mcp.WithString("customer_ip", mcp.Description("Customer IP address forwarded to the bank")),
		mcp.WithString("customer_user_agent", mcp.Description("Customer user agent forwarded to the bank")),
	}
}

func createParams() []mcp.ToolOption {
	return append(callParams(),
		mcp.WithString("idempotency_key", mcp.Description("Idempotency key (generated when omitted; reuse it to retry safely)")),
	)
}

func flowParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("flow_type", mcp.Required(),
			mcp.Description("How the customer authorises: redirect, decoupled or gateway"),
			mcp.Enum(debit.FlowRedirect, debit.FlowDecoupled, debit.FlowGateway)),
		mcp.WithString("bank", mcp.Description("Customer bank (redirect and decoupled flows)"),
			mcp.Enum(string(debit.BankASB), string(debit.BankANZ), string(debit.BankBNZ),
				string(debit.BankWestpac), string(debit.BankKiwibank), string(debit.BankPNZ))),
		mcp.WithString("redirect_uri", mcp.Description("Where the customer returns after authorising (redirect and gateway flows)")),
		mcp.WithBoolean("redirect_to_app", mcp.Description("Redirect to the bank's app when available")),
		mcp.WithString("identifier_type", mcp.Description("Customer identifier type for the decoupled flow, e.g. phone_number")),
		mcp.WithString("identifier_value", mcp.Description("Customer identifier value for the decoupled flow")),
		mcp.WithString("callback_url", mcp.Description("Callback URL for the decoupled flow")),
	}
}

func pcrParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("particulars", mcp.Description("Statement particulars (max 12 characters)")),
		mcp.WithString("code", mcp.Description("Statement code (max 12 characters)")),
		mcp.WithString("reference", mcp.Description("Statement reference (max 12 characters)")),
	}
}

func newTool(name, description string, groups ...[]mcp.ToolOption) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(description)}
	for _, g := range groups {
		opts = append(opts, g...)
	}
	return mcp.NewTool(name, opts...)
}

func idParam(name, description string) []mcp.ToolOption {
	return []mcp.ToolOption{mcp.WithString(name, mcp.Required(), mcp.Description(description))}
}

// registerTools registers all available tools
func (s *Server) registerTools() {
	amount := []mcp.ToolOption{mcp.WithString("amount", mcp.Required(), mcp.Description("Amount in NZD as a decimal string, e.g. 25.50"))}

	// Single consents
	s.mcp.AddTool(newTool("consent_single_create", "Create a single consent for one payment. Returns the consent id and the URL to send the customer to.",
		flowParams(), pcrParams(), amount, createParams()), s.handleSingleConsentCreate)
	s.mcp.AddTool(newTool("consent_single_get", "Get a single consent by id",
		idParam("consent_id", "The consent id"), callParams()), s.handleSingleConsentGet)
	s.mcp.AddTool(newTool("consent_single_revoke", "Revoke a single consent",
		idParam("consent_id", "The consent id"), callParams()), s.handleSingleConsentRevoke)

	// Enduring consents
	s.mcp.AddTool(newTool("consent_enduring_create", "Create an enduring consent for repeated payments up to a maximum per period",
		flowParams(),
		[]mcp.ToolOption{
			mcp.WithString("period", mcp.Required(), mcp.Description("How often the maximum resets"),
				mcp.Enum(string(debit.PeriodDaily), string(debit.PeriodWeekly), string(debit.PeriodFortnightly),
					string(debit.PeriodMonthly), string(debit.PeriodAnnual))),
			mcp.WithString("maximum_amount_period", mcp.Required(), mcp.Description("Maximum NZD per period, e.g. 500.00")),
			mcp.WithString("maximum_amount_payment", mcp.Description("Maximum NZD per payment")),
			mcp.WithString("from_timestamp", mcp.Description("RFC3339 start time (default: now)")),
			mcp.WithString("expiry_timestamp", mcp.Description("RFC3339 expiry time (default: none)")),
		},
		createParams()), s.handleEnduringConsentCreate)
	s.mcp.AddTool(newTool("consent_enduring_get", "Get an enduring consent by id",
		idParam("consent_id", "The consent id"), callParams()), s.handleEnduringConsentGet)
	s.mcp.AddTool(newTool("consent_enduring_revoke", "Revoke an enduring consent",
		idParam("consent_id", "The consent id"), callParams()), s.handleEnduringConsentRevoke)

	// Quick payments
	s.mcp.AddTool(newTool("quick_payment_create", "Create a quick payment: a single consent that is paid as soon as the customer authorises it",
		flowParams(), pcrParams(), amount, createParams()), s.handleQuickPaymentCreate)
	s.mcp.AddTool(newTool("quick_payment_get", "Get a quick payment by id",
		idParam("quick_payment_id", "The quick payment id"), callParams()), s.handleQuickPaymentGet)
	s.mcp.AddTool(newTool("quick_payment_revoke", "Revoke a quick payment",
		idParam("quick_payment_id", "The quick payment id"), callParams()), s.handleQuickPaymentRevoke)

	// Payments
	s.mcp.AddTool(newTool("payment_create", "Pay against an authorised consent. Enduring consents also need amount and particulars.",
		idParam("consent_id", "The authorised consent id"),
		[]mcp.ToolOption{mcp.WithString("amount", mcp.Description("Amount in NZD for an enduring consent payment"))},
		pcrParams(), createParams()), s.handlePaymentCreate)
	s.mcp.AddTool(newTool("payment_get", "Get a payment by id",
		idParam("payment_id", "The payment id"), callParams()), s.handlePaymentGet)

	// Refunds
	s.mcp.AddTool(newTool("refund_create", "Refund a payment in full, in part, or request the payer's account number",
		[]mcp.ToolOption{
			mcp.WithString("refund_type", mcp.Required(), mcp.Description("Kind of refund"),
				mcp.Enum(debit.RefundAccountNumber, debit.RefundFull, debit.RefundPartial)),
			mcp.WithString("payment_id", mcp.Required(), mcp.Description("The payment to refund")),
			mcp.WithString("amount", mcp.Description("Amount in NZD (partial_refund only)")),
			mcp.WithString("consent_redirect", mcp.Description("Redirect URI for refund consent, if required")),
		},
		pcrParams(), createParams()), s.handleRefundCreate)
	s.mcp.AddTool(newTool("refund_get", "Get a refund by id",
		idParam("refund_id", "The refund id"), callParams()), s.handleRefundGet)

	// Auth
	s.mcp.AddTool(newTool("auth_status", "Check that the API credentials can obtain an access token"), s.handleAuthStatus)
}

// Request helpers

func callOptions(request mcp.CallToolRequest) debit.CallOptions {
	return debit.CallOptions{
		RequestID:         request.GetString("request_id", ""),
		CorrelationID:     request.GetString("correlation_id", ""),
		IdempotencyKey:    request.GetString("idempotency_key", ""),
		CustomerIP:        request.GetString("customer_ip", ""),
		CustomerUserAgent: request.GetString("customer_user_agent", ""),
	}
}

func flowFromRequest(request mcp.CallToolRequest) (debit.AuthFlow, error) {
	flowType, err := request.RequireString("flow_type")
	if err != nil {
		return debit.AuthFlow{}, err
	}

	bank := debit.Bank(request.GetString("bank", ""))
	redirectURI := request.GetString("redirect_uri", "")

	switch flowType {
	case debit.FlowRedirect:
		return debit.AuthFlow{Detail: debit.RedirectFlow{
			Bank:          bank,
			RedirectURI:   redirectURI,
			RedirectToApp: request.GetBool("redirect_to_app", false),
		}}, nil
	case debit.FlowDecoupled:
		return debit.AuthFlow{Detail: debit.DecoupledFlow{
			Bank:            bank,
			IdentifierType:  request.GetString("identifier_type", ""),
			IdentifierValue: request.GetString("identifier_value", ""),
			CallbackURL:     request.GetString("callback_url", ""),
		}}, nil
	case debit.FlowGateway:
		return debit.AuthFlow{Detail: debit.GatewayFlow{RedirectURI: redirectURI}}, nil
	default:
		return debit.AuthFlow{}, fmt.Errorf("unknown flow_type %q", flowType)
	}
}

func pcrFromRequest(request mcp.CallToolRequest) debit.Pcr {
	return debit.Pcr{
		Particulars: request.GetString("particulars", ""),
		Code:        request.GetString("code", ""),
		Reference:   request.GetString("reference", ""),
	}
}

func optionalTime(request mcp.CallToolRequest, key string) (*time.Time, error) {
	raw := request.GetString(key, "")
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC3339 time: %w", key, err)
	}
	return &t, nil
}

// toolError reports a failed call to the client
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn("Tool call failed", logging.String("tool", tool), logging.Err(err))
	return mcp.NewToolResultError(err.Error())
}

// Single consent handlers

func (s *Server) handleSingleConsentCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flow, err := flowFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := request.RequireString("amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.debit.CreateSingleConsent(ctx, &debit.SingleConsentRequest{
		Flow:   flow,
		Pcr:    pcrFromRequest(request),
		Amount: debit.NZD(amount),
	}, callOptions(request))
	if err != nil {
		return s.toolError("consent_single_create", err), nil
	}

	return mcp.NewToolResultJSON(resp)
}

func (s *Server) handleSingleConsentGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	consentID, err := request.RequireString("consent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	consent, err := s.debit.GetSingleConsent(ctx, consentID, callOptions(request))
	if err != nil {
		return s.toolError("consent_single_get", err), nil
	}

	return mcp.NewToolResultJSON(consent)
}

// RevokeResponse is the response for the revoke tools
type RevokeResponse struct {
	ID      string `json:"id"`
	Revoked bool   `json:"revoked"`
}

func (s *Server) handleSingleConsentRevoke(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	consentID, err := request.RequireString("consent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.debit.RevokeSingleConsent(ctx, consentID, callOptions(request)); err != nil {
		return s.toolError("consent_single_revoke", err), nil
	}

	return mcp.NewToolResultJSON(RevokeResponse{ID: consentID, Revoked: true})
}

// Enduring consent handlers

func (s *Server) handleEnduringConsentCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flow, err := flowFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	period, err := request.RequireString("period")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	maxPeriod, err := request.RequireString("maximum_amount_period")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	from, err := optionalTime(request, "from_timestamp")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if from == nil {
		now := time.Now().UTC()
		from = &now
	}
	expiry, err := optionalTime(request, "expiry_timestamp")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := &debit.EnduringConsentRequest{
		Flow:                flow,
		FromTimestamp:       *from,
		ExpiryTimestamp:     expiry,
		Period:              debit.Period(period),
		MaximumAmountPeriod: debit.NZD(maxPeriod),
	}
	if maxPayment := request.GetString("maximum_amount_payment", ""); maxPayment != "" {
		a := debit.NZD(maxPayment)
		req.MaximumAmountPayment = &a
	}

	resp, err := s.debit.CreateEnduringConsent(ctx, req, callOptions(request))
	if err != nil {
		return s.toolError("consent_enduring_create", err), nil
	}

	return mcp.NewToolResultJSON(resp)
}

func (s *Server) handleEnduringConsentGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	consentID, err := request.RequireString("consent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	consent, err := s.debit.GetEnduringConsent(ctx, consentID, callOptions(request))
	if err != nil {
		return s.toolError("consent_enduring_get", err), nil
	}

	return mcp.NewToolResultJSON(consent)
}

func (s *Server) handleEnduringConsentRevoke(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	consentID, err := request.RequireString("consent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.debit.RevokeEnduringConsent(ctx, consentID, callOptions(request)); err != nil {
		return s.toolError("consent_enduring_revoke", err), nil
	}

	return mcp.NewToolResultJSON(RevokeResponse{ID: consentID, Revoked: true})
}

// Quick payment handlers

func (s *Server) handleQuickPaymentCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flow, err := flowFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := request.RequireString("amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.debit.CreateQuickPayment(ctx, &debit.QuickPaymentRequest{
		Flow:   flow,
		Pcr:    pcrFromRequest(request),
		Amount: debit.NZD(amount),
	}, callOptions(request))
	if err != nil {
		return s.toolError("quick_payment_create", err), nil
	}

	return mcp.NewToolResultJSON(resp)
}

func (s *Server) handleQuickPaymentGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("quick_payment_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	qp, err := s.debit.GetQuickPayment(ctx, id, callOptions(request))
	if err != nil {
		return s.toolError("quick_payment_get", err), nil
	}

	return mcp.NewToolResultJSON(qp)
}

func (s *Server) handleQuickPaymentRevoke(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("quick_payment_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.debit.RevokeQuickPayment(ctx, id, callOptions(request)); err != nil {
		return s.toolError("quick_payment_revoke", err), nil
	}

	return mcp.NewToolResultJSON(RevokeResponse{ID: id, Revoked: true})
}

// Payment handlers

func (s *Server) handlePaymentCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	consentID, err := request.RequireString("consent_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := &debit.PaymentRequest{ConsentID: consentID}
	if amount := request.GetString("amount", ""); amount != "" {
		req.EnduringPaymentRequest = &debit.EnduringPaymentRequest{
			Pcr:    pcrFromRequest(request),
			Amount: debit.NZD(amount),
		}
	}

	resp, err := s.debit.CreatePayment(ctx, req, callOptions(request))
	if err != nil {
		return s.toolError("payment_create", err), nil
	}

	return mcp.NewToolResultJSON(resp)
}

func (s *Server) handlePaymentGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paymentID, err := request.RequireString("payment_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	payment, err := s.debit.GetPayment(ctx, paymentID, callOptions(request))
	if err != nil {
		return s.toolError("payment_get", err), nil
	}

	return mcp.NewToolResultJSON(payment)
}

// Refund handlers

func (s *Server) handleRefundCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refundType, err := request.RequireString("refund_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paymentID, err := request.RequireString("payment_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var detail debit.RefundDetail
	switch refundType {
	case debit.RefundAccountNumber:
		detail = debit.AccountNumberRefund{PaymentID: paymentID}
	case debit.RefundFull:
		detail = debit.FullRefund{
			PaymentID:       paymentID,
			Pcr:             pcrFromRequest(request),
			ConsentRedirect: request.GetString("consent_redirect", ""),
		}
	case debit.RefundPartial:
		detail = debit.PartialRefund{
			PaymentID:       paymentID,
			Pcr:             pcrFromRequest(request),
			Amount:          debit.NZD(request.GetString("amount", "")),
			ConsentRedirect: request.GetString("consent_redirect", ""),
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown refund_type %q", refundType)), nil
	}

	resp, err := s.debit.CreateRefund(ctx, detail, callOptions(request))
	if err != nil {
		return s.toolError("refund_create", err), nil
	}

	return mcp.NewToolResultJSON(resp)
}

func (s *Server) handleRefundGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	refundID, err := request.RequireString("refund_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	refund, err := s.debit.GetRefund(ctx, refundID, callOptions(request))
	if err != nil {
		return s.toolError("refund_get", err), nil
	}

	return mcp.NewToolResultJSON(refund)
}

// AuthStatusResponse is the response for auth_status tool
type AuthStatusResponse struct {
	Valid   bool            `json:"valid"`
	Message string          `json:"message"`
	Token   *auth.TokenInfo `json:"token,omitempty"`
}

func (s *Server) handleAuthStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := s.tokens.GetValidToken(ctx); err != nil {
		return mcp.NewToolResultJSON(AuthStatusResponse{
			Valid:   false,
			Message: fmt.Sprintf("auth check failed: %v", err),
		})
	}

	info := s.tokens.Info()
	return mcp.NewToolResultJSON(AuthStatusResponse{
		Valid:   true,
		Message: "authentication is valid",
		Token:   &info,
	})
}

// ListTools returns all registered tools
func (s *Server) ListTools() []mcp.Tool {
	serverTools := s.mcp.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, st := range serverTools {
		tools = append(tools, st.Tool)
	}
	return tools
}

// Serve starts the MCP server with stdio transport
func (s *Server) Serve(ctx context.Context) error {
	return server.ServeStdio(s.mcp)
}
