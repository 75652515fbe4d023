// ABOUTME: MCP prompts for common payment workflows
// ABOUTME: Guide the client through collecting a payment and issuing a refund

package server

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// registerPrompts registers all MCP prompts
func (s *Server) registerPrompts() {
	// Take a one-off payment
	s.mcp.AddPrompt(
		mcp.NewPrompt(
			"collect_payment",
			mcp.WithPromptDescription("Take a one-off payment from a customer with a quick payment"),
			mcp.WithArgument("amount", mcp.ArgumentDescription("Amount in NZD, e.g. 25.50"), mcp.RequiredArgument()),
			mcp.WithArgument("reference", mcp.ArgumentDescription("Reference shown on the customer's statement")),
			mcp.WithArgument("redirect_uri", mcp.ArgumentDescription("Where to send the customer afterwards")),
		),
		s.handleCollectPaymentPrompt,
	)

	// Set up recurring payments
	s.mcp.AddPrompt(
		mcp.NewPrompt(
			"setup_recurring_payments",
			mcp.WithPromptDescription("Set up an enduring consent for recurring payments"),
			mcp.WithArgument("maximum_amount", mcp.ArgumentDescription("Maximum NZD per period"), mcp.RequiredArgument()),
			mcp.WithArgument("period", mcp.ArgumentDescription("daily/weekly/fortnightly/monthly/annual (default: monthly)")),
		),
		s.handleRecurringPaymentsPrompt,
	)

	// Refund a payment
	s.mcp.AddPrompt(
		mcp.NewPrompt(
			"refund_payment",
			mcp.WithPromptDescription("Refund a payment in full or in part"),
			mcp.WithArgument("payment_id", mcp.ArgumentDescription("The payment to refund"), mcp.RequiredArgument()),
			mcp.WithArgument("amount", mcp.ArgumentDescription("Amount to refund; omit for a full refund")),
		),
		s.handleRefundPaymentPrompt,
	)
}

func (s *Server) handleCollectPaymentPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	amount := request.Params.Arguments["amount"]
	reference := request.Params.Arguments["reference"]
	redirectURI := request.Params.Arguments["redirect_uri"]

	if amount == "" {
		return nil, fmt.Errorf("amount argument is required")
	}
	if redirectURI == "" {
		redirectURI = "(ask me for the return URL)"
	}

	promptText := fmt.Sprintf(`I'll help you collect a payment of NZD %s. Here's what I'll do:

1. **Check the supported banks** by reading the blinkpay://meta/banks resource
2. **Create a quick payment** using quick_payment_create with:
   - flow_type: gateway (the customer picks their bank), or redirect if you know their bank
   - amount: %s
   - particulars/reference: %q
   - redirect_uri: %s
3. **Share the returned redirect URL** with the customer
4. **Check the result** with quick_payment_get once the customer has authorised

**Important:** Keep the idempotency_key from step 2. If the call fails or times out, retry with the SAME key so the customer is never charged twice.`, amount, amount, reference, redirectURI)

	messages := []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
	}

	return mcp.NewGetPromptResult("Quick payment workflow", messages), nil
}

func (s *Server) handleRecurringPaymentsPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	maximum := request.Params.Arguments["maximum_amount"]
	period := request.Params.Arguments["period"]

	if maximum == "" {
		return nil, fmt.Errorf("maximum_amount argument is required")
	}
	if period == "" {
		period = "monthly"
	}

	promptText := fmt.Sprintf(`I'll set up recurring payments of up to NZD %s per %s period:

1. **Create an enduring consent** using consent_enduring_create with period %q and maximum_amount_period %s
2. **Send the customer to the redirect URL** to authorise it
3. **Confirm it is authorised** with consent_enduring_get
4. **Take each payment** with payment_create, passing consent_id, amount and particulars

The customer can cancel at any time; consent_enduring_revoke stops further payments.`, maximum, period, period, maximum)

	messages := []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
	}

	return mcp.NewGetPromptResult("Enduring consent workflow", messages), nil
}

func (s *Server) handleRefundPaymentPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	paymentID := request.Params.Arguments["payment_id"]
	amount := request.Params.Arguments["amount"]

	if paymentID == "" {
		return nil, fmt.Errorf("payment_id argument is required")
	}

	refund := "refund_type full_refund"
	if amount != "" {
		refund = fmt.Sprintf("refund_type partial_refund and amount %s", amount)
	}

	promptText := fmt.Sprintf(`I'll refund payment %s:

1. **Look up the payment** with payment_get and confirm it settled
2. **Create the refund** using refund_create with payment_id %s, %s and particulars for the customer's statement
3. **Check the refund** with refund_get

**Important:** Never refund more than the original payment amount.`, paymentID, paymentID, refund)

	messages := []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
	}

	return mcp.NewGetPromptResult("Refund workflow", messages), nil
}
