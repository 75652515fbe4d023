// ABOUTME: Input checks run before a request is sent
// ABOUTME: Failures are InvalidValue errors and never reach the network

package debit

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/harper/blinkpay-mcp/pkg/apierror"
)

// amountPattern matches a positive decimal with at most two places
var amountPattern = regexp.MustCompile(`^\d{1,7}(\.\d{1,2})?$`)

// maxPcrField is the bank statement limit for particulars, code and reference
const maxPcrField = 12

func invalid(format string, args ...interface{}) *apierror.Error {
	return apierror.New(apierror.InvalidValue, fmt.Sprintf(format, args...))
}

func validateAmount(field string, a Amount) error {
	if a.Total == "" {
		return invalid("%s.total is required", field)
	}
	if !amountPattern.MatchString(a.Total) {
		return invalid("%s.total %q is not a decimal amount", field, a.Total)
	}
	if strings.Trim(a.Total, "0.") == "" {
		return invalid("%s.total must be greater than zero", field)
	}
	if a.Currency != CurrencyNZD {
		return invalid("%s.currency must be %s, got %q", field, CurrencyNZD, a.Currency)
	}
	return nil
}

func validatePcr(p Pcr) error {
	if p.Particulars == "" {
		return invalid("pcr.particulars is required")
	}
	fields := []struct{ name, value string }{
		{"particulars", p.Particulars},
		{"code", p.Code},
		{"reference", p.Reference},
	}
	for _, f := range fields {
		if utf8.RuneCountInString(f.value) > maxPcrField {
			return invalid("pcr.%s must be at most %d characters", f.name, maxPcrField)
		}
	}
	return nil
}

func validateFlow(f AuthFlow) error {
	switch d := f.Detail.(type) {
	case nil:
		return invalid("flow.detail is required")
	case RedirectFlow:
		if d.Bank == "" {
			return invalid("flow.detail.bank is required for the redirect flow")
		}
		return validateRedirectURI(d.RedirectURI)
	case DecoupledFlow:
		if d.Bank == "" {
			return invalid("flow.detail.bank is required for the decoupled flow")
		}
		if d.IdentifierType == "" || d.IdentifierValue == "" {
			return invalid("flow.detail identifier_type and identifier_value are required for the decoupled flow")
		}
	case GatewayFlow:
		return validateRedirectURI(d.RedirectURI)
	}
	return nil
}

func validateRedirectURI(raw string) error {
	if raw == "" {
		return invalid("flow.detail.redirect_uri is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return invalid("flow.detail.redirect_uri %q is not an absolute URL", raw)
	}
	return nil
}

// Validate checks a single consent request
func (r *SingleConsentRequest) Validate() error {
	if err := validateFlow(r.Flow); err != nil {
		return err
	}
	if err := validatePcr(r.Pcr); err != nil {
		return err
	}
	return validateAmount("amount", r.Amount)
}

// Validate checks an enduring consent request
func (r *EnduringConsentRequest) Validate() error {
	if err := validateFlow(r.Flow); err != nil {
		return err
	}
	if r.Period == "" {
		return invalid("period is required")
	}
	if r.FromTimestamp.IsZero() {
		return invalid("from_timestamp is required")
	}
	if r.ExpiryTimestamp != nil && !r.ExpiryTimestamp.After(r.FromTimestamp) {
		return invalid("expiry_timestamp must be after from_timestamp")
	}
	if err := validateAmount("maximum_amount_period", r.MaximumAmountPeriod); err != nil {
		return err
	}
	if r.MaximumAmountPayment != nil {
		return validateAmount("maximum_amount_payment", *r.MaximumAmountPayment)
	}
	return nil
}

// Validate checks a quick payment request
func (r *QuickPaymentRequest) Validate() error {
	if err := validateFlow(r.Flow); err != nil {
		return err
	}
	if err := validatePcr(r.Pcr); err != nil {
		return err
	}
	return validateAmount("amount", r.Amount)
}

// Validate checks a payment request
func (r *PaymentRequest) Validate() error {
	if r.ConsentID == "" {
		return invalid("consent_id is required")
	}
	if e := r.EnduringPaymentRequest; e != nil {
		if err := validatePcr(e.Pcr); err != nil {
			return err
		}
		return validateAmount("enduring_payment_request.amount", e.Amount)
	}
	return nil
}

func validateRefund(d RefundDetail) error {
	switch r := d.(type) {
	case nil:
		return invalid("refund detail is required")
	case AccountNumberRefund:
		if r.PaymentID == "" {
			return invalid("payment_id is required")
		}
	case FullRefund:
		if r.PaymentID == "" {
			return invalid("payment_id is required")
		}
		return validatePcr(r.Pcr)
	case PartialRefund:
		if r.PaymentID == "" {
			return invalid("payment_id is required")
		}
		if err := validatePcr(r.Pcr); err != nil {
			return err
		}
		return validateAmount("amount", r.Amount)
	}
	return nil
}
