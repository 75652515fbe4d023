// ABOUTME: Request and response models for the Debit API
// ABOUTME: Only the fields the SDK acts on are typed; the rest stays raw JSON

package debit

import (
	"encoding/json"
	"time"
)

// Bank identifies a supported bank
type Bank string

// Supported banks
const (
	BankASB      Bank = "ASB"
	BankANZ      Bank = "ANZ"
	BankBNZ      Bank = "BNZ"
	BankWestpac  Bank = "Westpac"
	BankKiwibank Bank = "KiwiBank"
	BankPNZ      Bank = "PNZ"
)

// CurrencyNZD is the only currency the Debit API accepts
const CurrencyNZD = "NZD"

// Amount is a decimal string total in a currency, e.g. {"total":"25.50","currency":"NZD"}
type Amount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

// NZD builds an Amount in New Zealand dollars
func NZD(total string) Amount {
	return Amount{Total: total, Currency: CurrencyNZD}
}

// Pcr is the particulars, code and reference shown on bank statements
type Pcr struct {
	Particulars string `json:"particulars"`
	Code        string `json:"code,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

// AuthFlow wraps the customer authorisation flow for a consent
type AuthFlow struct {
	Detail AuthFlowDetail `json:"detail"`
}

// SingleConsentRequest creates a consent for one payment
type SingleConsentRequest struct {
	Flow                     AuthFlow `json:"flow"`
	Pcr                      Pcr      `json:"pcr"`
	Amount                   Amount   `json:"amount"`
	HashedCustomerIdentifier string   `json:"hashed_customer_identifier,omitempty"`
}

// Period is how often an enduring consent's maximum amount resets
type Period string

// Enduring consent periods
const (
	PeriodDaily       Period = "daily"
	PeriodWeekly      Period = "weekly"
	PeriodFortnightly Period = "fortnightly"
	PeriodMonthly     Period = "monthly"
	PeriodAnnual      Period = "annual"
)

// EnduringConsentRequest creates a consent for repeated payments
type EnduringConsentRequest struct {
	Flow                     AuthFlow   `json:"flow"`
	FromTimestamp            time.Time  `json:"from_timestamp"`
	ExpiryTimestamp          *time.Time `json:"expiry_timestamp,omitempty"`
	Period                   Period     `json:"period"`
	MaximumAmountPeriod      Amount     `json:"maximum_amount_period"`
	MaximumAmountPayment     *Amount    `json:"maximum_amount_payment,omitempty"`
	HashedCustomerIdentifier string     `json:"hashed_customer_identifier,omitempty"`
}

// QuickPaymentRequest creates a single consent and pays it in one step
type QuickPaymentRequest struct {
	Flow   AuthFlow `json:"flow"`
	Pcr    Pcr      `json:"pcr"`
	Amount Amount   `json:"amount"`
}

// CreateConsentResponse is returned when a consent is created
type CreateConsentResponse struct {
	ConsentID   string `json:"consent_id"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

// CreateQuickPaymentResponse is returned when a quick payment is created
type CreateQuickPaymentResponse struct {
	QuickPaymentID string `json:"quick_payment_id"`
	RedirectURI    string `json:"redirect_uri,omitempty"`
}

// Consent is a single or enduring consent as stored by the API
type Consent struct {
	ConsentID              string          `json:"consent_id"`
	Status                 string          `json:"status"`
	CreationTimestamp      time.Time       `json:"creation_timestamp"`
	StatusUpdatedTimestamp time.Time       `json:"status_updated_timestamp"`
	AccountReferenceID     string          `json:"account_reference_id,omitempty"`
	Detail                 json.RawMessage `json:"detail,omitempty"`
	Payments               []Payment       `json:"payments,omitempty"`
	Refunds                []Refund        `json:"refunds,omitempty"`
}

// QuickPayment is a quick payment with its underlying consent
type QuickPayment struct {
	QuickPaymentID string  `json:"quick_payment_id"`
	Consent        Consent `json:"consent"`
}

// EnduringPaymentRequest carries the amount for a payment against an enduring consent
type EnduringPaymentRequest struct {
	Pcr    Pcr    `json:"pcr"`
	Amount Amount `json:"amount"`
}

// PaymentRequest pays against an authorised consent
type PaymentRequest struct {
	ConsentID              string                  `json:"consent_id"`
	EnduringPaymentRequest *EnduringPaymentRequest `json:"enduring_payment_request,omitempty"`
	AccountReferenceID     string                  `json:"account_reference_id,omitempty"`
}

// PaymentResponse is returned when a payment is created
type PaymentResponse struct {
	PaymentID string `json:"payment_id"`
}

// Payment is a payment as stored by the API
type Payment struct {
	PaymentID              string          `json:"payment_id"`
	Type                   string          `json:"type,omitempty"`
	Status                 string          `json:"status"`
	CreationTimestamp      time.Time       `json:"creation_timestamp"`
	StatusUpdatedTimestamp time.Time       `json:"status_updated_timestamp"`
	AcceptedUntil          *time.Time      `json:"accepted_until,omitempty"`
	Detail                 json.RawMessage `json:"detail,omitempty"`
	Refunds                []Refund        `json:"refunds,omitempty"`
}

// RefundResponse is returned when a refund is created
type RefundResponse struct {
	RefundID      string `json:"refund_id"`
	AccountNumber string `json:"account_number,omitempty"`
}

// Refund is a refund as stored by the API
type Refund struct {
	RefundID               string          `json:"refund_id"`
	Status                 string          `json:"status"`
	CreationTimestamp      time.Time       `json:"creation_timestamp"`
	StatusUpdatedTimestamp time.Time       `json:"status_updated_timestamp"`
	AccountNumber          string          `json:"account_number,omitempty"`
	Detail                 json.RawMessage `json:"detail,omitempty"`
}

// BankMetadata describes one bank's supported features
type BankMetadata struct {
	Name         Bank            `json:"name"`
	PaymentLimit *Amount         `json:"payment_limit,omitempty"`
	Features     json.RawMessage `json:"features,omitempty"`
	RedirectFlow json.RawMessage `json:"redirect_flow,omitempty"`
}
