// ABOUTME: Discriminated unions encoded with an explicit "type" field
// ABOUTME: Auth flow details and refund details decode by discriminant, never by shape

package debit

import (
	"encoding/json"
	"fmt"
)

// Auth flow discriminants
const (
	FlowRedirect  = "redirect"
	FlowDecoupled = "decoupled"
	FlowGateway   = "gateway"
)

// AuthFlowDetail is one of RedirectFlow, DecoupledFlow or GatewayFlow
type AuthFlowDetail interface {
	FlowType() string
	isAuthFlowDetail()
}

// RedirectFlow sends the customer to their bank and back to RedirectURI
type RedirectFlow struct {
	Bank          Bank   `json:"bank"`
	RedirectURI   string `json:"redirect_uri"`
	RedirectToApp bool   `json:"redirect_to_app,omitempty"`
}

// DecoupledFlow asks the bank to notify the customer out of band
type DecoupledFlow struct {
	Bank            Bank   `json:"bank"`
	IdentifierType  string `json:"identifier_type"`
	IdentifierValue string `json:"identifier_value"`
	CallbackURL     string `json:"callback_url,omitempty"`
}

// GatewayFlow lets the customer pick their bank on the hosted gateway
type GatewayFlow struct {
	RedirectURI string          `json:"redirect_uri"`
	FlowHint    json.RawMessage `json:"flow_hint,omitempty"`
}

func (RedirectFlow) FlowType() string  { return FlowRedirect }
func (DecoupledFlow) FlowType() string { return FlowDecoupled }
func (GatewayFlow) FlowType() string   { return FlowGateway }

func (RedirectFlow) isAuthFlowDetail()  {}
func (DecoupledFlow) isAuthFlowDetail() {}
func (GatewayFlow) isAuthFlowDetail()   {}

// MarshalJSON adds the "type" discriminant
func (f RedirectFlow) MarshalJSON() ([]byte, error) {
	type plain RedirectFlow
	return marshalTagged(FlowRedirect, plain(f))
}

// MarshalJSON adds the "type" discriminant
func (f DecoupledFlow) MarshalJSON() ([]byte, error) {
	type plain DecoupledFlow
	return marshalTagged(FlowDecoupled, plain(f))
}

// MarshalJSON adds the "type" discriminant
func (f GatewayFlow) MarshalJSON() ([]byte, error) {
	type plain GatewayFlow
	return marshalTagged(FlowGateway, plain(f))
}

// UnmarshalJSON picks the detail type from its "type" field
func (a *AuthFlow) UnmarshalJSON(data []byte) error {
	var raw struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	kind, err := discriminant(raw.Detail)
	if err != nil {
		return fmt.Errorf("auth flow: %w", err)
	}

	switch kind {
	case FlowRedirect:
		var d RedirectFlow
		err = json.Unmarshal(raw.Detail, &d)
		a.Detail = d
	case FlowDecoupled:
		var d DecoupledFlow
		err = json.Unmarshal(raw.Detail, &d)
		a.Detail = d
	case FlowGateway:
		var d GatewayFlow
		err = json.Unmarshal(raw.Detail, &d)
		a.Detail = d
	default:
		return fmt.Errorf("auth flow: unknown type %q", kind)
	}
	return err
}

// Refund discriminants
const (
	RefundAccountNumber = "account_number"
	RefundFull          = "full_refund"
	RefundPartial       = "partial_refund"
)

// RefundDetail is one of AccountNumberRefund, FullRefund or PartialRefund
type RefundDetail interface {
	RefundType() string
	isRefundDetail()
}

// AccountNumberRefund asks only for the payer's account number
type AccountNumberRefund struct {
	PaymentID string `json:"payment_id"`
}

// FullRefund refunds the whole payment
type FullRefund struct {
	PaymentID       string `json:"payment_id"`
	Pcr             Pcr    `json:"pcr"`
	ConsentRedirect string `json:"consent_redirect,omitempty"`
}

// PartialRefund refunds part of the payment
type PartialRefund struct {
	PaymentID       string `json:"payment_id"`
	Pcr             Pcr    `json:"pcr"`
	Amount          Amount `json:"amount"`
	ConsentRedirect string `json:"consent_redirect,omitempty"`
}

func (AccountNumberRefund) RefundType() string { return RefundAccountNumber }
func (FullRefund) RefundType() string          { return RefundFull }
func (PartialRefund) RefundType() string       { return RefundPartial }

func (AccountNumberRefund) isRefundDetail() {}
func (FullRefund) isRefundDetail()          {}
func (PartialRefund) isRefundDetail()       {}

// MarshalJSON adds the "type" discriminant
func (r AccountNumberRefund) MarshalJSON() ([]byte, error) {
	type plain AccountNumberRefund
	return marshalTagged(RefundAccountNumber, plain(r))
}

// MarshalJSON adds the "type" discriminant
func (r FullRefund) MarshalJSON() ([]byte, error) {
	type plain FullRefund
	return marshalTagged(RefundFull, plain(r))
}

// MarshalJSON adds the "type" discriminant
func (r PartialRefund) MarshalJSON() ([]byte, error) {
	type plain PartialRefund
	return marshalTagged(RefundPartial, plain(r))
}

// DecodeRefundDetail decodes a refund detail by its "type" field
func DecodeRefundDetail(data []byte) (RefundDetail, error) {
	kind, err := discriminant(data)
	if err != nil {
		return nil, fmt.Errorf("refund detail: %w", err)
	}

	switch kind {
	case RefundAccountNumber:
		var d AccountNumberRefund
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case RefundFull:
		var d FullRefund
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	case RefundPartial:
		var d PartialRefund
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("refund detail: unknown type %q", kind)
	}
}

// marshalTagged encodes v's fields alongside "type": kind. v must be a struct
// type without its own MarshalJSON.
func marshalTagged(kind string, v interface{}) ([]byte, error) {
	fields, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(fields, &m); err != nil {
		return nil, err
	}
	tag, _ := json.Marshal(kind)
	m["type"] = tag
	return json.Marshal(m)
}

func discriminant(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("missing detail")
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	if head.Type == "" {
		return "", fmt.Errorf("missing \"type\" discriminant")
	}
	return head.Type, nil
}
