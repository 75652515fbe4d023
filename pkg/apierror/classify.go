// ABOUTME: Maps failed HTTP responses onto the error taxonomy
// ABOUTME: Never fails itself: bad bodies become InternalError diagnostics

package apierror

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// CorrelationIDHeader is the response header carrying the server-side correlation id
const CorrelationIDHeader = "x-correlation-id"

// emptyBodyMessage is used when an error response has nothing usable in it
const emptyBodyMessage = "empty/unparsable response"

// errorBody is the error shape returned by the Debit API and its token endpoint
type errorBody struct {
	Code             string `json:"code"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// message picks the most descriptive text present
func (b errorBody) message() string {
	switch {
	case b.Message != "":
		return b.Message
	case b.ErrorDescription != "":
		return b.ErrorDescription
	default:
		return b.Error
	}
}

// Classify turns a non-2xx response into a classified *Error.
//
// 401/403 map to Unauthorized, 404 to NotFound, 422 to InvalidValue and 5xx to
// ServiceError. Any other status, and any non-5xx response whose body is empty
// or not in the expected shape, is InternalError.
func Classify(status int, header http.Header, body []byte) *Error {
	parsed, ok := parseBody(body)

	e := &Error{StatusCode: status}
	if ok {
		e.Code = parsed.Code
		if parsed.Error != "" && e.Code == "" {
			e.Code = parsed.Error
		}
	}

	switch {
	case status >= 500 && status <= 599:
		e.Kind = ServiceError
		if ok {
			e.Message = parsed.message()
		} else {
			e.Message = http.StatusText(status)
		}
		if status == http.StatusBadGateway {
			e.CorrelationID = header.Get(CorrelationIDHeader)
			if e.CorrelationID != "" {
				e.Message = fmt.Sprintf("%s (correlation id %s)", e.Message, e.CorrelationID)
			}
		}
		return e
	case !ok:
		e.Kind = InternalError
		e.Message = emptyBodyMessage
		return e
	}

	e.Message = parsed.message()
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Kind = Unauthorized
	case http.StatusNotFound:
		e.Kind = NotFound
	case http.StatusUnprocessableEntity:
		e.Kind = InvalidValue
	default:
		e.Kind = InternalError
	}
	return e
}

// parseBody decodes an error body; ok is false when it is empty, not JSON, or
// carries no usable text
func parseBody(body []byte) (errorBody, bool) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return errorBody{}, false
	}
	var b errorBody
	if err := json.Unmarshal(body, &b); err != nil {
		return errorBody{}, false
	}
	if b.message() == "" && b.Code == "" {
		return errorBody{}, false
	}
	return b, true
}
