// ABOUTME: Log-safe views of headers and bodies
// ABOUTME: Bearer tokens are masked before anything reaches the logger

package client

import (
	"net/http"
	"strings"

	"github.com/harper/blinkpay-mcp/pkg/auth"
)

// maxLoggedBody caps how much of a body is logged
const maxLoggedBody = 4096

// sanitizeHeaders flattens h for logging with credentials masked
func sanitizeHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		value := strings.Join(values, ", ")
		switch http.CanonicalHeaderKey(key) {
		case "Authorization", "Proxy-Authorization":
			value = maskCredential(value)
		}
		out[key] = value
	}
	return out
}

func maskCredential(value string) string {
	scheme, cred, ok := strings.Cut(value, " ")
	if !ok {
		return auth.MaskToken(value)
	}
	return scheme + " " + auth.MaskToken(cred)
}

func truncateBody(body []byte) string {
	if len(body) <= maxLoggedBody {
		return string(body)
	}
	return string(body[:maxLoggedBody]) + "...(truncated)"
}
