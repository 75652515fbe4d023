// ABOUTME: Bearer token value type and display helpers
// ABOUTME: Freshness is judged against a safety buffer before expiry

package auth

import "time"

// DefaultExpiryBuffer is how long before expiry a token stops being handed out
const DefaultExpiryBuffer = 5 * time.Minute

// Token is an issued bearer token. A zero Expiry means the expiry is unknown
// and the token counts as already expired.
type Token struct {
	Value  string
	Expiry time.Time
}

// ValidAt reports whether the token can still be handed out at now, i.e.
// expiry - buffer is strictly after now
func (t Token) ValidAt(now time.Time, buffer time.Duration) bool {
	if t.Value == "" || t.Expiry.IsZero() {
		return false
	}
	return now.Before(t.Expiry.Add(-buffer))
}

// AuthorizationHeader formats the token for the Authorization header
func (t Token) AuthorizationHeader() string {
	return "Bearer " + t.Value
}

// TokenInfo contains metadata about the cached token, safe to display
type TokenInfo struct {
	Valid       bool          `json:"valid"`
	AccessToken string        `json:"access_token"` // Masked for security
	Expiry      time.Time     `json:"expiry"`
	ExpiresIn   time.Duration `json:"expires_in"`
}

// Info describes t as seen at now
func (t Token) Info(now time.Time, buffer time.Duration) TokenInfo {
	info := TokenInfo{
		Valid:       t.ValidAt(now, buffer),
		AccessToken: MaskToken(t.Value),
		Expiry:      t.Expiry,
	}
	if !t.Expiry.IsZero() {
		info.ExpiresIn = t.Expiry.Sub(now)
	}
	return info
}

// MaskToken returns a masked version of the token for safe display.
// Shows first 4 and last 4 characters, e.g., "eyJh...c2Vy"
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
