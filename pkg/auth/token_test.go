// ABOUTME: Tests for the Token value type
// ABOUTME: Covers buffer boundaries and masking

package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenValidAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token Token
		want  bool
	}{
		{"expires in 6 minutes", Token{Value: "t", Expiry: now.Add(6 * time.Minute)}, true},
		{"expires in 4 minutes", Token{Value: "t", Expiry: now.Add(4 * time.Minute)}, false},
		{"expires exactly at buffer", Token{Value: "t", Expiry: now.Add(5 * time.Minute)}, false},
		{"already expired", Token{Value: "t", Expiry: now.Add(-time.Minute)}, false},
		{"unknown expiry", Token{Value: "t"}, false},
		{"empty value", Token{Expiry: now.Add(time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.ValidAt(now, DefaultExpiryBuffer))
		})
	}
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "****", MaskToken(""))
	assert.Equal(t, "****", MaskToken("12345678"))
	assert.Equal(t, "eyJh...c2Vy", MaskToken("eyJhbGciOiJIUzI1NiJ9.dXNlc2Vy"))
}

func TestTokenInfo(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok := Token{Value: "eyJhbGciOiJIUzI1NiJ9.payload.signature", Expiry: now.Add(time.Hour)}

	info := tok.Info(now, DefaultExpiryBuffer)

	assert.True(t, info.Valid)
	assert.Equal(t, time.Hour, info.ExpiresIn)
	assert.NotContains(t, info.AccessToken, "payload")
}
