// ABOUTME: Tests for client-credentials token issuance
// ABOUTME: Uses an httptest token endpoint returning signed and opaque tokens

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/harper/blinkpay-mcp/pkg/apierror"
	"github.com/harper/blinkpay-mcp/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "merchant",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func tokenServer(t *testing.T, status int, accessToken string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("x-correlation-id", "corr-123")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]string{
				"error":             "invalid_client",
				"error_description": "bad credentials",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClientCredentialsIssuer_ReadsExpiryClaim(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := signedToken(t, exp)
	srv, calls := tokenServer(t, http.StatusOK, access)

	issuer := NewClientCredentialsIssuer(srv.URL, "client-id", "client-secret", srv.Client(), logging.NewNop())
	tok, err := issuer.Issue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, access, tok.Value)
	assert.True(t, exp.Equal(tok.Expiry))
	assert.EqualValues(t, 1, calls.Load())
}

func TestClientCredentialsIssuer_OpaqueTokenCountsAsExpired(t *testing.T) {
	srv, _ := tokenServer(t, http.StatusOK, "not-a-jwt-at-all")

	issuer := NewClientCredentialsIssuer(srv.URL, "client-id", "client-secret", srv.Client(), logging.NewNop())
	tok, err := issuer.Issue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "not-a-jwt-at-all", tok.Value)
	assert.True(t, tok.Expiry.IsZero())
	assert.False(t, tok.ValidAt(time.Now(), DefaultExpiryBuffer))
}

func TestClientCredentialsIssuer_RejectedCredentials(t *testing.T) {
	srv, _ := tokenServer(t, http.StatusUnauthorized, "")

	issuer := NewClientCredentialsIssuer(srv.URL, "client-id", "client-secret", srv.Client(), logging.NewNop())
	_, err := issuer.Issue(context.Background())
	require.Error(t, err)

	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.AuthenticationFailed, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "corr-123", apiErr.CorrelationID)
	assert.Equal(t, "invalid_client", apiErr.Code)
}

func TestClientCredentialsIssuer_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	issuer := NewClientCredentialsIssuer(url, "client-id", "client-secret", nil, logging.NewNop())
	_, err := issuer.Issue(context.Background())

	assert.True(t, apierror.Is(err, apierror.AuthenticationFailed))
}

func TestCache_WithClientCredentialsIssuer(t *testing.T) {
	access := signedToken(t, time.Now().Add(time.Hour))
	srv, calls := tokenServer(t, http.StatusOK, access)

	issuer := NewClientCredentialsIssuer(srv.URL, "client-id", "client-secret", srv.Client(), logging.NewNop())
	cache := NewCache(issuer, WithLogger(logging.NewNop()))

	for i := 0; i < 3; i++ {
		tok, err := cache.GetValidToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, access, tok.Value)
	}
	assert.EqualValues(t, 1, calls.Load())
}
