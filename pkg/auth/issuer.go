// ABOUTME: OAuth2 client-credentials token issuance for the Debit API
// ABOUTME: Reads expiry from the token's own exp claim; unreadable means expired

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/harper/blinkpay-mcp/pkg/apierror"
	"github.com/harper/blinkpay-mcp/pkg/logging"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Issuer obtains a new bearer token
type Issuer interface {
	Issue(ctx context.Context) (Token, error)
}

// ClientCredentialsIssuer exchanges a client id and secret for a token at the
// token endpoint
type ClientCredentialsIssuer struct {
	config     clientcredentials.Config
	httpClient *http.Client
	logger     logging.Logger
}

// NewClientCredentialsIssuer creates an issuer for the given endpoint and
// credentials. A nil httpClient uses http.DefaultClient.
func NewClientCredentialsIssuer(tokenURL, clientID, clientSecret string, httpClient *http.Client, logger logging.Logger) *ClientCredentialsIssuer {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &ClientCredentialsIssuer{
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		logger:     logger,
	}
}

// Issue performs one client-credentials exchange. Any failure is reported as
// AuthenticationFailed.
func (i *ClientCredentialsIssuer) Issue(ctx context.Context) (Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, i.httpClient)

	raw, err := i.config.Token(ctx)
	if err != nil {
		return Token{}, authFailure(err)
	}
	if raw.AccessToken == "" {
		return Token{}, apierror.New(apierror.AuthenticationFailed, "token endpoint returned no access token")
	}

	claim := readExpiry(raw.AccessToken)
	if u, ok := claim.(unparsableExpiry); ok {
		i.logger.Warn("Access token expiry unreadable, treating token as expired",
			logging.Err(u.reason))
	}

	token := Token{Value: raw.AccessToken, Expiry: claim.expiresAt()}
	i.logger.Debug("Issued access token",
		logging.String("token", MaskToken(token.Value)),
		logging.Time("expiry", token.Expiry))

	return token, nil
}

func authFailure(err error) *apierror.Error {
	e := apierror.Wrap(apierror.AuthenticationFailed, "unable to obtain access token", err)

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		e.StatusCode = retrieveErr.Response.StatusCode
		e.CorrelationID = retrieveErr.Response.Header.Get(apierror.CorrelationIDHeader)
		if retrieveErr.ErrorCode != "" {
			e.Code = retrieveErr.ErrorCode
		}
		e.Message = fmt.Sprintf("token endpoint rejected client credentials (HTTP %d)", e.StatusCode)
	}
	return e
}

// expiryClaim is the outcome of reading a token's exp claim: either
// parsedExpiry or unparsableExpiry
type expiryClaim interface {
	expiresAt() time.Time
}

type parsedExpiry struct {
	at time.Time
}

func (p parsedExpiry) expiresAt() time.Time {
	return p.at
}

type unparsableExpiry struct {
	reason error
}

// expiresAt is the zero time, which Token treats as already expired
func (unparsableExpiry) expiresAt() time.Time {
	return time.Time{}
}

// readExpiry extracts the exp claim without verifying the signature; the
// token endpoint is trusted and only the lifetime is wanted here
func readExpiry(accessToken string) expiryClaim {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return unparsableExpiry{reason: err}
	}
	if claims.ExpiresAt == nil {
		return unparsableExpiry{reason: errors.New("token has no exp claim")}
	}
	return parsedExpiry{at: claims.ExpiresAt.Time}
}
