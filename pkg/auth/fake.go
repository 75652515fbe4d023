// ABOUTME: Fake token issuance for local and test mode
// ABOUTME: Hands out a fixed bearer token without calling the token endpoint

package auth

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// StaticIssuer issues the same token every time, valid for Lifetime from the
// moment of issue
type StaticIssuer struct {
	Value    string
	Lifetime time.Duration
	Now      func() time.Time

	issued atomic.Int64
}

// NewFakeIssuer creates a StaticIssuer. An empty value falls back to the
// BLINKPAY_FAKE_USER environment variable, then "testuser".
func NewFakeIssuer(value string) *StaticIssuer {
	if value == "" {
		user := os.Getenv("BLINKPAY_FAKE_USER")
		if user == "" {
			user = "testuser"
		}
		value = fmt.Sprintf("user:%s", user)
	}
	return &StaticIssuer{Value: value, Lifetime: time.Hour}
}

// Issue returns the fixed token
func (s *StaticIssuer) Issue(ctx context.Context) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}
	s.issued.Add(1)

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return Token{Value: s.Value, Expiry: now().Add(s.Lifetime)}, nil
}

// Issued returns how many tokens have been handed out
func (s *StaticIssuer) Issued() int64 {
	return s.issued.Load()
}
