package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// TokenSource exposes the session's access token as an oauth2.TokenSource so
// portal API clients can be built with oauth2.NewClient. The source never
// refreshes on its own: minting a new access token needs a fresh TOTP code,
// which only the user can supply.
func (m *Manager) TokenSource() oauth2.TokenSource {
	return tokenSource{m: m}
}

type tokenSource struct {
	m *Manager
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	s := ts.m.Snapshot()
	if s.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       accessTokenExpiry(s.AccessToken),
	}, nil
}

// accessTokenExpiry reads the exp claim without verifying the signature;
// verification is the backend's job. Opaque (non-JWT) tokens yield a zero
// expiry, which oauth2 treats as never-expiring.
func accessTokenExpiry(raw string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
