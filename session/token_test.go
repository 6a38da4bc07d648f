package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/campusgate/portalauth/session"
)

func signedTestToken(t *testing.T, expiry time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(expiry),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestTokenSource_NotAuthenticated(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.TokenSource().Token()
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestTokenSource_ExposesExpiryFromJWT(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	expiry := time.Now().Add(15 * time.Minute)
	require.NoError(t, f.manager.SetTokens(ctx, signedTestToken(t, expiry), "R1"))

	tok, err := f.manager.TokenSource().Token()
	require.NoError(t, err)
	require.Equal(t, "Bearer", tok.TokenType)
	require.Equal(t, "R1", tok.RefreshToken)
	require.WithinDuration(t, expiry, tok.Expiry, time.Second)
}

func TestTokenSource_OpaqueTokenHasNoExpiry(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetTokens(ctx, "opaque-access-token", ""))

	tok, err := f.manager.TokenSource().Token()
	require.NoError(t, err)
	require.True(t, tok.Expiry.IsZero())
}
