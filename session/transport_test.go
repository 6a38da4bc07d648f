package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusgate/portalauth/session"
)

func TestTransport_InjectsBearerToken(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.SetTokens(context.Background(), "A1", ""))

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	resp, err := f.manager.HTTPClient().Get(srv.URL + "/courses")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "Bearer A1", gotAuth)
}

func TestTransport_UnauthorizedResponseForcesLogout(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.manager.SetTokens(ctx, "A1", "R1"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	resp, err := f.manager.HTTPClient().Get(srv.URL + "/courses")
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, session.StateAnonymous, f.manager.State())
	access, refresh, loadErr := f.store.Load(ctx)
	require.NoError(t, loadErr)
	require.Empty(t, access)
	require.Empty(t, refresh)
}
