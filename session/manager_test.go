package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusgate/portalauth/authmodel"
	"github.com/campusgate/portalauth/credstore"
	"github.com/campusgate/portalauth/session"
	"github.com/campusgate/portalauth/session/backendfake"
)

const (
	testUsername = "alice"
	testPassword = "correct-horse"
	testTOTPCode = "123456"
	testAdmin    = "root"
	testAdminPwd = "super-secret"
)

type testFixture struct {
	backend *backendfake.FakeBackend
	store   *credstore.MemoryStore
	manager *session.Manager
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	b := backendfake.New()
	st := credstore.NewMemoryStore()
	m, err := session.NewManager(b, st)
	require.NoError(t, err)

	return &testFixture{backend: b, store: st, manager: m}
}

// addStudent registers alice, a student with an authenticator enrolled.
func (f *testFixture) addStudent(t *testing.T) {
	t.Helper()
	f.backend.AddAccount(testUsername, backendfake.Account{
		Password: testPassword,
		TOTPCode: testTOTPCode,
		User: authmodel.User{
			UserID:   "user-1",
			Username: testUsername,
			UserType: authmodel.UserTypeStudent,
		},
	})
}

// addTeacher registers bob, a teacher with no authenticator (2FA exempt).
func (f *testFixture) addTeacher(t *testing.T) {
	t.Helper()
	f.backend.AddAccount("bob", backendfake.Account{
		Password: testPassword,
		User: authmodel.User{
			UserID:   "user-2",
			Username: "bob",
			UserType: authmodel.UserTypeTeacher,
		},
	})
}

func (f *testFixture) addAdmin(t *testing.T) {
	t.Helper()
	f.backend.AddAccount(testAdmin, backendfake.Account{
		Password: testAdminPwd,
		User: authmodel.User{
			UserID:   "user-9",
			Username: testAdmin,
			UserType: authmodel.UserTypeAdmin,
		},
	})
}

// authenticate drives alice through the full two-phase login.
func (f *testFixture) authenticate(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.manager.Login(ctx, testUsername, testPassword))
	require.NoError(t, f.manager.Verify2FA(ctx, testTOTPCode))
	require.Equal(t, session.StateAuthenticated, f.manager.State())
}

func TestLoginThenVerify2FA_Authenticates(t *testing.T) {
	f := setupTestFixture(t)
	f.addStudent(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, testUsername, testPassword))
	require.Equal(t, session.StatePendingTwoFactor, f.manager.State())

	snap := f.manager.Snapshot()
	require.NotEmpty(t, snap.RefreshToken)
	require.Empty(t, snap.AccessToken, "no access token before the second factor")

	require.NoError(t, f.manager.Verify2FA(ctx, testTOTPCode))
	require.Equal(t, session.StateAuthenticated, f.manager.State())

	snap = f.manager.Snapshot()
	require.NotEmpty(t, snap.AccessToken)
	require.NotNil(t, snap.User)
	require.Equal(t, authmodel.UserTypeStudent, snap.User.UserType)

	access, refresh, err := f.store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, snap.AccessToken, access)
	require.Equal(t, snap.RefreshToken, refresh)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := setupTestFixture(t)
	f.addStudent(t)
	ctx := context.Background()

	err := f.manager.Login(ctx, testUsername, "wrong-password")
	require.ErrorIs(t, err, authmodel.ErrInvalidCredentials)
	require.Equal(t, session.StateAnonymous, f.manager.State())

	access, refresh, loadErr := f.store.Load(ctx)
	require.NoError(t, loadErr)
	require.Empty(t, access)
	require.Empty(t, refresh)
}

func TestLogin_EmptyCredentialsRejectedLocally(t *testing.T) {
	f := setupTestFixture(t)

	err := f.manager.Login(context.Background(), "", "")
	require.ErrorIs(t, err, authmodel.ErrValidation)
	require.Equal(t, session.StateAnonymous, f.manager.State())
}

func TestVerify2FA_WrongCodePreservesRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	f.addStudent(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, testUsername, testPassword))
	before := f.manager.Snapshot().RefreshToken

	err := f.manager.Verify2FA(ctx, "000000")
	require.ErrorIs(t, err, authmodel.ErrInvalidTOTP)
	require.Equal(t, session.StatePendingTwoFactor, f.manager.State())
	require.Equal(t, before, f.manager.Snapshot().RefreshToken, "user may retry without re-entering the password")
}

func TestVerify2FA_MalformedCodeRejectedLocally(t *testing.T) {
	f := setupTestFixture(t)
	f.addStudent(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, testUsername, testPassword))
	require.ErrorIs(t, f.manager.Verify2FA(ctx, "12ab56"), authmodel.ErrValidation)
	require.ErrorIs(t, f.manager.Verify2FA(ctx, "12345"), authmodel.ErrValidation)
}

func TestVerify2FA_WithoutPendingLogin(t *testing.T) {
	f := setupTestFixture(t)

	err := f.manager.Verify2FA(context.Background(), testTOTPCode)
	require.ErrorIs(t, err, session.ErrNotPendingTwoFactor)
}

func TestLoginWithoutTwoFactor(t *testing.T) {
	f := setupTestFixture(t)
	f.addTeacher(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, "bob", testPassword))

	has2FA, err := f.manager.Check2FAStatus(ctx)
	require.NoError(t, err)
	require.False(t, has2FA)

	require.NoError(t, f.manager.LoginWithoutTwoFactor(ctx))
	require.Equal(t, session.StateAuthenticated, f.manager.State())
	require.Equal(t, authmodel.UserTypeTeacher, f.manager.Snapshot().User.UserType)
}

func TestLoginWithoutTwoFactor_RejectedWhenEnrolled(t *testing.T) {
	f := setupTestFixture(t)
	f.addStudent(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Login(ctx, testUsername, testPassword))

	has2FA, err := f.manager.Check2FAStatus(ctx)
	require.NoError(t, err)
	require.True(t, has2FA)

	require.ErrorIs(t, f.manager.LoginWithoutTwoFactor(ctx), authmodel.ErrInvalidTOTP)
	require.Equal(t, session.StatePendingTwoFactor, f.manager.State())
}

func TestLogout_AlwaysClearsLocalState(t *testing.T) {
	f := setupTestFixture(t)
	f.addStudent(t)
	f.authenticate(t)
	ctx := context.Background()

	f.backend.FailWith("logout", authmodel.NewAuthError(authmodel.ErrNetwork, "connection refused"))

	f.manager.Logout(ctx)
	require.Equal(t, session.StateAnonymous, f.manager.State())

	access, refresh, err := f.store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, access)
	require.Empty(t, refresh)
}

func TestExpiredTokenOnAuthenticatedCallForcesLogout(t *testing.T) {
	f := setupTestFixture(t)
	f.addStudent(t)
	ctx := context.Background()

	// a restored session holds a token the backend no longer recognises
	require.NoError(t, f.store.Save(ctx, "dead-access-token", ""))
	require.NoError(t, f.manager.Restore(ctx))

	_, err := f.manager.CurrentUser(ctx)
	require.ErrorIs(t, err, authmodel.ErrTokenExpired)
	require.Equal(t, session.StateAnonymous, f.manager.State())

	access, _, loadErr := f.store.Load(ctx)
	require.NoError(t, loadErr)
	require.Empty(t, access)
}

func TestRestore_RefreshTokenOnlyIsPendingTwoFactor(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.Save(ctx, "", "persisted-refresh"))
	require.NoError(t, f.manager.Restore(ctx))
	require.Equal(t, session.StatePendingTwoFactor, f.manager.State())
}

func TestSetTokens_WriteThroughAndClear(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.SetTokens(ctx, "A1", "R1"))
	access, refresh, err := f.store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "A1", access)
	require.Equal(t, "R1", refresh)

	require.NoError(t, f.manager.SetTokens(ctx, "", ""))
	access, refresh, err = f.store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, access)
	require.Empty(t, refresh)
	require.Equal(t, session.StateAnonymous, f.manager.State())
}

func TestRefresh_MintsNewAccessToken(t *testing.T) {
	f := setupTestFixture(t)
	f.addStudent(t)
	f.authenticate(t)
	ctx := context.Background()

	before := f.manager.Snapshot().AccessToken
	require.NoError(t, f.manager.Refresh(ctx, testTOTPCode))

	snap := f.manager.Snapshot()
	require.NotEqual(t, before, snap.AccessToken)
	require.Equal(t, session.StateAuthenticated, f.manager.State())
}

func TestRefresh_AuthFailureInvalidatesEntireSession(t *testing.T) {
	f := setupTestFixture(t)
	f.addStudent(t)
	f.authenticate(t)
	ctx := context.Background()

	err := f.manager.Refresh(ctx, "000000")
	require.ErrorIs(t, err, authmodel.ErrInvalidTOTP)

	// no partial invalidation: both tokens must go
	require.Equal(t, session.StateAnonymous, f.manager.State())
	access, refresh, loadErr := f.store.Load(ctx)
	require.NoError(t, loadErr)
	require.Empty(t, access)
	require.Empty(t, refresh)
}

func TestRefresh_NetworkFailureLeavesSessionIntact(t *testing.T) {
	f := setupTestFixture(t)
	f.addStudent(t)
	f.authenticate(t)
	ctx := context.Background()

	f.backend.FailWith("refresh", authmodel.NewAuthError(authmodel.ErrNetwork, "timeout"))

	err := f.manager.Refresh(ctx, testTOTPCode)
	require.ErrorIs(t, err, authmodel.ErrNetwork)
	require.Equal(t, session.StateAuthenticated, f.manager.State())
}

func TestRegisterFlow(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	totpURI, err := f.manager.Register(ctx, "carol", "password123", authmodel.UserTypeStudent, "REG-42")
	require.NoError(t, err)
	require.Contains(t, totpURI, "otpauth://totp/")
	require.Equal(t, session.StatePendingTwoFactor, f.manager.State())

	// the enrollment secret stays in memory only
	_, refresh, loadErr := f.store.Load(ctx)
	require.NoError(t, loadErr)
	require.NotEmpty(t, refresh)
	require.Equal(t, totpURI, f.manager.Snapshot().TOTPURI)

	require.NoError(t, f.manager.CompleteRegistration(ctx, f.backend.EnrollCode))
	snap := f.manager.Snapshot()
	require.Equal(t, session.StateAuthenticated, f.manager.State())
	require.Equal(t, "carol", snap.User.Username)
	require.Empty(t, snap.TOTPURI, "enrollment URI is display-once")
}

func TestRegister_WeakPasswordRejectedLocally(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.Register(context.Background(), "carol", "short", authmodel.UserTypeStudent, "")
	require.ErrorIs(t, err, authmodel.ErrValidation)
}

func TestResetTwoFactor_ReturnsToAnonymous(t *testing.T) {
	f := setupTestFixture(t)
	f.addStudent(t)
	f.authenticate(t)
	ctx := context.Background()

	f.backend.AddResetCode("RESET-1", testUsername)
	require.NoError(t, f.manager.ResetTwoFactor(ctx, "RESET-1", "999999"))
	require.Equal(t, session.StateAnonymous, f.manager.State())

	// the replacement authenticator works on the next login
	require.NoError(t, f.manager.Login(ctx, testUsername, testPassword))
	require.NoError(t, f.manager.Verify2FA(ctx, "999999"))
	require.Equal(t, session.StateAuthenticated, f.manager.State())
}

func TestAdminLogin_SinglePhase(t *testing.T) {
	f := setupTestFixture(t)
	f.addAdmin(t)
	ctx := context.Background()

	require.NoError(t, f.manager.AdminLogin(ctx, testAdmin, testAdminPwd))

	snap := f.manager.Snapshot()
	require.Equal(t, session.StateAuthenticated, f.manager.State())
	require.Equal(t, authmodel.UserTypeAdmin, snap.User.UserType)
	require.Empty(t, snap.RefreshToken, "admin login issues no refresh token")
}

func TestDuplicateLoginRejectedWhileInFlight(t *testing.T) {
	f := setupTestFixture(t)
	f.addStudent(t)
	ctx := context.Background()

	f.backend.LoginStarted = make(chan struct{}, 1)
	f.backend.LoginGate = make(chan struct{})

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- f.manager.Login(ctx, testUsername, testPassword)
	}()
	<-f.backend.LoginStarted

	err := f.manager.Login(ctx, testUsername, testPassword)
	require.ErrorIs(t, err, session.ErrOperationInFlight)

	close(f.backend.LoginGate)
	require.NoError(t, <-firstDone)
	require.Equal(t, session.StatePendingTwoFactor, f.manager.State())
}

func TestLoginResultArrivingAfterClearIsDiscarded(t *testing.T) {
	f := setupTestFixture(t)
	f.addStudent(t)
	ctx := context.Background()

	f.backend.LoginStarted = make(chan struct{}, 1)
	f.backend.LoginGate = make(chan struct{})

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- f.manager.Login(ctx, testUsername, testPassword)
	}()
	<-f.backend.LoginStarted

	// the user logs out while the login response is still in flight
	f.manager.Logout(ctx)
	close(f.backend.LoginGate)

	require.ErrorIs(t, <-firstDone, session.ErrSessionSuperseded)
	require.Equal(t, session.StateAnonymous, f.manager.State())

	access, refresh, err := f.store.Load(ctx)
	require.NoError(t, err)
	require.Empty(t, access)
	require.Empty(t, refresh)
}
