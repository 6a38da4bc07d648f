package session

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/campusgate/portalauth/authmodel"
)

const logoutNotifyTimeout = 5 * time.Second

// Manager mediates every state transition of the Session and guarantees the
// stored credentials are never left in an inconsistent pairing: an access
// token is only kept alongside a confirmed user identity, and every mutation
// is written through to the Store.
//
// A Manager is safe for concurrent use. Mutating operations hold a single
// in-flight slot: a duplicate submission while one is outstanding fails fast
// with ErrOperationInFlight instead of racing the first.
type Manager struct {
	backend  Backend
	store    Store
	log      zerolog.Logger
	validate *validator.Validate

	mu      sync.Mutex
	session Session
	epoch   string
	busy    bool
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager initialises a Manager with its required collaborators.
func NewManager(backend Backend, store Store, options ...ManagerOption) (*Manager, error) {
	if backend == nil {
		return nil, errors.New("[NewManager] backend is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}

	m := &Manager{
		backend:  backend,
		store:    store,
		log:      zerolog.Nop(),
		validate: validator.New(),
		epoch:    uuid.NewString(),
	}

	for _, opt := range options {
		opt(m)
	}

	return m, nil
}

// Inputs validated client-side before anything is submitted to the backend.
type credentialsInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type totpInput struct {
	Code string `validate:"required,len=6,numeric"`
}

type registerInput struct {
	Username string             `validate:"required,min=3"`
	Password string             `validate:"required,min=8"`
	UserType authmodel.UserType `validate:"required,oneof=student teacher admin"`
}

// Restore populates the in-memory Session from the Store at startup. The
// tokens are not validated against the backend; a stale token surfaces as a
// failure on the next authenticated call.
func (m *Manager) Restore(ctx context.Context) error {
	access, refresh, err := m.store.Load(ctx)
	if err != nil {
		return errors.Wrap(err, "[Manager.Restore] store.Load")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = Session{AccessToken: access, RefreshToken: refresh}
	return nil
}

// Login submits primary credentials. On success the session holds a refresh
// token and moves to PendingTwoFactor; no access token exists until the
// second factor is verified.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	if err := m.check(credentialsInput{Username: username, Password: password}); err != nil {
		return err
	}

	epoch, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	resp, err := m.backend.Login(ctx, username, password)
	if err != nil {
		return errors.Wrap(err, "[Manager.Login] backend.Login")
	}

	if err := m.apply(ctx, epoch, func(s *Session) {
		*s = Session{RefreshToken: resp.RefreshToken}
	}); err != nil {
		return err
	}

	m.log.Info().Str("username", username).Msg("primary login accepted, awaiting second factor")
	return nil
}

// Verify2FA completes the login with a six-digit TOTP code. A wrong code
// leaves the refresh token intact so the user can retry without re-entering
// their password.
func (m *Manager) Verify2FA(ctx context.Context, code string) error {
	if err := m.check(totpInput{Code: code}); err != nil {
		return err
	}
	return m.completeSecondFactor(ctx, code, m.backend.VerifyTOTP)
}

// LoginWithoutTwoFactor exchanges the refresh token directly for an access
// token. The backend only honours this for accounts with no authenticator
// enrolled (or roles exempt from the second factor).
func (m *Manager) LoginWithoutTwoFactor(ctx context.Context) error {
	return m.completeSecondFactor(ctx, "", m.backend.VerifyTOTP)
}

// Check2FAStatus reports whether the pending identity has an authenticator
// enrolled, deciding between Verify2FA and LoginWithoutTwoFactor.
func (m *Manager) Check2FAStatus(ctx context.Context) (bool, error) {
	refresh := m.refreshTokenSnapshot()
	if refresh == "" {
		return false, ErrNotPendingTwoFactor
	}

	status, err := m.backend.TwoFactorStatus(ctx, refresh)
	if err != nil {
		return false, errors.Wrap(err, "[Manager.Check2FAStatus] backend.TwoFactorStatus")
	}
	return status.Has2FA, nil
}

// Refresh re-derives an access token from the held refresh token plus a
// fresh TOTP code. Any auth-class failure invalidates the entire session:
// a refresh token that cannot mint an access token must not be retained,
// otherwise logged-out and pending-2FA become indistinguishable. Transport
// failures leave the session untouched.
func (m *Manager) Refresh(ctx context.Context, code string) error {
	if err := m.check(totpInput{Code: code}); err != nil {
		return err
	}

	epoch, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	refresh := m.refreshTokenSnapshot()
	if refresh == "" {
		return ErrNotPendingTwoFactor
	}

	tok, err := m.backend.Refresh(ctx, refresh, code)
	if err != nil {
		if !errors.Is(err, authmodel.ErrNetwork) {
			m.mu.Lock()
			m.clearLocked(ctx)
			m.mu.Unlock()
		}
		return errors.Wrap(err, "[Manager.Refresh] backend.Refresh")
	}

	user := m.userSnapshot()
	if user == nil {
		user, err = m.backend.UserInfo(ctx, tok.AccessToken)
		if err != nil {
			return errors.Wrap(err, "[Manager.Refresh] backend.UserInfo")
		}
	}

	return m.apply(ctx, epoch, func(s *Session) {
		s.AccessToken = tok.AccessToken
		s.User = user
	})
}

// Register creates a pending account (phase one). It returns the TOTP
// enrollment URI, which is shown to the user exactly once and is never
// persisted or re-fetchable.
func (m *Manager) Register(ctx context.Context, username, password string, userType authmodel.UserType, registrationCode string) (string, error) {
	if err := m.check(registerInput{Username: username, Password: password, UserType: userType}); err != nil {
		return "", err
	}

	epoch, err := m.begin()
	if err != nil {
		return "", err
	}
	defer m.end()

	resp, err := m.backend.Register(ctx, authmodel.RegisterRequest{
		Username:         username,
		Password:         password,
		UserType:         userType,
		RegistrationCode: registrationCode,
	})
	if err != nil {
		return "", errors.Wrap(err, "[Manager.Register] backend.Register")
	}

	if err := m.apply(ctx, epoch, func(s *Session) {
		*s = Session{RefreshToken: resp.RefreshToken, TOTPURI: resp.TOTPURI}
	}); err != nil {
		return "", err
	}
	return resp.TOTPURI, nil
}

// CompleteRegistration verifies the first code from the newly enrolled
// authenticator and finalises the account, mirroring Verify2FA.
func (m *Manager) CompleteRegistration(ctx context.Context, code string) error {
	if err := m.check(totpInput{Code: code}); err != nil {
		return err
	}
	return m.completeSecondFactor(ctx, code, m.backend.CompleteRegistration)
}

// ResetTwoFactor redeems an administrator-issued one-time reset code against
// a code from the replacement authenticator. On success the old secret is
// gone and the session returns to Anonymous; the user must log in again.
func (m *Manager) ResetTwoFactor(ctx context.Context, resetCode, newTOTPCode string) error {
	if err := m.check(totpInput{Code: newTOTPCode}); err != nil {
		return err
	}

	if _, err := m.begin(); err != nil {
		return err
	}
	defer m.end()

	if err := m.backend.ResetTwoFactor(ctx, resetCode, newTOTPCode); err != nil {
		return errors.Wrap(err, "[Manager.ResetTwoFactor] backend.ResetTwoFactor")
	}

	m.mu.Lock()
	m.clearLocked(ctx)
	m.mu.Unlock()
	return nil
}

// AdminLogin is the single-phase shortcut for administrators: no refresh
// token, no second factor.
func (m *Manager) AdminLogin(ctx context.Context, username, password string) error {
	if err := m.check(credentialsInput{Username: username, Password: password}); err != nil {
		return err
	}

	epoch, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	tok, err := m.backend.AdminLogin(ctx, username, password)
	if err != nil {
		return errors.Wrap(err, "[Manager.AdminLogin] backend.AdminLogin")
	}

	user, err := m.backend.UserInfo(ctx, tok.AccessToken)
	if err != nil {
		return errors.Wrap(err, "[Manager.AdminLogin] backend.UserInfo")
	}

	return m.apply(ctx, epoch, func(s *Session) {
		*s = Session{AccessToken: tok.AccessToken, User: user}
	})
}

// Logout clears all local session state unconditionally and synchronously,
// then notifies the backend on a best-effort basis. The notification is
// fire-and-forget: its outcome never affects the local state.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	access := m.session.AccessToken
	m.clearLocked(ctx)
	m.mu.Unlock()

	if access == "" {
		return
	}

	go func() {
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutNotifyTimeout)
		defer cancel()
		if err := m.backend.Logout(notifyCtx, access); err != nil {
			m.log.Debug().Err(err).Msg("logout notification failed")
		}
	}()
}

// ForceLogout clears the session after an auth failure on an authenticated
// call. Every consumer of the access token reacts identically to the
// token-expired error class, regardless of which call tripped it.
func (m *Manager) ForceLogout(ctx context.Context) {
	m.mu.Lock()
	m.clearLocked(ctx)
	m.mu.Unlock()
	m.log.Info().Msg("session cleared after auth failure")
}

// CurrentUser returns the confirmed identity, resolving it lazily through
// the backend when the session was restored from storage with only tokens.
// A token-expired failure here degrades the session to Anonymous.
func (m *Manager) CurrentUser(ctx context.Context) (*authmodel.User, error) {
	m.mu.Lock()
	if m.session.User != nil {
		u := *m.session.User
		m.mu.Unlock()
		return &u, nil
	}
	access := m.session.AccessToken
	epoch := m.epoch
	m.mu.Unlock()

	if access == "" {
		return nil, ErrNotAuthenticated
	}

	user, err := m.backend.UserInfo(ctx, access)
	if err != nil {
		return nil, m.observeAuthErr(ctx, errors.Wrap(err, "[Manager.CurrentUser] backend.UserInfo"))
	}

	if err := m.apply(ctx, epoch, func(s *Session) {
		s.User = user
	}); err != nil {
		return nil, err
	}
	return user, nil
}

// SetTokens is the primitive write-through setter used by internal flows.
// Setting both tokens to empty strings clears the session entirely.
func (m *Manager) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session.AccessToken = accessToken
	m.session.RefreshToken = refreshToken
	if accessToken == "" {
		m.session.User = nil
	}
	if accessToken == "" && refreshToken == "" {
		// supersede any in-flight call so its stale result is discarded
		m.epoch = uuid.NewString()
	}
	return m.persistLocked(ctx)
}

// SetUser attaches a confirmed identity to the session.
func (m *Manager) SetUser(ctx context.Context, user *authmodel.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.User = user
	return m.persistLocked(ctx)
}

// State returns the current lifecycle position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.State()
}

// Snapshot returns a copy of the current Session.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// completeSecondFactor runs phase two of either the login or registration
// flow: exchange the refresh token (plus code) for an access token, confirm
// the identity behind it, then store both together. A failure at either step
// leaves the refresh token intact and stores nothing, so an access token is
// never held without a known user type.
func (m *Manager) completeSecondFactor(ctx context.Context, code string, exchange func(context.Context, string, string) (*authmodel.TokenResponse, error)) error {
	epoch, err := m.begin()
	if err != nil {
		return err
	}
	defer m.end()

	refresh := m.refreshTokenSnapshot()
	if refresh == "" {
		return ErrNotPendingTwoFactor
	}

	tok, err := exchange(ctx, refresh, code)
	if err != nil {
		return errors.Wrap(err, "[Manager.completeSecondFactor] exchange")
	}

	user, err := m.backend.UserInfo(ctx, tok.AccessToken)
	if err != nil {
		return errors.Wrap(err, "[Manager.completeSecondFactor] backend.UserInfo")
	}

	if err := m.apply(ctx, epoch, func(s *Session) {
		s.AccessToken = tok.AccessToken
		s.User = user
		s.TOTPURI = ""
	}); err != nil {
		return err
	}

	m.log.Info().Str("user_id", user.UserID).Str("user_type", string(user.UserType)).Msg("session authenticated")
	return nil
}

// begin claims the single in-flight slot and captures the session epoch.
func (m *Manager) begin() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy {
		return "", ErrOperationInFlight
	}
	m.busy = true
	return m.epoch, nil
}

func (m *Manager) end() {
	m.mu.Lock()
	m.busy = false
	m.mu.Unlock()
}

// apply mutates the session and writes it through to the Store, unless the
// session was cleared while the backend call was in flight, in which case
// the stale result is discarded.
func (m *Manager) apply(ctx context.Context, epoch string, mutate func(*Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if epoch != m.epoch {
		m.log.Debug().Msg("discarding stale auth response")
		return ErrSessionSuperseded
	}

	mutate(&m.session)
	return m.persistLocked(ctx)
}

func (m *Manager) persistLocked(ctx context.Context) error {
	if m.session.AccessToken == "" && m.session.RefreshToken == "" {
		if err := m.store.Clear(ctx); err != nil {
			return errors.Wrap(err, "[Manager.persistLocked] store.Clear")
		}
		return nil
	}
	if err := m.store.Save(ctx, m.session.AccessToken, m.session.RefreshToken); err != nil {
		return errors.Wrap(err, "[Manager.persistLocked] store.Save")
	}
	return nil
}

// clearLocked wipes the in-memory session, bumps the epoch so in-flight
// results are discarded, and clears persisted state. A storage failure is
// logged, never surfaced: clearing local state must not be able to fail.
func (m *Manager) clearLocked(ctx context.Context) {
	m.session = Session{}
	m.epoch = uuid.NewString()
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear persisted tokens")
	}
}

func (m *Manager) observeAuthErr(ctx context.Context, err error) error {
	if errors.Is(err, authmodel.ErrTokenExpired) {
		m.ForceLogout(ctx)
	}
	return err
}

func (m *Manager) refreshTokenSnapshot() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.RefreshToken
}

func (m *Manager) userSnapshot() *authmodel.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.User == nil {
		return nil
	}
	u := *m.session.User
	return &u
}

func (m *Manager) check(v any) error {
	if err := m.validate.Struct(v); err != nil {
		return authmodel.NewAuthError(authmodel.ErrValidation, err.Error())
	}
	return nil
}
