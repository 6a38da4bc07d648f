package backendfake

import (
	"context"
	"fmt"
	"sync"

	"github.com/campusgate/portalauth/authmodel"
	"github.com/campusgate/portalauth/internal/utils"
	"github.com/campusgate/portalauth/session"
)

var _ session.Backend = (*FakeBackend)(nil)

// Account is a user known to the fake backend. An empty TOTPCode means no
// authenticator is enrolled.
type Account struct {
	Password string
	TOTPCode string
	User     authmodel.User
}

// FakeBackend is an in-memory simulation of the auth backend for tests. It
// issues deterministic tokens ("refresh-1", "access-1", ...) and can be told
// to fail any operation with a forced error.
type FakeBackend struct {
	lock          sync.Mutex
	accounts      map[string]*Account
	refreshTokens map[string]string // refresh token -> username
	accessTokens  map[string]string // access token -> username
	resetCodes    map[string]string // reset code -> username
	failures      map[string]error
	counter       int

	// EnrollCode is the TOTP code the fake accepts to complete a
	// registration started through Register.
	EnrollCode string

	// LogoutCalls counts server-side logout notifications.
	LogoutCalls int

	// LoginStarted and LoginGate let tests hold a Login call open to
	// exercise duplicate-submission handling.
	LoginStarted chan struct{}
	LoginGate    chan struct{}
}

func New() *FakeBackend {
	return &FakeBackend{
		accounts:      make(map[string]*Account),
		refreshTokens: make(map[string]string),
		accessTokens:  make(map[string]string),
		resetCodes:    make(map[string]string),
		failures:      make(map[string]error),
		EnrollCode:    "654321",
	}
}

// AddAccount registers an account with the fake.
func (b *FakeBackend) AddAccount(username string, acc Account) {
	b.lock.Lock()
	defer b.lock.Unlock()
	a := acc
	b.accounts[username] = &a
}

// AddResetCode arms a one-time 2FA reset code for the given username.
func (b *FakeBackend) AddResetCode(code, username string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.resetCodes[code] = username
}

// FailWith forces the named operation ("login", "verify", "register",
// "complete", "refresh", "logout", "adminlogin", "userinfo", "status",
// "reset") to return err.
func (b *FakeBackend) FailWith(op string, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.failures[op] = err
}

// IssueAccessToken mints an access token for username, as if a login had
// completed. Useful for seeding restored-session tests.
func (b *FakeBackend) IssueAccessToken(username string) string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.mintLocked("access", b.accessTokens, username)
}

// IssueRefreshToken mints a refresh token for username.
func (b *FakeBackend) IssueRefreshToken(username string) string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.mintLocked("refresh", b.refreshTokens, username)
}

func (b *FakeBackend) Login(ctx context.Context, username, password string) (*authmodel.LoginResponse, error) {
	if b.LoginStarted != nil {
		b.LoginStarted <- struct{}{}
	}
	if b.LoginGate != nil {
		<-b.LoginGate
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.failures["login"]; err != nil {
		return nil, err
	}

	acc, ok := b.accounts[username]
	if !ok || acc.Password != password {
		return nil, authmodel.NewAuthError(authmodel.ErrInvalidCredentials, "incorrect username or password")
	}

	refresh := b.mintLocked("refresh", b.refreshTokens, username)
	return &authmodel.LoginResponse{RefreshToken: refresh, TOTPRequired: acc.TOTPCode != ""}, nil
}

func (b *FakeBackend) VerifyTOTP(ctx context.Context, refreshToken, code string) (*authmodel.TokenResponse, error) {
	return b.exchange("verify", refreshToken, code)
}

func (b *FakeBackend) Register(ctx context.Context, req authmodel.RegisterRequest) (*authmodel.RegisterResponse, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.failures["register"]; err != nil {
		return nil, err
	}
	if _, exists := b.accounts[req.Username]; exists {
		return nil, authmodel.NewAuthError(authmodel.ErrUnknown, "username already taken")
	}

	b.counter++
	b.accounts[req.Username] = &Account{
		Password: req.Password,
		TOTPCode: b.EnrollCode,
		User: authmodel.User{
			UserID:   fmt.Sprintf("user-%d", b.counter),
			Username: req.Username,
			UserType: req.UserType,
		},
	}

	refresh := b.mintLocked("refresh", b.refreshTokens, req.Username)
	uri := fmt.Sprintf("otpauth://totp/portal:%s?secret=FAKESECRET", req.Username)
	return &authmodel.RegisterResponse{RefreshToken: refresh, TOTPURI: uri}, nil
}

func (b *FakeBackend) CompleteRegistration(ctx context.Context, refreshToken, code string) (*authmodel.TokenResponse, error) {
	return b.exchange("complete", refreshToken, code)
}

func (b *FakeBackend) Refresh(ctx context.Context, refreshToken, code string) (*authmodel.TokenResponse, error) {
	return b.exchange("refresh", refreshToken, code)
}

func (b *FakeBackend) Logout(ctx context.Context, accessToken string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.LogoutCalls++
	if err := b.failures["logout"]; err != nil {
		return err
	}
	delete(b.accessTokens, accessToken)
	return nil
}

func (b *FakeBackend) AdminLogin(ctx context.Context, username, password string) (*authmodel.TokenResponse, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.failures["adminlogin"]; err != nil {
		return nil, err
	}

	acc, ok := b.accounts[username]
	if !ok || acc.Password != password || acc.User.UserType != authmodel.UserTypeAdmin {
		return nil, authmodel.NewAuthError(authmodel.ErrInvalidCredentials, "incorrect username or password")
	}
	return &authmodel.TokenResponse{AccessToken: b.mintLocked("access", b.accessTokens, username)}, nil
}

func (b *FakeBackend) UserInfo(ctx context.Context, accessToken string) (*authmodel.User, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.failures["userinfo"]; err != nil {
		return nil, err
	}

	username, ok := b.accessTokens[accessToken]
	if !ok {
		return nil, authmodel.NewAuthError(authmodel.ErrTokenExpired, "invalid token")
	}
	return utils.Ptr(b.accounts[username].User), nil
}

func (b *FakeBackend) TwoFactorStatus(ctx context.Context, refreshToken string) (*authmodel.TwoFactorStatus, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.failures["status"]; err != nil {
		return nil, err
	}

	username, ok := b.refreshTokens[refreshToken]
	if !ok {
		return nil, authmodel.NewAuthError(authmodel.ErrTokenExpired, "invalid token")
	}
	return &authmodel.TwoFactorStatus{Has2FA: b.accounts[username].TOTPCode != ""}, nil
}

func (b *FakeBackend) ResetTwoFactor(ctx context.Context, resetCode, newTOTPCode string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.failures["reset"]; err != nil {
		return err
	}

	username, ok := b.resetCodes[resetCode]
	if !ok {
		return authmodel.NewAuthError(authmodel.ErrUnknown, "invalid reset code")
	}
	delete(b.resetCodes, resetCode)
	b.accounts[username].TOTPCode = newTOTPCode
	return nil
}

// exchange validates a refresh token plus TOTP code and mints an access
// token. An empty code is only honoured when no authenticator is enrolled.
func (b *FakeBackend) exchange(op, refreshToken, code string) (*authmodel.TokenResponse, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if err := b.failures[op]; err != nil {
		return nil, err
	}

	username, ok := b.refreshTokens[refreshToken]
	if !ok {
		return nil, authmodel.NewAuthError(authmodel.ErrTokenExpired, "invalid token")
	}

	acc := b.accounts[username]
	if code == "" {
		if acc.TOTPCode != "" {
			return nil, authmodel.NewAuthError(authmodel.ErrInvalidTOTP, "totp code required")
		}
	} else if code != acc.TOTPCode {
		return nil, authmodel.NewAuthError(authmodel.ErrInvalidTOTP, "incorrect totp code")
	}

	return &authmodel.TokenResponse{AccessToken: b.mintLocked("access", b.accessTokens, username)}, nil
}

func (b *FakeBackend) mintLocked(kind string, into map[string]string, username string) string {
	b.counter++
	token := fmt.Sprintf("%s-%d", kind, b.counter)
	into[token] = username
	return token
}
