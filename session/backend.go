package session

import (
	"context"

	"github.com/campusgate/portalauth/authmodel"
)

// Backend is the auth service the Manager talks to. The contract is owned
// by the backend; this interface only mirrors it. The concrete HTTP
// implementation lives in the authapi package.
type Backend interface {
	// Login submits primary credentials and returns a refresh token.
	Login(ctx context.Context, username, password string) (*authmodel.LoginResponse, error)

	// VerifyTOTP exchanges the refresh token plus a TOTP code for an access
	// token. An empty code requests completion without a second factor.
	VerifyTOTP(ctx context.Context, refreshToken, code string) (*authmodel.TokenResponse, error)

	// Register creates a pending account and returns a refresh token plus
	// the TOTP enrollment URI.
	Register(ctx context.Context, req authmodel.RegisterRequest) (*authmodel.RegisterResponse, error)

	// CompleteRegistration verifies the first TOTP code against the
	// enrollment secret and finalises the account.
	CompleteRegistration(ctx context.Context, refreshToken, code string) (*authmodel.TokenResponse, error)

	// Refresh re-derives an access token from a still-valid refresh token
	// and a fresh TOTP code.
	Refresh(ctx context.Context, refreshToken, code string) (*authmodel.TokenResponse, error)

	// Logout invalidates the access token server-side.
	Logout(ctx context.Context, accessToken string) error

	// AdminLogin is the single-phase shortcut for administrators.
	AdminLogin(ctx context.Context, username, password string) (*authmodel.TokenResponse, error)

	// UserInfo resolves the identity behind an access token.
	UserInfo(ctx context.Context, accessToken string) (*authmodel.User, error)

	// TwoFactorStatus reports whether the identity behind the refresh token
	// has an authenticator enrolled.
	TwoFactorStatus(ctx context.Context, refreshToken string) (*authmodel.TwoFactorStatus, error)

	// ResetTwoFactor redeems an administrator-issued reset code against a
	// code from the replacement authenticator.
	ResetTwoFactor(ctx context.Context, resetCode, newTOTPCode string) error
}
