package authmodel

// Wire types for the auth backend's REST contract. Field names follow the
// backend's snake_case JSON convention.

// LoginRequest carries primary credentials for phase one of the login flow.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the phase-one result: a refresh token and, when the
// account has an authenticator enrolled, a TOTP challenge indicator.
// No access token is issued until phase two completes.
type LoginResponse struct {
	RefreshToken string `json:"refresh_token"`
	TOTPRequired bool   `json:"totp_required,omitempty"`
}

// TOTPRequest carries the six-digit code for phase two. An empty code asks
// the backend to complete the login without a second factor, which it only
// honours for accounts with no authenticator enrolled.
type TOTPRequest struct {
	TOTPCode string `json:"totp_code"`
}

// TokenResponse is returned by every call that mints an access token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// RegisterRequest creates a pending account (registration phase one).
type RegisterRequest struct {
	Username         string   `json:"username"`
	Password         string   `json:"password"`
	UserType         UserType `json:"user_type"`
	RegistrationCode string   `json:"registration_code,omitempty"`
}

// RegisterResponse carries the refresh token for the pending account plus
// the TOTP enrollment URI. The URI is shown once and never re-fetchable.
type RegisterResponse struct {
	RefreshToken string `json:"refresh_token"`
	TOTPURI      string `json:"totp_uri"`
}

// TwoFactorStatus reports whether the current identity has an authenticator
// enrolled.
type TwoFactorStatus struct {
	Has2FA bool `json:"has_2fa"`
}

// ResetTwoFactorRequest is the out-of-band recovery path. The reset code is
// a one-time code issued by an administrator.
type ResetTwoFactorRequest struct {
	ResetCode   string `json:"reset_code"`
	NewTOTPCode string `json:"new_totp_code"`
}

// ErrorResponse is the backend's structured error body.
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
