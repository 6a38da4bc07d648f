package authmodel

import "errors"

// Error classes for everything the auth backend can fail with. Callers
// classify with errors.Is against these sentinels; the concrete error value
// is usually an *AuthError carrying the backend's human-readable message.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidTOTP        = errors.New("invalid totp code")
	ErrTokenExpired       = errors.New("token expired or invalid")
	ErrNetwork            = errors.New("network error")
	ErrValidation         = errors.New("validation failed")
	ErrUnknown            = errors.New("unknown auth error")
)

// AuthError pairs an error class with the message extracted from the
// backend's structured error body (or the transport-level message when the
// body carries none).
type AuthError struct {
	Kind    error
	Message string
}

// NewAuthError builds an AuthError of the given class.
func NewAuthError(kind error, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message}
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Kind
}
