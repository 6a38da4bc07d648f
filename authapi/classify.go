package authapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/campusgate/portalauth/authmodel"
)

// classify maps an HTTP error response to the auth error taxonomy. The
// message shown to the user comes from the backend's structured error body
// when present, falling back to the HTTP status text.
func classify(path string, status int, body []byte) error {
	var parsed authmodel.ErrorResponse
	_ = json.Unmarshal(body, &parsed)

	msg := parsed.Message
	if msg == "" {
		msg = parsed.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	return authmodel.NewAuthError(kindFor(path, status, msg), msg)
}

func kindFor(path string, status int, msg string) error {
	lower := strings.ToLower(msg)
	tokenInvalid := strings.Contains(lower, "invalid token") || strings.Contains(lower, "token expired")

	switch {
	case status == http.StatusUnauthorized || tokenInvalid:
		switch path {
		case RouteLoginV1, RouteAdminLogin:
			return authmodel.ErrInvalidCredentials
		case RouteLoginV2, RouteRegisterV2, RouteRefresh:
			// a 401 on the second factor is either a bad code or a dead
			// refresh token; the body distinguishes them
			if strings.Contains(lower, "totp") || strings.Contains(lower, "code") {
				return authmodel.ErrInvalidTOTP
			}
			return authmodel.ErrTokenExpired
		default:
			return authmodel.ErrTokenExpired
		}
	case status == http.StatusBadRequest:
		switch path {
		case RouteLoginV2, RouteRegisterV2, RouteRefresh, RouteReset2FA:
			return authmodel.ErrInvalidTOTP
		}
		return authmodel.ErrValidation
	default:
		return authmodel.ErrUnknown
	}
}
