package session

import "github.com/campusgate/portalauth/authmodel"

// State is the lifecycle position of a Session. The machine is cyclic:
// Anonymous -> PendingTwoFactor -> Authenticated -> Anonymous.
type State string

const (
	StateAnonymous        State = "anonymous"
	StatePendingTwoFactor State = "pending_2fa"
	StateAuthenticated    State = "authenticated"
)

// Session holds the credentials and identity for one browser/process
// context. The access and refresh tokens have independent lifecycles: a
// refresh token alone means a login is pending its second factor.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *authmodel.User

	// TOTPURI is only set between registration phase one and two. It is
	// displayed once to the user and never written to the Store.
	TOTPURI string
}

// State derives the lifecycle position from which credentials are held.
// An access token restored from storage without a resolved user does not
// count as authenticated until Manager.CurrentUser confirms the identity.
func (s Session) State() State {
	if s.AccessToken != "" && s.User != nil {
		return StateAuthenticated
	}
	if s.RefreshToken != "" {
		return StatePendingTwoFactor
	}
	return StateAnonymous
}
