// Package guard gates navigation on session state before a protected view
// is entered.
package guard

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/campusgate/portalauth/authmodel"
	"github.com/campusgate/portalauth/session"
)

// Route describes a requested destination.
type Route struct {
	Path         string
	RequiresAuth bool
	RequiredRole authmodel.UserType // empty means any role
}

// Action is the guard's verdict on a navigation.
type Action string

const (
	ActionAllow         Action = "allow"
	ActionRedirectLogin Action = "redirect_login"
	ActionRedirectHome  Action = "redirect_home"
)

// Decision carries the verdict plus the redirect target when not allowing.
type Decision struct {
	Action Action
	Target string
}

// Guard decides navigations against the current session. A role mismatch is
// not an error: internal users are silently sent to their own landing page
// rather than shown an access-denied screen.
type Guard struct {
	sessions  *session.Manager
	loginPath string
	homes     map[authmodel.UserType]string
	log       zerolog.Logger
}

// Option defines a function type to modify the Guard instance.
type Option func(*Guard)

// WithLoginPath overrides the login entry point.
func WithLoginPath(path string) Option {
	return func(g *Guard) {
		g.loginPath = path
	}
}

// WithHome overrides the default landing page for a role.
func WithHome(role authmodel.UserType, path string) Option {
	return func(g *Guard) {
		g.homes[role] = path
	}
}

// WithLogger sets the logger for denied navigations.
func WithLogger(log zerolog.Logger) Option {
	return func(g *Guard) {
		g.log = log
	}
}

// New creates a Guard bound to the session manager.
func New(sessions *session.Manager, options ...Option) (*Guard, error) {
	if sessions == nil {
		return nil, errors.New("[guard.New] session manager is required")
	}

	g := &Guard{
		sessions:  sessions,
		loginPath: RouteLogin,
		homes: map[authmodel.UserType]string{
			authmodel.UserTypeStudent: RouteStudentHome,
			authmodel.UserTypeTeacher: RouteTeacherHome,
			authmodel.UserTypeAdmin:   RouteAdminHome,
		},
		log: zerolog.Nop(),
	}

	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Decide evaluates a navigation. The user identity is resolved lazily when
// the session was restored from storage with tokens only; a token-expired
// failure during resolution degrades the session and lands on the login page.
func (g *Guard) Decide(ctx context.Context, route Route) Decision {
	if !route.RequiresAuth && route.RequiredRole == "" {
		return Decision{Action: ActionAllow}
	}

	user, err := g.sessions.CurrentUser(ctx)
	if err != nil {
		if !errors.Is(err, session.ErrNotAuthenticated) {
			g.log.Debug().Err(err).Str("path", route.Path).Msg("could not resolve user for navigation")
		}
		return Decision{Action: ActionRedirectLogin, Target: g.loginPath}
	}

	if route.RequiredRole != "" && user.UserType != route.RequiredRole {
		home, ok := g.homes[user.UserType]
		if !ok {
			return Decision{Action: ActionRedirectLogin, Target: g.loginPath}
		}
		return Decision{Action: ActionRedirectHome, Target: home}
	}

	return Decision{Action: ActionAllow}
}

// Middleware wraps a handler for a protected route, turning redirect
// decisions into 303 responses.
func (g *Guard) Middleware(route Route) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			decision := g.Decide(r.Context(), route)
			if decision.Action != ActionAllow {
				http.Redirect(w, r, decision.Target, http.StatusSeeOther)
				return
			}
			next(w, r)
		}
	}
}
