package main

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/campusgate/portalauth/authmodel"
	"github.com/campusgate/portalauth/session"
)

// App wires the session manager to the CLI commands.
type App struct {
	mgr *session.Manager
	log zerolog.Logger
	out io.Writer
}

func (a *App) Dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.login(ctx, args)
	case "verify":
		return a.verify(ctx, args)
	case "no2fa":
		return a.mgr.LoginWithoutTwoFactor(ctx)
	case "status":
		return a.status(ctx)
	case "register":
		return a.register(ctx, args)
	case "complete":
		return a.complete(ctx, args)
	case "refresh":
		return a.refresh(ctx, args)
	case "whoami":
		return a.whoami(ctx)
	case "logout":
		a.mgr.Logout(ctx)
		fmt.Fprintln(a.out, "logged out")
		return nil
	case "reset-2fa":
		return a.resetTwoFactor(ctx, args)
	case "admin-login":
		return a.adminLogin(ctx, args)
	default:
		return errors.Errorf("unknown command %q", command)
	}
}

func (a *App) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: authctl login USERNAME PASSWORD")
	}
	if err := a.mgr.Login(ctx, args[0], args[1]); err != nil {
		return err
	}

	has2FA, err := a.mgr.Check2FAStatus(ctx)
	if err != nil {
		a.log.Debug().Err(err).Msg("could not query 2fa status")
		fmt.Fprintln(a.out, "login accepted; run 'authctl verify CODE' to finish")
		return nil
	}
	if has2FA {
		fmt.Fprintln(a.out, "login accepted; run 'authctl verify CODE' with your authenticator code")
	} else {
		fmt.Fprintln(a.out, "login accepted; no authenticator enrolled, run 'authctl no2fa'")
	}
	return nil
}

func (a *App) verify(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: authctl verify CODE")
	}
	if err := a.mgr.Verify2FA(ctx, args[0]); err != nil {
		return err
	}
	return a.whoami(ctx)
}

func (a *App) status(ctx context.Context) error {
	fmt.Fprintf(a.out, "session state: %s\n", a.mgr.State())
	if a.mgr.State() == session.StatePendingTwoFactor {
		has2FA, err := a.mgr.Check2FAStatus(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "authenticator enrolled: %t\n", has2FA)
	}
	return nil
}

func (a *App) register(ctx context.Context, args []string) error {
	if len(args) != 3 && len(args) != 4 {
		return errors.New("usage: authctl register USERNAME PASSWORD USER_TYPE [REGISTRATION_CODE]")
	}
	registrationCode := ""
	if len(args) == 4 {
		registrationCode = args[3]
	}

	totpURI, err := a.mgr.Register(ctx, args[0], args[1], authmodel.UserType(args[2]), registrationCode)
	if err != nil {
		return err
	}

	// The enrollment URI is shown exactly once and cannot be fetched again.
	fmt.Fprintln(a.out, "account pending; add this to your authenticator now:")
	fmt.Fprintln(a.out, totpURI)
	fmt.Fprintln(a.out, "then run 'authctl complete CODE' with the first generated code")
	return nil
}

func (a *App) complete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: authctl complete CODE")
	}
	if err := a.mgr.CompleteRegistration(ctx, args[0]); err != nil {
		return err
	}
	return a.whoami(ctx)
}

func (a *App) refresh(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: authctl refresh CODE")
	}
	if err := a.mgr.Refresh(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "access token refreshed")
	return nil
}

func (a *App) whoami(ctx context.Context) error {
	user, err := a.mgr.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNotAuthenticated) {
			fmt.Fprintln(a.out, "not logged in")
			return nil
		}
		return err
	}
	fmt.Fprintf(a.out, "%s (%s) [%s]\n", user.Username, user.UserID, user.UserType)
	return nil
}

func (a *App) resetTwoFactor(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: authctl reset-2fa RESET_CODE NEW_CODE")
	}
	if err := a.mgr.ResetTwoFactor(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "authenticator reset; log in again")
	return nil
}

func (a *App) adminLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: authctl admin-login USERNAME PASSWORD")
	}
	if err := a.mgr.AdminLogin(ctx, args[0], args[1]); err != nil {
		return err
	}
	return a.whoami(ctx)
}
