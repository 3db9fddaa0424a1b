package cli

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	authcommand "github.com/goliatone/go-auth-session/command"
	"github.com/goliatone/go-auth-session/core"
	authquery "github.com/goliatone/go-auth-session/query"
)

// sessionView is what status prints. Tokens are shortened.
type sessionView struct {
	Authenticated bool                  `json:"authenticated"`
	User          *core.UserInfo        `json:"user,omitempty"`
	AccessToken   string                `json:"accessToken,omitempty"`
	ExpiresAt     string                `json:"expiresAt,omitempty"`
	LastError     *core.StructuredError `json:"lastError,omitempty"`
}

func newSessionView(state core.SessionState) sessionView {
	view := sessionView{Authenticated: state.IsAuthenticated(), LastError: state.LastError}
	if state.Session != nil {
		user := state.Session.User
		view.User = &user
		view.AccessToken = shortToken(state.Session.AccessToken)
	}
	if !state.ExpiresAt.IsZero() {
		view.ExpiresAt = state.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return view
}

func shortToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "…" + token[len(token)-4:]
}

func (a *app) newRegisterCommand() *cobra.Command {
	var req core.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.facade.Commands().Register.Execute(cmd.Context(), authcommand.RegisterMessage{Request: req}); err != nil {
				return a.fail(err)
			}
			a.printer.Success("%s", a.message("auth.register.success"))
			return a.printSession()
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	return cmd
}

func (a *app) newLoginCommand() *cobra.Command {
	var req core.LoginRequest
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.facade.Commands().Login.Execute(cmd.Context(), authcommand.LoginMessage{Request: req}); err != nil {
				return a.fail(err)
			}
			return a.greet()
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "account password")
	return cmd
}

func (a *app) newSignInCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:       "signin <google|apple>",
		Short:     "Sign in through an identity provider",
		Long:      "Starts a local callback receiver on the app origin and waits for the provider to post back.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(core.ProviderGoogle), string(core.ProviderApple)},
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := core.Provider(strings.ToLower(strings.TrimSpace(args[0])))
			addr, err := loopbackAddress(a.facade.Config().AppOrigin)
			if err != nil {
				return a.fail(err)
			}
			if _, err := a.receiver.Start(addr); err != nil {
				return a.fail(err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if _, err := a.facade.SignIn(ctx, provider); err != nil {
				return a.fail(err)
			}
			return a.greet()
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the provider")
	return cmd
}

func (a *app) newRefreshCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.facade.Commands().Refresh.Execute(cmd.Context(), authcommand.RefreshMessage{}); err != nil {
				return a.fail(err)
			}
			a.printer.Success("%s", a.message("auth.refresh.success"))
			return a.printSession()
		},
	}
}

func (a *app) newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.facade.Commands().Logout.Execute(cmd.Context(), authcommand.LogoutMessage{}); err != nil {
				return a.fail(err)
			}
			a.printer.Success("%s", a.message("auth.logout.success"))
			return nil
		},
	}
}

func (a *app) newClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the local session without calling the API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.facade.Commands().ClearAuth.Execute(cmd.Context(), authcommand.ClearAuthMessage{}); err != nil {
				return a.fail(err)
			}
			a.printer.Success("%s", a.message("auth.session.cleared"))
			return nil
		},
	}
}

func (a *app) newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the restored session",
		RunE: func(*cobra.Command, []string) error {
			return a.printSession()
		},
	}
}

func (a *app) newProfileCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Fetch the signed-in user's profile from the API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.facade.Queries().Profile.Query(cmd.Context(), authquery.ProfileMessage{})
			if err != nil {
				return a.fail(err)
			}
			if a.flags.jsonOut {
				return a.printer.JSON(user)
			}
			printUser(a.printer, user)
			return nil
		},
	}
}

func (a *app) newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the session refreshed until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			unsubscribe := a.facade.Store().Subscribe(func(state core.SessionState) {
				if state.Loading {
					return
				}
				if state.IsAuthenticated() {
					a.printer.Info("session valid until %s", state.ExpiresAt.UTC().Format(time.RFC3339))
					return
				}
				a.printer.Warning("%s", a.message("auth.session.none"))
			})
			defer unsubscribe()
			err := a.facade.RunRefresh(ctx, func(err error) {
				a.printer.Warning("%s", a.facade.Translate(err))
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

func (a *app) greet() error {
	session := a.facade.Store().Session()
	if session != nil {
		a.printer.Success("%s", a.message("auth.login.success", session.User.Name))
	}
	return a.printSession()
}

func (a *app) printSession() error {
	state, err := a.facade.Queries().SessionState.Query(context.Background(), authquery.SessionStateMessage{})
	if err != nil {
		return a.fail(err)
	}
	view := newSessionView(state)
	if a.flags.jsonOut {
		return a.printer.JSON(view)
	}
	if !view.Authenticated {
		a.printer.Info("%s", a.message("auth.session.none"))
		return nil
	}
	printUser(a.printer, *view.User)
	a.printer.Field("access token", view.AccessToken)
	if view.ExpiresAt != "" {
		a.printer.Field("expires at", view.ExpiresAt)
	}
	return nil
}

func printUser(p *printer, user core.UserInfo) {
	p.Field("id", user.ID)
	p.Field("email", user.Email)
	p.Field("name", user.Name)
	p.Field("provider", string(user.Provider))
}
