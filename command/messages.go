package command

import (
	"github.com/goliatone/go-auth-session/core"
)

const (
	TypeRegister       = "auth_session.command.register"
	TypeLogin          = "auth_session.command.login"
	TypeGoogleAuth     = "auth_session.command.google_auth"
	TypeAppleAuth      = "auth_session.command.apple_auth"
	TypeProviderSignIn = "auth_session.command.provider.sign_in"
	TypeRefresh        = "auth_session.command.refresh"
	TypeLogout         = "auth_session.command.logout"
	TypeClearAuth      = "auth_session.command.clear"
	TypeForgotPassword = "auth_session.command.password.forgot"
	TypeResetPassword  = "auth_session.command.password.reset"
	TypeChangePassword = "auth_session.command.password.change"
)

type RegisterMessage struct {
	Request core.RegisterRequest
}

func (RegisterMessage) Type() string { return TypeRegister }

func (m RegisterMessage) Validate() error { return m.Request.Validate() }

type LoginMessage struct {
	Request core.LoginRequest
}

func (LoginMessage) Type() string { return TypeLogin }

func (m LoginMessage) Validate() error { return m.Request.Validate() }

type GoogleAuthMessage struct {
	Request core.GoogleAuthRequest
}

func (GoogleAuthMessage) Type() string { return TypeGoogleAuth }

func (m GoogleAuthMessage) Validate() error { return m.Request.Validate() }

type AppleAuthMessage struct {
	Request core.AppleAuthRequest
}

func (AppleAuthMessage) Type() string { return TypeAppleAuth }

func (m AppleAuthMessage) Validate() error { return m.Request.Validate() }

// ProviderSignInMessage runs a provider's interactive flow and exchanges the
// result with the API in one step.
type ProviderSignInMessage struct {
	Provider core.Provider
}

func (ProviderSignInMessage) Type() string { return TypeProviderSignIn }

func (m ProviderSignInMessage) Validate() error {
	switch m.Provider {
	case core.ProviderGoogle, core.ProviderApple:
		return nil
	case "":
		return core.InvalidField("provider", "provider is required")
	default:
		return core.InvalidField("provider", "provider must be google or apple")
	}
}

type RefreshMessage struct{}

func (RefreshMessage) Type() string { return TypeRefresh }

type LogoutMessage struct{}

func (LogoutMessage) Type() string { return TypeLogout }

type ClearAuthMessage struct{}

func (ClearAuthMessage) Type() string { return TypeClearAuth }

type ForgotPasswordMessage struct {
	Request core.ForgotPasswordRequest
}

func (ForgotPasswordMessage) Type() string { return TypeForgotPassword }

func (m ForgotPasswordMessage) Validate() error { return m.Request.Validate() }

type ResetPasswordMessage struct {
	Request core.ResetPasswordRequest
}

func (ResetPasswordMessage) Type() string { return TypeResetPassword }

func (m ResetPasswordMessage) Validate() error { return m.Request.Validate() }

type ChangePasswordMessage struct {
	Request core.ChangePasswordRequest
}

func (ChangePasswordMessage) Type() string { return TypeChangePassword }

func (m ChangePasswordMessage) Validate() error { return m.Request.Validate() }
