package command

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-auth-session/core"
)

var (
	_ gocmd.Commander[RegisterMessage]       = (*RegisterCommand)(nil)
	_ gocmd.Commander[LoginMessage]          = (*LoginCommand)(nil)
	_ gocmd.Commander[GoogleAuthMessage]     = (*GoogleAuthCommand)(nil)
	_ gocmd.Commander[AppleAuthMessage]      = (*AppleAuthCommand)(nil)
	_ gocmd.Commander[ProviderSignInMessage] = (*ProviderSignInCommand)(nil)
	_ gocmd.Commander[RefreshMessage]        = (*RefreshCommand)(nil)
	_ gocmd.Commander[LogoutMessage]         = (*LogoutCommand)(nil)
	_ gocmd.Commander[ClearAuthMessage]      = (*ClearAuthCommand)(nil)
	_ gocmd.Commander[ForgotPasswordMessage] = (*ForgotPasswordCommand)(nil)
	_ gocmd.Commander[ResetPasswordMessage]  = (*ResetPasswordCommand)(nil)
	_ gocmd.Commander[ChangePasswordMessage] = (*ChangePasswordCommand)(nil)

	_ SessionService = (*core.Store)(nil)
	_ AccountService = (*core.Store)(nil)
)
