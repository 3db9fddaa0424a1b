package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/providers"
)

// SessionService is the mutating surface of core.Store.
type SessionService interface {
	Register(ctx context.Context, req core.RegisterRequest) (*core.Session, error)
	Login(ctx context.Context, req core.LoginRequest) (*core.Session, error)
	GoogleAuth(ctx context.Context, req core.GoogleAuthRequest) (*core.Session, error)
	AppleAuth(ctx context.Context, req core.AppleAuthRequest) (*core.Session, error)
	Refresh(ctx context.Context) (*core.Session, error)
	Logout(ctx context.Context) error
	ClearAuth(ctx context.Context) error
}

type AccountService interface {
	ForgotPassword(ctx context.Context, req core.ForgotPasswordRequest) (core.MessageResponse, error)
	ResetPassword(ctx context.Context, req core.ResetPasswordRequest) (core.MessageResponse, error)
	ChangePassword(ctx context.Context, req core.ChangePasswordRequest) (core.MessageResponse, error)
}

// AdapterResolver returns the adapter registered for a provider.
type AdapterResolver func(provider core.Provider) (providers.Adapter, bool)

type RegisterCommand struct {
	service SessionService
}

func NewRegisterCommand(service SessionService) *RegisterCommand {
	return &RegisterCommand{service: service}
}

func (c *RegisterCommand) Execute(ctx context.Context, msg RegisterMessage) error {
	if c == nil || c.service == nil {
		return core.MissingDependency("command: register service is required")
	}
	out, err := c.service.Register(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type LoginCommand struct {
	service SessionService
}

func NewLoginCommand(service SessionService) *LoginCommand {
	return &LoginCommand{service: service}
}

func (c *LoginCommand) Execute(ctx context.Context, msg LoginMessage) error {
	if c == nil || c.service == nil {
		return core.MissingDependency("command: login service is required")
	}
	out, err := c.service.Login(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type GoogleAuthCommand struct {
	service SessionService
}

func NewGoogleAuthCommand(service SessionService) *GoogleAuthCommand {
	return &GoogleAuthCommand{service: service}
}

func (c *GoogleAuthCommand) Execute(ctx context.Context, msg GoogleAuthMessage) error {
	if c == nil || c.service == nil {
		return core.MissingDependency("command: google auth service is required")
	}
	out, err := c.service.GoogleAuth(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AppleAuthCommand struct {
	service SessionService
}

func NewAppleAuthCommand(service SessionService) *AppleAuthCommand {
	return &AppleAuthCommand{service: service}
}

func (c *AppleAuthCommand) Execute(ctx context.Context, msg AppleAuthMessage) error {
	if c == nil || c.service == nil {
		return core.MissingDependency("command: apple auth service is required")
	}
	out, err := c.service.AppleAuth(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

// ProviderSignInCommand initializes the adapter, runs its flow and hands the
// result to the session service. A cancelled flow returns the provider error
// untouched and leaves the session alone.
type ProviderSignInCommand struct {
	service  SessionService
	adapters AdapterResolver
}

func NewProviderSignInCommand(service SessionService, adapters AdapterResolver) *ProviderSignInCommand {
	return &ProviderSignInCommand{service: service, adapters: adapters}
}

func (c *ProviderSignInCommand) Execute(ctx context.Context, msg ProviderSignInMessage) error {
	if c == nil || c.service == nil || c.adapters == nil {
		return core.MissingDependency("command: provider sign-in service is required")
	}
	adapter, ok := c.adapters(msg.Provider)
	if !ok || adapter == nil {
		return core.NewProviderError(string(msg.Provider), core.ProviderReasonConfiguration, "provider is not configured", nil)
	}
	if err := adapter.Init(ctx); err != nil {
		return err
	}
	result, err := adapter.SignIn(ctx)
	if err != nil {
		return err
	}

	var out *core.Session
	switch msg.Provider {
	case core.ProviderApple:
		out, err = c.service.AppleAuth(ctx, result.AppleRequest())
	default:
		out, err = c.service.GoogleAuth(ctx, result.GoogleRequest())
	}
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshCommand struct {
	service SessionService
}

func NewRefreshCommand(service SessionService) *RefreshCommand {
	return &RefreshCommand{service: service}
}

func (c *RefreshCommand) Execute(ctx context.Context, _ RefreshMessage) error {
	if c == nil || c.service == nil {
		return core.MissingDependency("command: refresh service is required")
	}
	out, err := c.service.Refresh(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type LogoutCommand struct {
	service SessionService
}

func NewLogoutCommand(service SessionService) *LogoutCommand {
	return &LogoutCommand{service: service}
}

func (c *LogoutCommand) Execute(ctx context.Context, _ LogoutMessage) error {
	if c == nil || c.service == nil {
		return core.MissingDependency("command: logout service is required")
	}
	return c.service.Logout(ctx)
}

type ClearAuthCommand struct {
	service SessionService
}

func NewClearAuthCommand(service SessionService) *ClearAuthCommand {
	return &ClearAuthCommand{service: service}
}

func (c *ClearAuthCommand) Execute(ctx context.Context, _ ClearAuthMessage) error {
	if c == nil || c.service == nil {
		return core.MissingDependency("command: clear auth service is required")
	}
	return c.service.ClearAuth(ctx)
}

type ForgotPasswordCommand struct {
	service AccountService
}

func NewForgotPasswordCommand(service AccountService) *ForgotPasswordCommand {
	return &ForgotPasswordCommand{service: service}
}

func (c *ForgotPasswordCommand) Execute(ctx context.Context, msg ForgotPasswordMessage) error {
	if c == nil || c.service == nil {
		return core.MissingDependency("command: account service is required")
	}
	out, err := c.service.ForgotPassword(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ResetPasswordCommand struct {
	service AccountService
}

func NewResetPasswordCommand(service AccountService) *ResetPasswordCommand {
	return &ResetPasswordCommand{service: service}
}

func (c *ResetPasswordCommand) Execute(ctx context.Context, msg ResetPasswordMessage) error {
	if c == nil || c.service == nil {
		return core.MissingDependency("command: account service is required")
	}
	out, err := c.service.ResetPassword(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ChangePasswordCommand struct {
	service AccountService
}

func NewChangePasswordCommand(service AccountService) *ChangePasswordCommand {
	return &ChangePasswordCommand{service: service}
}

func (c *ChangePasswordCommand) Execute(ctx context.Context, msg ChangePasswordMessage) error {
	if c == nil || c.service == nil {
		return core.MissingDependency("command: account service is required")
	}
	out, err := c.service.ChangePassword(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
