// Package authsession is the entry point for hosts: it re-exports the core
// types and wires the API client, session store, provider adapters and
// error translator behind a single Facade.
package authsession

import (
	"context"

	"github.com/goliatone/go-auth-session/core"
)

type Config = core.Config

type Option = core.Option

type Store = core.Store

type Storage = core.Storage

type Session = core.Session

type SessionState = core.SessionState

type UserInfo = core.UserInfo

type Provider = core.Provider

type StructuredError = core.StructuredError

type Listener = core.Listener

type RegisterRequest = core.RegisterRequest
type LoginRequest = core.LoginRequest
type GoogleAuthRequest = core.GoogleAuthRequest
type AppleAuthRequest = core.AppleAuthRequest
type ForgotPasswordRequest = core.ForgotPasswordRequest
type ResetPasswordRequest = core.ResetPasswordRequest
type ChangePasswordRequest = core.ChangePasswordRequest

const (
	ProviderEmail  = core.ProviderEmail
	ProviderGoogle = core.ProviderGoogle
	ProviderApple  = core.ProviderApple
)

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithUserCodec       = core.WithUserCodec
	WithAccountAPI      = core.WithAccountAPI
	WithClock           = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// LoadConfig reads AUTH_* environment variables over the defaults, then
// applies runtime on top.
func LoadConfig(ctx context.Context, runtime Config) (Config, error) {
	return core.LoadConfig(ctx, nil, nil, runtime)
}

func NewMemoryStorage() *core.MemoryStorage {
	return core.NewMemoryStorage()
}
