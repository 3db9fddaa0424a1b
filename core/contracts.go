package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// Storage is the persisted key/value store the session is mirrored into. It
// is the system of record across restarts; the in-memory state is a cache.
// Writes of separate keys carry no atomicity guarantee.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
}

// AuthAPI issues the session-producing calls. Every error it returns must
// already be a Failure or be coercible through Normalize.
type AuthAPI interface {
	Register(ctx context.Context, req RegisterRequest) (AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (AuthResponse, error)
	GoogleAuth(ctx context.Context, req GoogleAuthRequest) (AuthResponse, error)
	AppleAuth(ctx context.Context, req AppleAuthRequest) (AuthResponse, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (AuthResponse, error)
	Logout(ctx context.Context, req RefreshTokenRequest) (MessageResponse, error)
}

// AccountAPI covers the calls that never change the session.
type AccountAPI interface {
	ForgotPassword(ctx context.Context, req ForgotPasswordRequest) (MessageResponse, error)
	ResetPassword(ctx context.Context, req ResetPasswordRequest) (MessageResponse, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) (MessageResponse, error)
	GetProfile(ctx context.Context) (UserInfo, error)
	CheckEmailAvailability(ctx context.Context, email string) (EmailAvailability, error)
}

// Listener observes committed state transitions in order. A listener may
// call Store actions; the transitions they cause are delivered after the
// listener returns.
type Listener func(SessionState)

type UserCodec interface {
	Encode(user UserInfo) (string, error)
	Decode(payload string) (UserInfo, error)
}
