package command

import (
	"context"
	"errors"
	"fmt"
	"testing"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/providers"
)

func TestLoginCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	expected := &core.Session{AccessToken: "a", RefreshToken: "r", User: core.UserInfo{ID: "u1"}}
	called := false

	svc := stubSessionService{
		loginFn: func(_ context.Context, req core.LoginRequest) (*core.Session, error) {
			called = true
			if req.Email != "ada@example.com" {
				t.Fatalf("expected email ada@example.com, got %q", req.Email)
			}
			return expected, nil
		},
	}

	cmd := NewLoginCommand(svc)
	collector := gocmd.NewResult[*core.Session]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, LoginMessage{Request: core.LoginRequest{Email: "ada@example.com", Password: "pw"}})
	if err != nil {
		t.Fatalf("execute login: %v", err)
	}
	if !called {
		t.Fatalf("expected login service invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected result to be stored")
	}
	if result.User.ID != "u1" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestSessionCommands_DelegateToService(t *testing.T) {
	t.Run("register", func(t *testing.T) {
		svc := stubSessionService{
			registerFn: func(_ context.Context, req core.RegisterRequest) (*core.Session, error) {
				if req.Name != "Ada" {
					t.Fatalf("unexpected register payload: %#v", req)
				}
				return &core.Session{}, nil
			},
		}
		if err := NewRegisterCommand(svc).Execute(context.Background(), RegisterMessage{
			Request: core.RegisterRequest{Email: "ada@example.com", Name: "Ada", Password: "pw"},
		}); err != nil {
			t.Fatalf("execute register: %v", err)
		}
	})

	t.Run("google and apple", func(t *testing.T) {
		var googleToken, appleCode string
		svc := stubSessionService{
			googleAuthFn: func(_ context.Context, req core.GoogleAuthRequest) (*core.Session, error) {
				googleToken = req.IDToken
				return &core.Session{}, nil
			},
			appleAuthFn: func(_ context.Context, req core.AppleAuthRequest) (*core.Session, error) {
				appleCode = req.AuthorizationCode
				return &core.Session{}, nil
			},
		}
		if err := NewGoogleAuthCommand(svc).Execute(context.Background(), GoogleAuthMessage{
			Request: core.GoogleAuthRequest{IDToken: "gid"},
		}); err != nil {
			t.Fatalf("execute google auth: %v", err)
		}
		if err := NewAppleAuthCommand(svc).Execute(context.Background(), AppleAuthMessage{
			Request: core.AppleAuthRequest{IdentityToken: "aid", AuthorizationCode: "code"},
		}); err != nil {
			t.Fatalf("execute apple auth: %v", err)
		}
		if googleToken != "gid" || appleCode != "code" {
			t.Fatalf("unexpected payloads: %q %q", googleToken, appleCode)
		}
	})

	t.Run("refresh logout clear", func(t *testing.T) {
		var calls []string
		svc := stubSessionService{
			refreshFn: func(context.Context) (*core.Session, error) {
				calls = append(calls, "refresh")
				return &core.Session{}, nil
			},
			logoutFn: func(context.Context) error {
				calls = append(calls, "logout")
				return nil
			},
			clearFn: func(context.Context) error {
				calls = append(calls, "clear")
				return nil
			},
		}
		ctx := context.Background()
		if err := NewRefreshCommand(svc).Execute(ctx, RefreshMessage{}); err != nil {
			t.Fatalf("execute refresh: %v", err)
		}
		if err := NewLogoutCommand(svc).Execute(ctx, LogoutMessage{}); err != nil {
			t.Fatalf("execute logout: %v", err)
		}
		if err := NewClearAuthCommand(svc).Execute(ctx, ClearAuthMessage{}); err != nil {
			t.Fatalf("execute clear: %v", err)
		}
		if fmt.Sprint(calls) != "[refresh logout clear]" {
			t.Fatalf("unexpected call order: %v", calls)
		}
	})

	t.Run("service error propagates", func(t *testing.T) {
		failure := &core.NetworkError{}
		svc := stubSessionService{
			refreshFn: func(context.Context) (*core.Session, error) {
				return nil, failure
			},
		}
		collector := gocmd.NewResult[*core.Session]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		err := NewRefreshCommand(svc).Execute(ctx, RefreshMessage{})
		if !errors.Is(err, failure) {
			t.Fatalf("expected network failure, got %v", err)
		}
		if _, ok := collector.Load(); ok {
			t.Fatalf("expected no result on failure")
		}
	})
}

func TestAccountCommands_DelegateToService(t *testing.T) {
	svc := stubAccountService{
		forgotFn: func(_ context.Context, req core.ForgotPasswordRequest) (core.MessageResponse, error) {
			return core.MessageResponse{Success: true, Message: "sent to " + req.Email}, nil
		},
		resetFn: func(_ context.Context, req core.ResetPasswordRequest) (core.MessageResponse, error) {
			return core.MessageResponse{Success: req.Token == "tok"}, nil
		},
		changeFn: func(_ context.Context, req core.ChangePasswordRequest) (core.MessageResponse, error) {
			return core.MessageResponse{Success: req.NewPassword == "new"}, nil
		},
	}

	collector := gocmd.NewResult[core.MessageResponse]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)
	if err := NewForgotPasswordCommand(svc).Execute(ctx, ForgotPasswordMessage{
		Request: core.ForgotPasswordRequest{Email: "ada@example.com"},
	}); err != nil {
		t.Fatalf("execute forgot password: %v", err)
	}
	if out, ok := collector.Load(); !ok || out.Message != "sent to ada@example.com" {
		t.Fatalf("unexpected forgot result: %#v", out)
	}

	resetCollector := gocmd.NewResult[core.MessageResponse]()
	resetCtx := gocmd.ContextWithResult(context.Background(), resetCollector)
	if err := NewResetPasswordCommand(svc).Execute(resetCtx, ResetPasswordMessage{
		Request: core.ResetPasswordRequest{Token: "tok", NewPassword: "new"},
	}); err != nil {
		t.Fatalf("execute reset password: %v", err)
	}
	if out, ok := resetCollector.Load(); !ok || !out.Success {
		t.Fatalf("unexpected reset result: %#v", out)
	}

	if err := NewChangePasswordCommand(svc).Execute(context.Background(), ChangePasswordMessage{
		Request: core.ChangePasswordRequest{CurrentPassword: "old", NewPassword: "new"},
	}); err != nil {
		t.Fatalf("execute change password: %v", err)
	}
}

func TestProviderSignInCommand_ExchangesProviderResult(t *testing.T) {
	adapter := &stubAdapter{
		id:     core.ProviderApple,
		result: providers.Result{Provider: core.ProviderApple, IDToken: "aid", AuthorizationCode: "code", FirstName: "Ada"},
	}
	var got core.AppleAuthRequest
	svc := stubSessionService{
		appleAuthFn: func(_ context.Context, req core.AppleAuthRequest) (*core.Session, error) {
			got = req
			return &core.Session{User: core.UserInfo{ID: "u1"}}, nil
		},
	}
	cmd := NewProviderSignInCommand(svc, resolverFor(adapter))
	collector := gocmd.NewResult[*core.Session]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	if err := cmd.Execute(ctx, ProviderSignInMessage{Provider: core.ProviderApple}); err != nil {
		t.Fatalf("execute provider sign in: %v", err)
	}
	if adapter.inits != 1 {
		t.Fatalf("expected adapter init before sign in, got %d", adapter.inits)
	}
	if got.IdentityToken != "aid" || got.AuthorizationCode != "code" || got.FirstName != "Ada" {
		t.Fatalf("unexpected apple request: %#v", got)
	}
	if out, ok := collector.Load(); !ok || out.User.ID != "u1" {
		t.Fatalf("expected session result, got %#v", out)
	}
}

func TestProviderSignInCommand_CancelledSkipsExchange(t *testing.T) {
	adapter := &stubAdapter{
		id:        core.ProviderGoogle,
		signInErr: core.NewProviderError("google", core.ProviderReasonCancelled, "Google sign-in was cancelled", nil),
	}
	exchanged := false
	svc := stubSessionService{
		googleAuthFn: func(context.Context, core.GoogleAuthRequest) (*core.Session, error) {
			exchanged = true
			return nil, nil
		},
	}
	err := NewProviderSignInCommand(svc, resolverFor(adapter)).Execute(context.Background(), ProviderSignInMessage{Provider: core.ProviderGoogle})
	if !core.IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if exchanged {
		t.Fatalf("expected no api exchange after cancellation")
	}
}

func TestProviderSignInCommand_UnknownProvider(t *testing.T) {
	err := NewProviderSignInCommand(stubSessionService{}, resolverFor()).Execute(context.Background(), ProviderSignInMessage{Provider: core.ProviderGoogle})
	var providerErr *core.ProviderError
	if !errors.As(err, &providerErr) || providerErr.Reason != core.ProviderReasonConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func resolverFor(adapters ...*stubAdapter) AdapterResolver {
	return func(provider core.Provider) (providers.Adapter, bool) {
		for _, adapter := range adapters {
			if adapter.id == provider {
				return adapter, true
			}
		}
		return nil, false
	}
}

type stubAdapter struct {
	id        core.Provider
	inits     int
	result    providers.Result
	signInErr error
}

func (a *stubAdapter) ID() core.Provider { return a.id }

func (a *stubAdapter) Init(context.Context) error {
	a.inits++
	return nil
}

func (a *stubAdapter) SignIn(context.Context) (providers.Result, error) {
	return a.result, a.signInErr
}

type stubSessionService struct {
	registerFn   func(ctx context.Context, req core.RegisterRequest) (*core.Session, error)
	loginFn      func(ctx context.Context, req core.LoginRequest) (*core.Session, error)
	googleAuthFn func(ctx context.Context, req core.GoogleAuthRequest) (*core.Session, error)
	appleAuthFn  func(ctx context.Context, req core.AppleAuthRequest) (*core.Session, error)
	refreshFn    func(ctx context.Context) (*core.Session, error)
	logoutFn     func(ctx context.Context) error
	clearFn      func(ctx context.Context) error
}

func (s stubSessionService) Register(ctx context.Context, req core.RegisterRequest) (*core.Session, error) {
	if s.registerFn == nil {
		return nil, fmt.Errorf("register not configured")
	}
	return s.registerFn(ctx, req)
}

func (s stubSessionService) Login(ctx context.Context, req core.LoginRequest) (*core.Session, error) {
	if s.loginFn == nil {
		return nil, fmt.Errorf("login not configured")
	}
	return s.loginFn(ctx, req)
}

func (s stubSessionService) GoogleAuth(ctx context.Context, req core.GoogleAuthRequest) (*core.Session, error) {
	if s.googleAuthFn == nil {
		return nil, fmt.Errorf("google auth not configured")
	}
	return s.googleAuthFn(ctx, req)
}

func (s stubSessionService) AppleAuth(ctx context.Context, req core.AppleAuthRequest) (*core.Session, error) {
	if s.appleAuthFn == nil {
		return nil, fmt.Errorf("apple auth not configured")
	}
	return s.appleAuthFn(ctx, req)
}

func (s stubSessionService) Refresh(ctx context.Context) (*core.Session, error) {
	if s.refreshFn == nil {
		return nil, fmt.Errorf("refresh not configured")
	}
	return s.refreshFn(ctx)
}

func (s stubSessionService) Logout(ctx context.Context) error {
	if s.logoutFn == nil {
		return fmt.Errorf("logout not configured")
	}
	return s.logoutFn(ctx)
}

func (s stubSessionService) ClearAuth(ctx context.Context) error {
	if s.clearFn == nil {
		return fmt.Errorf("clear not configured")
	}
	return s.clearFn(ctx)
}

type stubAccountService struct {
	forgotFn func(ctx context.Context, req core.ForgotPasswordRequest) (core.MessageResponse, error)
	resetFn  func(ctx context.Context, req core.ResetPasswordRequest) (core.MessageResponse, error)
	changeFn func(ctx context.Context, req core.ChangePasswordRequest) (core.MessageResponse, error)
}

func (s stubAccountService) ForgotPassword(ctx context.Context, req core.ForgotPasswordRequest) (core.MessageResponse, error) {
	return s.forgotFn(ctx, req)
}

func (s stubAccountService) ResetPassword(ctx context.Context, req core.ResetPasswordRequest) (core.MessageResponse, error) {
	return s.resetFn(ctx, req)
}

func (s stubAccountService) ChangePassword(ctx context.Context, req core.ChangePasswordRequest) (core.MessageResponse, error) {
	return s.changeFn(ctx, req)
}
