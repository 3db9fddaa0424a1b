package gocommand

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"

	authcommand "github.com/goliatone/go-auth-session/command"
	"github.com/goliatone/go-auth-session/core"
	authquery "github.com/goliatone/go-auth-session/query"
)

type fakeAuthAPI struct {
	logins  int
	logouts int
}

func (f *fakeAuthAPI) Register(context.Context, core.RegisterRequest) (core.AuthResponse, error) {
	return f.response(), nil
}

func (f *fakeAuthAPI) Login(context.Context, core.LoginRequest) (core.AuthResponse, error) {
	f.logins++
	return f.response(), nil
}

func (f *fakeAuthAPI) GoogleAuth(context.Context, core.GoogleAuthRequest) (core.AuthResponse, error) {
	return f.response(), nil
}

func (f *fakeAuthAPI) AppleAuth(context.Context, core.AppleAuthRequest) (core.AuthResponse, error) {
	return f.response(), nil
}

func (f *fakeAuthAPI) RefreshToken(context.Context, core.RefreshTokenRequest) (core.AuthResponse, error) {
	return f.response(), nil
}

func (f *fakeAuthAPI) Logout(context.Context, core.RefreshTokenRequest) (core.MessageResponse, error) {
	f.logouts++
	return core.MessageResponse{Success: true}, nil
}

func (f *fakeAuthAPI) response() core.AuthResponse {
	return core.AuthResponse{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresIn:    900,
		User:         core.UserInfo{ID: "u-1", Email: "ada@example.com", Name: "Ada", Provider: core.ProviderEmail},
	}
}

func TestRegisterSessionHandlers_DispatchesLoginAndQueriesState(t *testing.T) {
	api := &fakeAuthAPI{}
	store, err := core.NewStore(api, core.NewMemoryStorage())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	subs, err := RegisterSessionHandlers(NewRegistryAdapter(command.NewRegistry()), store, nil)
	if err != nil {
		t.Fatalf("register session handlers: %v", err)
	}
	defer subs.Unsubscribe()

	ctx := context.Background()
	login := authcommand.LoginMessage{Request: core.LoginRequest{Email: "ada@example.com", Password: "secret"}}
	if err := Dispatch(ctx, login); err != nil {
		t.Fatalf("dispatch login: %v", err)
	}
	if api.logins != 1 {
		t.Fatalf("expected one login call, got %d", api.logins)
	}

	state, err := Query[authquery.SessionStateMessage, core.SessionState](ctx, authquery.SessionStateMessage{})
	if err != nil {
		t.Fatalf("query session state: %v", err)
	}
	if !state.IsAuthenticated() || state.Session.User.ID != "u-1" {
		t.Fatalf("expected authenticated state for u-1, got %#v", state)
	}

	if err := Dispatch(ctx, authcommand.LogoutMessage{}); err != nil {
		t.Fatalf("dispatch logout: %v", err)
	}
	if api.logouts != 1 {
		t.Fatalf("expected one logout call, got %d", api.logouts)
	}
	if store.IsAuthenticated() {
		t.Fatalf("expected logout to clear the session")
	}
}

func TestRegisterSessionHandlers_RequiresStore(t *testing.T) {
	if _, err := RegisterSessionHandlers(NewRegistryAdapter(command.NewRegistry()), nil, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}
