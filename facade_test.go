package authsession

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/providers"
	"github.com/goliatone/go-auth-session/transport"
)

func newTestFacade(t *testing.T, handler http.HandlerFunc, opts ...FacadeOption) *Facade {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.API.BaseURL = server.URL
	facade, err := NewFacade(cfg, opts...)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	return facade
}

func authHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case transport.EndpointLogin:
			var body map[string]string
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode login body: %v", err)
			}
			if body["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"code":"INVALID_CREDENTIALS","message":"bad credentials"}`))
				return
			}
			writeAuth(w, "access-1")
		case transport.EndpointGoogle:
			writeAuth(w, "access-google")
		case transport.EndpointProfile:
			if r.Header.Get("Authorization") != "Bearer access-1" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"code":"UNAUTHORIZED","message":"missing token"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"u-1","email":"ada@example.com","name":"Ada","provider":"email"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func writeAuth(w http.ResponseWriter, access string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"accessToken":  access,
		"refreshToken": "refresh-1",
		"expiresIn":    900,
		"user":         map[string]any{"id": "u-1", "email": "ada@example.com", "name": "Ada", "provider": "email"},
	})
}

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	facade := newTestFacade(t, authHandler(t))

	commands := facade.Commands()
	if commands.Login == nil || commands.ProviderSignIn == nil || commands.ChangePassword == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.SessionState == nil || queries.Profile == nil || queries.CheckEmail == nil {
		t.Fatalf("expected query handlers to be wired")
	}
	if facade.Store() == nil || facade.Client() == nil || facade.Storage() == nil || facade.Catalog() == nil {
		t.Fatalf("expected facade collaborators to be wired")
	}
}

func TestFacade_LoginThenProfileUsesStoredBearer(t *testing.T) {
	facade := newTestFacade(t, authHandler(t))
	ctx := context.Background()

	if err := facade.Commands().Login.Execute(ctx, loginMessage("secret")); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !facade.Store().IsAuthenticated() {
		t.Fatalf("expected authenticated store after login")
	}

	profile, err := facade.Queries().Profile.Query(ctx, profileMessage())
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.ID != "u-1" {
		t.Fatalf("unexpected profile %#v", profile)
	}
}

func TestFacade_TranslatesAPIErrorsInConfiguredLocale(t *testing.T) {
	server := httptest.NewServer(authHandler(t))
	t.Cleanup(server.Close)

	cfg := DefaultConfig()
	cfg.API.BaseURL = server.URL
	cfg.Locale = "es"
	facade, err := NewFacade(cfg)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	err = facade.Commands().Login.Execute(context.Background(), loginMessage("wrong"))
	if err == nil {
		t.Fatalf("expected login failure")
	}
	if got := facade.Translate(err); got != "Correo o contraseña incorrectos." {
		t.Fatalf("unexpected translation %q", got)
	}
	if facade.Store().IsAuthenticated() {
		t.Fatalf("expected no session after failed login")
	}
}

func TestFacade_SignInExchangesProviderResult(t *testing.T) {
	adapter := &fakeAdapter{id: core.ProviderGoogle, result: providers.Result{Provider: core.ProviderGoogle, IDToken: "gid"}}
	facade := newTestFacade(t, authHandler(t), WithProviderAdapter(adapter))

	session, err := facade.SignIn(context.Background(), core.ProviderGoogle)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if session == nil || session.AccessToken != "access-google" {
		t.Fatalf("unexpected session %#v", session)
	}
	if adapter.inits != 1 || adapter.signIns != 1 {
		t.Fatalf("expected one init and one sign-in, got %d/%d", adapter.inits, adapter.signIns)
	}
}

func TestFacade_SignInUnknownProvider(t *testing.T) {
	facade := newTestFacade(t, authHandler(t))

	_, err := facade.SignIn(context.Background(), core.ProviderApple)
	if err == nil {
		t.Fatalf("expected error for unregistered provider")
	}
	var providerErr *core.ProviderError
	if !asProviderError(err, &providerErr) || providerErr.Reason != core.ProviderReasonConfiguration {
		t.Fatalf("expected configuration provider error, got %v", err)
	}

	if _, err := facade.SignIn(context.Background(), core.ProviderEmail); err == nil {
		t.Fatalf("expected validation error for email provider")
	}
}

func TestFacade_StartRestoresAndInitializesProviders(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()
	_ = storage.Set(ctx, core.StorageKeyAccessToken, "access-1")
	_ = storage.Set(ctx, core.StorageKeyRefreshToken, "refresh-1")
	_ = storage.Set(ctx, core.StorageKeyUser, `{"id":"u-1","email":"ada@example.com","name":"Ada","provider":"email"}`)

	google := &fakeAdapter{id: core.ProviderGoogle}
	apple := &fakeAdapter{id: core.ProviderApple, initErr: core.NewProviderError("apple", core.ProviderReasonConfiguration, "missing client id", nil)}
	facade := newTestFacade(t, authHandler(t), WithStorage(storage), WithProviderAdapter(google), WithProviderAdapter(apple))

	if err := facade.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !facade.Store().IsAuthenticated() {
		t.Fatalf("expected restored session")
	}
	if google.inits != 1 || apple.inits != 1 {
		t.Fatalf("expected both providers to be initialized, got %d/%d", google.inits, apple.inits)
	}
}

func TestNewFacade_RequiresStorageForPersistentDrivers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Driver = core.StorageDriverSQLite
	cfg.Storage.DSN = "file::memory:"
	if _, err := NewFacade(cfg); err == nil || !strings.Contains(err.Error(), "WithStorage") {
		t.Fatalf("expected WithStorage error, got %v", err)
	}
}

func TestNewFacade_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.BaseURL = "not a url"
	if _, err := NewFacade(cfg); err == nil {
		t.Fatalf("expected config validation error")
	}
}
