package apple

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/providers"
	"github.com/goliatone/go-auth-session/providers/loopback"
)

type stubAppleID struct {
	cfg   AuthConfig
	inits atomic.Int32
	auth  Authorization
	err   error
}

func (s *stubAppleID) Init(cfg AuthConfig) {
	s.cfg = cfg
	s.inits.Add(1)
}

func (s *stubAppleID) SignIn(context.Context) (Authorization, error) {
	return s.auth, s.err
}

func TestInit_RegistersClient(t *testing.T) {
	sdk := &stubAppleID{}
	loads := 0
	adapter := New(Config{ClientID: "com.example.web", RedirectURI: "http://127.0.0.1:8085"}, sdk,
		WithLoader(providers.ScriptLoaderFunc(func(_ context.Context, src string) error {
			loads++
			if src != ScriptURL {
				t.Errorf("unexpected script %q", src)
			}
			return nil
		})))

	for i := 0; i < 3; i++ {
		if err := adapter.Init(context.Background()); err != nil {
			t.Fatalf("init: %v", err)
		}
	}
	if loads != 1 || sdk.inits.Load() != 1 {
		t.Fatalf("expected one load and one init, got %d and %d", loads, sdk.inits.Load())
	}
	want := AuthConfig{ClientID: "com.example.web", Scope: "name email", RedirectURI: "http://127.0.0.1:8085", UsePopup: true}
	if sdk.cfg != want {
		t.Fatalf("expected %#v, got %#v", want, sdk.cfg)
	}
}

func TestInit_MissingClientID(t *testing.T) {
	loaded := false
	adapter := New(Config{}, &stubAppleID{}, WithLoader(providers.ScriptLoaderFunc(func(context.Context, string) error {
		loaded = true
		return nil
	})))
	err := adapter.Init(context.Background())
	structured, ok := core.AsStructured(err)
	if !ok || structured.Code != core.ErrorCodeProviderNotConfigured {
		t.Fatalf("expected not configured error, got %v", err)
	}
	if loaded {
		t.Fatalf("expected no script load")
	}
}

func TestSignIn_MapsResultAndOptionalName(t *testing.T) {
	sdk := &stubAppleID{auth: Authorization{
		Code:    "code-1",
		IDToken: "id-1",
		User:    &User{Name: &Name{FirstName: "Ada", LastName: "Lovelace"}},
	}}
	adapter := New(Config{ClientID: "cid"}, sdk)
	result, err := adapter.SignIn(context.Background())
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	req := result.AppleRequest()
	if req.IdentityToken != "id-1" || req.AuthorizationCode != "code-1" || req.FirstName != "Ada" || req.LastName != "Lovelace" {
		t.Fatalf("unexpected request %#v", req)
	}

	sdk.auth.User = nil
	result, err = adapter.SignIn(context.Background())
	if err != nil {
		t.Fatalf("sign in without name: %v", err)
	}
	if result.FirstName != "" || result.LastName != "" {
		t.Fatalf("expected empty names, got %#v", result)
	}
}

func TestSignIn_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		reason core.ProviderReason
	}{
		{"popup closed", &SDKError{Code: ErrorPopupClosed}, core.ProviderReasonCancelled},
		{"user cancelled", &SDKError{Code: ErrorUserCancelledSignIn}, core.ProviderReasonCancelled},
		{"context cancelled", context.Canceled, core.ProviderReasonCancelled},
		{"invalid request", &SDKError{Code: "invalid_request"}, core.ProviderReasonFailed},
		{"other", errors.New("boom"), core.ProviderReasonFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			adapter := New(Config{ClientID: "cid"}, &stubAppleID{err: tc.err})
			_, err := adapter.SignIn(context.Background())
			var providerErr *core.ProviderError
			if !errors.As(err, &providerErr) || providerErr.Reason != tc.reason {
				t.Fatalf("expected %s, got %v", tc.reason, err)
			}
		})
	}

	adapter := New(Config{ClientID: "cid"}, &stubAppleID{auth: Authorization{Code: "c"}})
	if _, err := adapter.SignIn(context.Background()); core.IsCancelled(err) || err == nil {
		t.Fatalf("expected failure without identity token, got %v", err)
	}
}

func TestLoopbackAppleID_FormPost(t *testing.T) {
	receiver := loopback.New()
	callbackURL, err := receiver.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = receiver.Close(context.Background()) })

	sdk := NewLoopbackAppleID(receiver, func(authorize string) error {
		parsed, parseErr := url.Parse(authorize)
		if parseErr != nil {
			return parseErr
		}
		query := parsed.Query()
		if query.Get("response_mode") != "form_post" || query.Get("redirect_uri") != callbackURL || query.Get("client_id") != "cid" {
			t.Errorf("unexpected authorize query %v", query)
		}
		go func() {
			res, postErr := http.PostForm(callbackURL, url.Values{
				"code":     {"code-1"},
				"id_token": {"id-1"},
				"state":    {query.Get("state")},
				"user":     {`{"email":"a@b.com","name":{"firstName":"Ada"}}`},
			})
			if postErr == nil {
				_ = res.Body.Close()
			}
		}()
		return nil
	})
	adapter := New(Config{ClientID: "cid", RedirectURI: callbackURL}, sdk)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := adapter.SignIn(ctx)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if result.IDToken != "id-1" || result.AuthorizationCode != "code-1" || result.FirstName != "Ada" {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestLoopbackAppleID_UserCancelled(t *testing.T) {
	receiver := loopback.New()
	callbackURL, err := receiver.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = receiver.Close(context.Background()) })

	sdk := NewLoopbackAppleID(receiver, func(string) error {
		go func() {
			res, postErr := http.PostForm(callbackURL, url.Values{"error": {ErrorUserCancelledSignIn}})
			if postErr == nil {
				_ = res.Body.Close()
			}
		}()
		return nil
	})
	adapter := New(Config{ClientID: "cid", RedirectURI: callbackURL}, sdk)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := adapter.SignIn(ctx); !core.IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
