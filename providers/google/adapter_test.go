package google

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/providers"
	"github.com/goliatone/go-auth-session/providers/loopback"
)

type stubAccounts struct {
	mu           sync.Mutex
	cfg          IDConfiguration
	initialized  int
	credential   string
	notification *PromptNotification
	disabled     bool
}

func (s *stubAccounts) Initialize(cfg IDConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	s.initialized++
}

func (s *stubAccounts) Prompt(_ context.Context, listener func(PromptNotification)) {
	s.mu.Lock()
	cfg := s.cfg
	notification := s.notification
	credential := s.credential
	s.mu.Unlock()
	if notification != nil {
		listener(*notification)
		return
	}
	cfg.Callback(CredentialResponse{Credential: credential, ClientID: cfg.ClientID})
}

func (s *stubAccounts) DisableAutoSelect() {
	s.mu.Lock()
	s.disabled = true
	s.mu.Unlock()
}

type countingLoader struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (l *countingLoader) Load(context.Context, string) error {
	l.calls.Add(1)
	time.Sleep(l.delay)
	return l.err
}

func providerReason(t *testing.T, err error) core.ProviderReason {
	t.Helper()
	var providerErr *core.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %T (%v)", err, err)
	}
	return providerErr.Reason
}

func TestInit_MissingClientIDNeverLoads(t *testing.T) {
	loader := &countingLoader{}
	adapter := New("", &stubAccounts{}, WithLoader(loader))

	err := adapter.Init(context.Background())
	if providerReason(t, err) != core.ProviderReasonConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if loader.calls.Load() != 0 {
		t.Fatalf("expected no script load")
	}
	if _, err := adapter.SignIn(context.Background()); providerReason(t, err) != core.ProviderReasonConfiguration {
		t.Fatalf("expected sticky configuration error, got %v", err)
	}
}

func TestInit_LoadFailure(t *testing.T) {
	loader := &countingLoader{err: errors.New("dns")}
	adapter := New("client-1", &stubAccounts{}, WithLoader(loader))
	err := adapter.Init(context.Background())
	if providerReason(t, err) != core.ProviderReasonLoad {
		t.Fatalf("expected load error, got %v", err)
	}
	if structured, _ := core.AsStructured(err); structured.Code != core.ErrorCodeProviderLoadFailed {
		t.Fatalf("unexpected code %q", structured.Code)
	}
}

func TestInit_ConcurrentCallersLoadOnce(t *testing.T) {
	loader := &countingLoader{delay: 20 * time.Millisecond}
	adapter := New("client-1", &stubAccounts{}, WithLoader(loader))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := adapter.Init(context.Background()); err != nil {
				t.Errorf("init: %v", err)
			}
		}()
	}
	wg.Wait()
	if loader.calls.Load() != 1 {
		t.Fatalf("expected one script load, got %d", loader.calls.Load())
	}
}

func TestSignIn_ReturnsCredential(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "g-7", "email": "a@b.com"}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	accounts := &stubAccounts{credential: token}
	adapter := New("client-1", accounts)

	result, err := adapter.SignIn(context.Background())
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if result.IDToken != token || result.Provider != core.ProviderGoogle {
		t.Fatalf("unexpected result %#v", result)
	}
	if result.Profile == nil || result.Profile.Email != "a@b.com" {
		t.Fatalf("expected claims profile, got %#v", result.Profile)
	}
	if accounts.cfg.ClientID != "client-1" || accounts.cfg.AutoSelect || !accounts.cfg.CancelOnTapOutside {
		t.Fatalf("unexpected GIS configuration %#v", accounts.cfg)
	}
}

func TestSignIn_DismissedPromptIsCancellation(t *testing.T) {
	for _, notification := range []PromptNotification{{NotDisplayed: true}, {Skipped: true}} {
		adapter := New("client-1", &stubAccounts{notification: &notification})
		_, err := adapter.SignIn(context.Background())
		if !core.IsCancelled(err) {
			t.Fatalf("expected cancellation for %#v, got %v", notification, err)
		}
	}
}

func TestSignIn_EmptyCredentialFails(t *testing.T) {
	adapter := New("client-1", &stubAccounts{})
	_, err := adapter.SignIn(context.Background())
	if providerReason(t, err) != core.ProviderReasonFailed {
		t.Fatalf("expected failed reason, got %v", err)
	}
}

func TestRenderButton(t *testing.T) {
	accounts := &stubAccounts{}
	adapter := New("client-1", accounts, WithLoginURI("http://127.0.0.1:8085/"))
	var buf bytes.Buffer
	if err := adapter.RenderButton(&buf); err == nil {
		t.Fatalf("expected error before init")
	}
	if err := adapter.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := adapter.RenderButton(&buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	for _, want := range []string{
		`data-client_id="client-1"`,
		`data-login_uri="http://127.0.0.1:8085/"`,
		`data-theme="filled_blue"`,
		`data-text="continue_with"`,
		`data-width="300"`,
		ScriptURL,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in %s", want, html)
		}
	}
	adapter.SignOut()
	if !accounts.disabled {
		t.Fatalf("expected auto select disabled")
	}
}

func TestLoopbackAccounts_RedirectFlow(t *testing.T) {
	receiver := loopback.New()
	if _, err := receiver.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = receiver.Close(context.Background()) })

	opened := make(chan string, 1)
	accounts := NewLoopbackAccounts(receiver, func(pageURL string) error {
		opened <- pageURL
		return nil
	})
	adapter := New("client-1", accounts)

	go func() {
		pageURL := <-opened
		res, err := http.Get(pageURL)
		if err != nil {
			t.Errorf("get page: %v", err)
			return
		}
		page, _ := io.ReadAll(res.Body)
		_ = res.Body.Close()
		if !strings.Contains(string(page), `data-client_id="client-1"`) {
			t.Errorf("unexpected page %s", page)
		}
		post, err := http.PostForm(pageURL, url.Values{"credential": {"opaque-credential"}, "select_by": {"btn"}})
		if err != nil {
			t.Errorf("post credential: %v", err)
			return
		}
		_ = post.Body.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := adapter.SignIn(ctx)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if result.IDToken != "opaque-credential" || result.Profile != nil {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestLoopbackAccounts_ProviderErrorIsCancellation(t *testing.T) {
	receiver := loopback.New()
	callbackURL, err := receiver.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = receiver.Close(context.Background()) })

	adapter := New("client-1", NewLoopbackAccounts(receiver, func(string) error {
		go func() {
			res, postErr := http.PostForm(callbackURL, url.Values{"error": {"access_denied"}})
			if postErr == nil {
				_ = res.Body.Close()
			}
		}()
		return nil
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := adapter.SignIn(ctx); !core.IsCancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestLoopbackAccounts_IgnoresCallbackFromAbandonedFlow(t *testing.T) {
	receiver := loopback.New()
	callbackURL, err := receiver.Start("127.0.0.1:0")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = receiver.Close(context.Background()) })

	stale, err := http.PostForm(callbackURL, url.Values{"credential": {""}})
	if err != nil {
		t.Fatalf("post stale callback: %v", err)
	}
	_ = stale.Body.Close()

	adapter := New("client-1", NewLoopbackAccounts(receiver, func(string) error {
		go func() {
			res, postErr := http.PostForm(callbackURL, url.Values{"credential": {"fresh-credential"}})
			if postErr == nil {
				_ = res.Body.Close()
			}
		}()
		return nil
	}))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := adapter.SignIn(ctx)
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if result.IDToken != "fresh-credential" {
		t.Fatalf("expected the fresh credential, got %#v", result)
	}
}

var _ providers.Adapter = New("x", nil)
