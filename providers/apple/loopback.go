package apple

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-auth-session/providers/loopback"
)

const authorizeURL = "https://appleid.apple.com/auth/authorize"

// LoopbackAppleID runs the Apple web flow with response_mode=form_post. The
// redirect URI given to Init must resolve to the receiver.
type LoopbackAppleID struct {
	receiver     *loopback.Receiver
	open         func(authorizeURL string) error
	authorizeURL string

	mu  sync.Mutex
	cfg AuthConfig
}

type LoopbackOption func(*LoopbackAppleID)

// WithAuthorizeURL points the flow at another authorization endpoint.
func WithAuthorizeURL(endpoint string) LoopbackOption {
	return func(l *LoopbackAppleID) {
		if strings.TrimSpace(endpoint) != "" {
			l.authorizeURL = strings.TrimSpace(endpoint)
		}
	}
}

func NewLoopbackAppleID(receiver *loopback.Receiver, open func(authorizeURL string) error, opts ...LoopbackOption) *LoopbackAppleID {
	l := &LoopbackAppleID{
		receiver:     receiver,
		open:         open,
		authorizeURL: authorizeURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

func (l *LoopbackAppleID) Init(cfg AuthConfig) {
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
}

func (l *LoopbackAppleID) SignIn(ctx context.Context) (Authorization, error) {
	l.mu.Lock()
	cfg := l.cfg
	l.mu.Unlock()

	state := cfg.State
	if strings.TrimSpace(state) == "" {
		state = uuid.NewString()
	}
	query := url.Values{}
	query.Set("client_id", cfg.ClientID)
	query.Set("redirect_uri", cfg.RedirectURI)
	query.Set("response_type", "code id_token")
	query.Set("response_mode", "form_post")
	query.Set("scope", cfg.Scope)
	query.Set("state", state)
	if strings.TrimSpace(cfg.Nonce) != "" {
		query.Set("nonce", cfg.Nonce)
	}
	l.receiver.Discard()
	if l.open != nil {
		if err := l.open(l.authorizeURL + "?" + query.Encode()); err != nil {
			return Authorization{}, fmt.Errorf("apple: open authorize url: %w", err)
		}
	}

	values, err := l.receiver.Await(ctx)
	if err != nil {
		return Authorization{}, err
	}
	if code := strings.TrimSpace(values.Get("error")); code != "" {
		return Authorization{}, &SDKError{Code: code}
	}
	if values.Get("state") != state {
		return Authorization{}, &SDKError{Code: "state_mismatch"}
	}
	auth := Authorization{
		Code:    values.Get("code"),
		IDToken: values.Get("id_token"),
		State:   values.Get("state"),
	}
	if raw := strings.TrimSpace(values.Get("user")); raw != "" {
		var user User
		if err := json.Unmarshal([]byte(raw), &user); err == nil {
			auth.User = &user
		}
	}
	return auth, nil
}

var _ AppleID = (*LoopbackAppleID)(nil)
