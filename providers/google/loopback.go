package google

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/goliatone/go-auth-session/providers/loopback"
)

// LoopbackAccounts runs the GIS redirect flow outside a browser host. The
// receiver serves a page with the sign in button and accepts the credential
// GIS posts back to it.
type LoopbackAccounts struct {
	receiver *loopback.Receiver
	open     func(pageURL string) error
	button   ButtonConfig

	mu  sync.Mutex
	cfg IDConfiguration
}

// NewLoopbackAccounts drives receiver, which must already be started. open
// presents the page URL to the user.
func NewLoopbackAccounts(receiver *loopback.Receiver, open func(pageURL string) error) *LoopbackAccounts {
	return &LoopbackAccounts{
		receiver: receiver,
		open:     open,
		button:   DefaultButtonConfig(),
	}
}

func (l *LoopbackAccounts) Initialize(cfg IDConfiguration) {
	l.mu.Lock()
	l.cfg = cfg
	l.mu.Unlock()
	callbackURL := l.receiver.CallbackURL()
	l.receiver.SetPage(func(w io.Writer) error {
		return WriteButton(w, cfg.ClientID, callbackURL, l.button)
	})
}

func (l *LoopbackAccounts) Prompt(ctx context.Context, listener func(PromptNotification)) {
	notify := func(n PromptNotification) {
		if listener != nil {
			listener(n)
		}
	}
	l.receiver.Discard()
	if l.open != nil {
		if err := l.open(l.receiver.CallbackURL()); err != nil {
			notify(PromptNotification{NotDisplayed: true, Reason: "browser_unavailable"})
			return
		}
	}
	go func() {
		values, err := l.receiver.Await(ctx)
		if err != nil {
			notify(PromptNotification{Skipped: true, Reason: "user_cancel"})
			return
		}
		if reason := strings.TrimSpace(values.Get("error")); reason != "" {
			notify(PromptNotification{Skipped: true, Reason: reason})
			return
		}
		l.mu.Lock()
		cfg := l.cfg
		l.mu.Unlock()
		if cfg.Callback != nil {
			cfg.Callback(CredentialResponse{
				Credential: values.Get("credential"),
				SelectBy:   values.Get("select_by"),
				ClientID:   cfg.ClientID,
			})
		}
	}()
}

func (l *LoopbackAccounts) DisableAutoSelect() {}

var _ Accounts = (*LoopbackAccounts)(nil)
