// Package google adapts Google Identity Services to the providers.Adapter
// contract.
package google

import (
	"context"
	"io"
	"strings"
	"sync"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/providers"
)

const (
	msgNotConfigured = "Google Client ID not configured"
	msgLoadFailed    = "Failed to load Google Identity Services"
	msgNotLoaded     = "Google Identity Services not loaded"
	msgNoCredential  = "No credential received from Google"
	msgCancelled     = "Google Sign-In was cancelled or not displayed"
)

type Adapter struct {
	clientID string
	accounts Accounts
	loader   providers.ScriptLoader
	button   ButtonConfig
	loginURI string
	logger   core.Logger
	guard    providers.InitGuard
}

type Option func(*Adapter)

// WithLoader fetches the GIS script during Init.
func WithLoader(loader providers.ScriptLoader) Option {
	return func(a *Adapter) {
		a.loader = loader
	}
}

func WithButtonConfig(button ButtonConfig) Option {
	return func(a *Adapter) {
		a.button = button
	}
}

// WithLoginURI switches the rendered button to redirect mode.
func WithLoginURI(uri string) Option {
	return func(a *Adapter) {
		a.loginURI = strings.TrimSpace(uri)
	}
}

func WithLogger(logger core.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New returns an adapter for clientID driving accounts. An empty clientID is
// reported by Init, not here.
func New(clientID string, accounts Accounts, opts ...Option) *Adapter {
	adapter := &Adapter{
		clientID: strings.TrimSpace(clientID),
		accounts: accounts,
		button:   DefaultButtonConfig(),
		logger:   glog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	return adapter
}

func (a *Adapter) ID() core.Provider {
	return core.ProviderGoogle
}

func (a *Adapter) Init(ctx context.Context) error {
	return a.guard.Do(ctx, func(ctx context.Context) error {
		if a.clientID == "" {
			return a.providerError(core.ProviderReasonConfiguration, msgNotConfigured, nil)
		}
		if a.loader != nil {
			if err := a.loader.Load(ctx, ScriptURL); err != nil {
				return a.providerError(core.ProviderReasonLoad, msgLoadFailed, err)
			}
		}
		if a.accounts == nil {
			return a.providerError(core.ProviderReasonLoad, msgNotLoaded, nil)
		}
		return nil
	})
}

// SignIn shows the prompt and waits for a credential. A prompt that is not
// displayed or is skipped counts as a cancellation.
func (a *Adapter) SignIn(ctx context.Context) (providers.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.Init(ctx); err != nil {
		return providers.Result{}, err
	}

	type outcome struct {
		credential string
		err        error
	}
	outcomes := make(chan outcome, 1)
	var once sync.Once
	settle := func(o outcome) {
		once.Do(func() { outcomes <- o })
	}

	promptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.accounts.Initialize(IDConfiguration{
		ClientID: a.clientID,
		Callback: func(response CredentialResponse) {
			credential := strings.TrimSpace(response.Credential)
			if credential == "" {
				settle(outcome{err: a.providerError(core.ProviderReasonFailed, msgNoCredential, nil)})
				return
			}
			settle(outcome{credential: credential})
		},
		AutoSelect:         false,
		CancelOnTapOutside: true,
	})
	a.accounts.Prompt(promptCtx, func(notification PromptNotification) {
		if notification.IsNotDisplayed() || notification.IsSkippedMoment() {
			settle(outcome{err: a.providerError(core.ProviderReasonCancelled, msgCancelled, nil)})
		}
	})

	select {
	case result := <-outcomes:
		if result.err != nil {
			return providers.Result{}, result.err
		}
		return providers.Result{Provider: core.ProviderGoogle, IDToken: result.credential}.WithClaims(), nil
	case <-ctx.Done():
		return providers.Result{}, a.providerError(core.ProviderReasonCancelled, msgCancelled, ctx.Err())
	}
}

// RenderButton writes the provider-styled button into w. It requires a
// successful Init.
func (a *Adapter) RenderButton(w io.Writer) error {
	if !a.guard.Initialized() {
		a.logger.Error(msgNotLoaded, "provider", string(core.ProviderGoogle))
		return a.providerError(core.ProviderReasonFailed, msgNotLoaded, nil)
	}
	return WriteButton(w, a.clientID, a.loginURI, a.button)
}

// SignOut stops GIS from silently selecting the last account.
func (a *Adapter) SignOut() {
	if a.accounts != nil && a.guard.Initialized() {
		a.accounts.DisableAutoSelect()
	}
}

func (a *Adapter) providerError(reason core.ProviderReason, message string, cause error) error {
	return core.NewProviderError(string(core.ProviderGoogle), reason, message, cause)
}

var _ providers.Adapter = (*Adapter)(nil)
