// Package apple adapts Sign in with Apple to the providers.Adapter contract.
package apple

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/providers"
)

const (
	defaultScope = "name email"

	msgNotConfigured = "Apple Client ID not configured"
	msgLoadFailed    = "Failed to load Apple Sign In SDK"
	msgNotLoaded     = "Apple Sign In SDK not loaded"
	msgCancelled     = "Sign in was cancelled"
	msgFailed        = "Apple Sign In failed"
	msgNoToken       = "No identity token received from Apple"
)

type Config struct {
	ClientID    string
	RedirectURI string
	Scope       string
}

type Adapter struct {
	cfg    Config
	sdk    AppleID
	loader providers.ScriptLoader
	guard  providers.InitGuard
}

type Option func(*Adapter)

func WithLoader(loader providers.ScriptLoader) Option {
	return func(a *Adapter) {
		a.loader = loader
	}
}

func New(cfg Config, sdk AppleID, opts ...Option) *Adapter {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.RedirectURI = strings.TrimSpace(cfg.RedirectURI)
	if strings.TrimSpace(cfg.Scope) == "" {
		cfg.Scope = defaultScope
	}
	adapter := &Adapter{cfg: cfg, sdk: sdk}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	return adapter
}

func (a *Adapter) ID() core.Provider {
	return core.ProviderApple
}

// Init loads the SDK and registers the client id, scopes and redirect.
func (a *Adapter) Init(ctx context.Context) error {
	return a.guard.Do(ctx, func(ctx context.Context) error {
		if a.cfg.ClientID == "" {
			return providerError(core.ProviderReasonConfiguration, msgNotConfigured, nil)
		}
		if a.loader != nil {
			if err := a.loader.Load(ctx, ScriptURL); err != nil {
				return providerError(core.ProviderReasonLoad, msgLoadFailed, err)
			}
		}
		if a.sdk == nil {
			return providerError(core.ProviderReasonLoad, msgNotLoaded, nil)
		}
		a.sdk.Init(AuthConfig{
			ClientID:    a.cfg.ClientID,
			Scope:       a.cfg.Scope,
			RedirectURI: a.cfg.RedirectURI,
			UsePopup:    true,
		})
		return nil
	})
}

// SignIn runs the Apple flow. Name fields are only present on the first
// consent.
func (a *Adapter) SignIn(ctx context.Context) (providers.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.Init(ctx); err != nil {
		return providers.Result{}, err
	}
	auth, err := a.sdk.SignIn(ctx)
	if err != nil {
		return providers.Result{}, mapSignInError(err)
	}
	if strings.TrimSpace(auth.IDToken) == "" {
		return providers.Result{}, providerError(core.ProviderReasonFailed, msgNoToken, nil)
	}
	result := providers.Result{
		Provider:          core.ProviderApple,
		IDToken:           strings.TrimSpace(auth.IDToken),
		AuthorizationCode: strings.TrimSpace(auth.Code),
	}
	if auth.User != nil && auth.User.Name != nil {
		result.FirstName = strings.TrimSpace(auth.User.Name.FirstName)
		result.LastName = strings.TrimSpace(auth.User.Name.LastName)
	}
	return result.WithClaims(), nil
}

func mapSignInError(err error) error {
	var sdkErr *SDKError
	if errors.As(err, &sdkErr) {
		if sdkErr.Cancelled() {
			return providerError(core.ProviderReasonCancelled, msgCancelled, err)
		}
		message := strings.TrimSpace(sdkErr.Code)
		if message == "" {
			message = msgFailed
		}
		return providerError(core.ProviderReasonFailed, message, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return providerError(core.ProviderReasonCancelled, msgCancelled, err)
	}
	return providerError(core.ProviderReasonFailed, msgFailed, err)
}

func providerError(reason core.ProviderReason, message string, cause error) error {
	return core.NewProviderError(string(core.ProviderApple), reason, message, cause)
}

var _ providers.Adapter = (*Adapter)(nil)
