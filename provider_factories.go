package authsession

import (
	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/providers/apple"
	"github.com/goliatone/go-auth-session/providers/google"
	"github.com/goliatone/go-auth-session/providers/loopback"
)

func GoogleProvider(cfg Config, accounts google.Accounts, opts ...google.Option) *google.Adapter {
	return google.New(cfg.Google.ClientID, accounts, opts...)
}

// AppleProvider uses the configured redirect, which defaults to the app
// origin.
func AppleProvider(cfg Config, sdk apple.AppleID, opts ...apple.Option) *apple.Adapter {
	return apple.New(apple.Config{
		ClientID:    cfg.Apple.ClientID,
		RedirectURI: cfg.AppleRedirect(),
	}, sdk, opts...)
}

// LoopbackProviders builds both adapters over a shared callback receiver.
// open is called with the page or authorize URL the user has to visit.
func LoopbackProviders(cfg Config, receiver *loopback.Receiver, open func(string) error, logger core.Logger) (*google.Adapter, *apple.Adapter) {
	googleOpts := []google.Option{}
	if logger != nil {
		googleOpts = append(googleOpts, google.WithLogger(logger))
	}
	googleAdapter := GoogleProvider(cfg, google.NewLoopbackAccounts(receiver, open), googleOpts...)
	appleAdapter := AppleProvider(cfg, apple.NewLoopbackAppleID(receiver, open))
	return googleAdapter, appleAdapter
}
