package providers

import (
	"context"
	"strings"

	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/identity"
)

// Adapter drives one identity provider's client-side flow.
type Adapter interface {
	ID() core.Provider
	// Init loads and configures the provider SDK. It runs at most once per
	// adapter; concurrent callers share the same attempt.
	Init(ctx context.Context) error
	// SignIn presents the provider flow and blocks until the user completes
	// or dismisses it. Dismissal yields a ProviderError with the cancelled
	// reason.
	SignIn(ctx context.Context) (Result, error)
}

// Result is what a completed provider flow hands back. Name fields are only
// present on the first consent for Apple.
type Result struct {
	Provider          core.Provider
	IDToken           string
	AuthorizationCode string
	FirstName         string
	LastName          string
	// Profile holds unverified claims from IDToken when it parsed as a JWT.
	Profile *identity.Profile
}

func (r Result) GoogleRequest() core.GoogleAuthRequest {
	return core.GoogleAuthRequest{IDToken: r.IDToken}
}

func (r Result) AppleRequest() core.AppleAuthRequest {
	return core.AppleAuthRequest{
		IdentityToken:     r.IDToken,
		AuthorizationCode: r.AuthorizationCode,
		FirstName:         strings.TrimSpace(r.FirstName),
		LastName:          strings.TrimSpace(r.LastName),
	}
}

// DisplayName prefers the names the provider returned and falls back to the
// token claims.
func (r Result) DisplayName() string {
	name := strings.TrimSpace(strings.Join([]string{strings.TrimSpace(r.FirstName), strings.TrimSpace(r.LastName)}, " "))
	if name != "" {
		return name
	}
	if r.Profile != nil {
		return r.Profile.Name
	}
	return ""
}

// WithClaims attaches the token's unverified claims. Opaque tokens are left
// without a profile.
func (r Result) WithClaims() Result {
	if strings.TrimSpace(r.IDToken) == "" {
		return r
	}
	profile, err := identity.ParseClaims(r.Provider, r.IDToken)
	if err != nil {
		return r
	}
	r.Profile = &profile
	return r
}
