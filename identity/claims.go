package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-auth-session/core"
)

const (
	googleIssuer = "https://accounts.google.com"
	appleIssuer  = "https://appleid.apple.com"

	textCodeInvalidIDToken = "INVALID_ID_TOKEN"
)

var ErrInvalidIDToken = errors.New("identity: invalid id token")

// ClaimsError reports a token that could not be read as a JWT.
type ClaimsError struct {
	Cause error
}

func (e *ClaimsError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrInvalidIDToken.Error()
	}
	return ErrInvalidIDToken.Error() + ": " + e.Cause.Error()
}

func (e *ClaimsError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return ErrInvalidIDToken
	}
	return errors.Join(ErrInvalidIDToken, e.Cause)
}

func (e *ClaimsError) ToServiceError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(textCodeInvalidIDToken)
}

// Profile is what a provider id token says about the user. Claims are read
// without signature verification; the API verifies the token on exchange, so
// a Profile is only a display hint.
type Profile struct {
	Provider      core.Provider
	Issuer        string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
	PictureURL    string
	Locale        string
	ExpiresAt     time.Time
	Raw           map[string]any
}

func (p Profile) ExternalAccountID() string {
	subject := strings.TrimSpace(p.Subject)
	if subject == "" {
		return ""
	}
	issuer := strings.TrimSpace(p.Issuer)
	if issuer == "" {
		return subject
	}
	return issuer + "|" + subject
}

// Expired reports whether the token carried an exp claim in the past.
func (p Profile) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

func (p Profile) Map() map[string]any {
	metadata := map[string]any{
		"provider":       string(p.Provider),
		"issuer":         strings.TrimSpace(p.Issuer),
		"subject":        strings.TrimSpace(p.Subject),
		"external_id":    p.ExternalAccountID(),
		"email":          strings.TrimSpace(p.Email),
		"email_verified": p.EmailVerified,
		"name":           strings.TrimSpace(p.Name),
		"given_name":     strings.TrimSpace(p.GivenName),
		"family_name":    strings.TrimSpace(p.FamilyName),
		"picture_url":    strings.TrimSpace(p.PictureURL),
		"locale":         strings.TrimSpace(p.Locale),
	}
	if !p.ExpiresAt.IsZero() {
		metadata["expires_at"] = p.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return metadata
}

// ParseClaims decodes the payload of a provider id token.
func ParseClaims(provider core.Provider, token string) (Profile, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Profile{}, &ClaimsError{Cause: fmt.Errorf("token is empty")}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Profile{}, &ClaimsError{Cause: err}
	}

	issuer, _ := claims.GetIssuer()
	if strings.TrimSpace(issuer) == "" {
		issuer = defaultIssuer(provider)
	}
	subject, _ := claims.GetSubject()
	profile := Profile{
		Provider:      provider,
		Issuer:        strings.TrimSpace(issuer),
		Subject:       strings.TrimSpace(subject),
		Email:         readString(claims["email"]),
		EmailVerified: readBool(claims["email_verified"]),
		Name:          readString(claims["name"]),
		GivenName:     readString(claims["given_name"]),
		FamilyName:    readString(claims["family_name"]),
		PictureURL:    readString(claims["picture"]),
		Locale:        readString(claims["locale"]),
		Raw:           copyMap(claims),
	}
	if expires, err := claims.GetExpirationTime(); err == nil && expires != nil {
		profile.ExpiresAt = expires.Time
	}
	if profile.Name == "" {
		profile.Name = strings.TrimSpace(strings.Join([]string{profile.GivenName, profile.FamilyName}, " "))
	}
	if profile.Subject == "" {
		return Profile{}, &ClaimsError{Cause: fmt.Errorf("token is missing subject")}
	}
	return profile, nil
}

func defaultIssuer(provider core.Provider) string {
	switch provider {
	case core.ProviderGoogle:
		return googleIssuer
	case core.ProviderApple:
		return appleIssuer
	default:
		return ""
	}
}

func copyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

func readString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

// readBool accepts Apple's string encoded booleans as well as JSON booleans.
func readBool(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && parsed
	case float64:
		return typed != 0
	default:
		return false
	}
}
