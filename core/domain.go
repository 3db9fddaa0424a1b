package core

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var fieldValidator = validator.New()

type Provider string

const (
	ProviderEmail  Provider = "email"
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderEmail, ProviderGoogle, ProviderApple:
		return true
	default:
		return false
	}
}

// UserInfo is the immutable profile snapshot returned by the API. It is
// replaced wholesale on every successful auth action.
type UserInfo struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	Provider  Provider `json:"provider"`
	CreatedAt string   `json:"createdAt"`
}

func (u UserInfo) IsZero() bool {
	return strings.TrimSpace(u.ID) == ""
}

// Session bundles the credentials and the profile. A *Session is either nil
// or carries all three parts.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         UserInfo
}

func (s *Session) Valid() bool {
	if s == nil {
		return false
	}
	return strings.TrimSpace(s.AccessToken) != "" &&
		strings.TrimSpace(s.RefreshToken) != "" &&
		!s.User.IsZero()
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	copied := *s
	return &copied
}

// SessionState is the read-only view handed to observers.
type SessionState struct {
	Session   *Session
	ExpiresAt time.Time
	Loading   bool
	LastError *StructuredError
}

func (s SessionState) IsAuthenticated() bool {
	return s.Session.Valid()
}

type AuthResponse struct {
	AccessToken  string   `json:"accessToken"`
	RefreshToken string   `json:"refreshToken"`
	User         UserInfo `json:"user"`
	ExpiresIn    int64    `json:"expiresIn"`
}

func (r AuthResponse) session() *Session {
	return &Session{
		AccessToken:  strings.TrimSpace(r.AccessToken),
		RefreshToken: strings.TrimSpace(r.RefreshToken),
		User:         r.User,
	}
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type EmailAvailability struct {
	Available bool `json:"available"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (r RegisterRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if strings.TrimSpace(r.Name) == "" {
		return validationError("name", "name is required")
	}
	if r.Password == "" {
		return validationError("password", "password is required")
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return validationError("password", "password is required")
	}
	return nil
}

type GoogleAuthRequest struct {
	IDToken string `json:"idToken"`
}

func (r GoogleAuthRequest) Validate() error {
	if strings.TrimSpace(r.IDToken) == "" {
		return validationError("idToken", "google id token is required")
	}
	return nil
}

// AppleAuthRequest carries the name parts only on first consent; both may be
// empty on later sign-ins.
type AppleAuthRequest struct {
	IdentityToken     string `json:"identityToken"`
	AuthorizationCode string `json:"authorizationCode"`
	FirstName         string `json:"firstName,omitempty"`
	LastName          string `json:"lastName,omitempty"`
}

func (r AppleAuthRequest) Validate() error {
	if strings.TrimSpace(r.IdentityToken) == "" {
		return validationError("identityToken", "apple identity token is required")
	}
	if strings.TrimSpace(r.AuthorizationCode) == "" {
		return validationError("authorizationCode", "apple authorization code is required")
	}
	return nil
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

func (r ForgotPasswordRequest) Validate() error {
	return validateEmail(r.Email)
}

type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (r ResetPasswordRequest) Validate() error {
	if strings.TrimSpace(r.Token) == "" {
		return validationError("token", "reset token is required")
	}
	if r.NewPassword == "" {
		return validationError("newPassword", "new password is required")
	}
	return nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (r ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" {
		return validationError("currentPassword", "current password is required")
	}
	if r.NewPassword == "" {
		return validationError("newPassword", "new password is required")
	}
	return nil
}

// ValidateEmail requires a parseable address.
func ValidateEmail(email string) error {
	return validateEmail(email)
}

func validateEmail(email string) error {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return validationError("email", "email is required")
	}
	if err := fieldValidator.Var(trimmed, "email"); err != nil {
		return validationError("email", "email is invalid")
	}
	return nil
}
