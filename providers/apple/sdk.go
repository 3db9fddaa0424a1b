package apple

import (
	"context"
	"strings"
)

// ScriptURL is the Sign in with Apple JS SDK.
const ScriptURL = "https://appleid.cdn-apple.com/appleauth/static/jsapi/appleid/1/en_US/appleid.auth.js"

const (
	ErrorPopupClosed         = "popup_closed_by_user"
	ErrorUserCancelledSignIn = "user_cancelled_authorize"
)

// AppleID is the slice of the AppleID.auth API the adapter drives.
type AppleID interface {
	Init(cfg AuthConfig)
	SignIn(ctx context.Context) (Authorization, error)
}

type AuthConfig struct {
	ClientID    string
	Scope       string
	RedirectURI string
	State       string
	Nonce       string
	UsePopup    bool
}

type Authorization struct {
	Code    string
	IDToken string
	State   string
	User    *User
}

type User struct {
	Email string `json:"email,omitempty"`
	Name  *Name  `json:"name,omitempty"`
}

type Name struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// SDKError carries the error string AppleID.auth rejects with.
type SDKError struct {
	Code string
}

func (e *SDKError) Error() string {
	if e == nil || strings.TrimSpace(e.Code) == "" {
		return "apple: sign in failed"
	}
	return e.Code
}

func (e *SDKError) Cancelled() bool {
	if e == nil {
		return false
	}
	switch strings.TrimSpace(e.Code) {
	case ErrorPopupClosed, ErrorUserCancelledSignIn:
		return true
	default:
		return false
	}
}
