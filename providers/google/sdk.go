package google

import "context"

// ScriptURL is the Google Identity Services client library.
const ScriptURL = "https://accounts.google.com/gsi/client"

// Accounts is the slice of the Google Identity Services id API the adapter
// drives.
type Accounts interface {
	Initialize(cfg IDConfiguration)
	// Prompt shows the sign in prompt. listener receives the prompt moment
	// when it is not displayed or is skipped.
	Prompt(ctx context.Context, listener func(PromptNotification))
	DisableAutoSelect()
}

type IDConfiguration struct {
	ClientID           string
	Callback           func(CredentialResponse)
	AutoSelect         bool
	CancelOnTapOutside bool
}

type CredentialResponse struct {
	Credential string
	SelectBy   string
	ClientID   string
}

type PromptNotification struct {
	NotDisplayed bool
	Skipped      bool
	Reason       string
}

func (n PromptNotification) IsNotDisplayed() bool { return n.NotDisplayed }

func (n PromptNotification) IsSkippedMoment() bool { return n.Skipped }
