package query

import "github.com/goliatone/go-auth-session/core"

const (
	TypeSessionState = "auth_session.query.session.state"
	TypeProfile      = "auth_session.query.profile"
	TypeCheckEmail   = "auth_session.query.email.availability"
)

type SessionStateMessage struct{}

func (SessionStateMessage) Type() string { return TypeSessionState }

type ProfileMessage struct{}

func (ProfileMessage) Type() string { return TypeProfile }

type CheckEmailMessage struct {
	Email string
}

func (CheckEmailMessage) Type() string { return TypeCheckEmail }

func (m CheckEmailMessage) Validate() error { return core.ValidateEmail(m.Email) }
