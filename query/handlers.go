package query

import (
	"context"

	"github.com/goliatone/go-auth-session/core"
)

type SessionStateReader interface {
	State() core.SessionState
}

type ProfileReader interface {
	Profile(ctx context.Context) (core.UserInfo, error)
}

type EmailAvailabilityReader interface {
	CheckEmailAvailability(ctx context.Context, email string) (core.EmailAvailability, error)
}

// SessionStateQuery returns the current snapshot. It never touches storage
// or the API.
type SessionStateQuery struct {
	reader SessionStateReader
}

func NewSessionStateQuery(reader SessionStateReader) *SessionStateQuery {
	return &SessionStateQuery{reader: reader}
}

func (q *SessionStateQuery) Query(_ context.Context, _ SessionStateMessage) (core.SessionState, error) {
	if q == nil || q.reader == nil {
		return core.SessionState{}, core.MissingDependency("query: session state reader is required")
	}
	return q.reader.State(), nil
}

type ProfileQuery struct {
	reader ProfileReader
}

func NewProfileQuery(reader ProfileReader) *ProfileQuery {
	return &ProfileQuery{reader: reader}
}

func (q *ProfileQuery) Query(ctx context.Context, _ ProfileMessage) (core.UserInfo, error) {
	if q == nil || q.reader == nil {
		return core.UserInfo{}, core.MissingDependency("query: profile reader is required")
	}
	return q.reader.Profile(ctx)
}

type CheckEmailQuery struct {
	reader EmailAvailabilityReader
}

func NewCheckEmailQuery(reader EmailAvailabilityReader) *CheckEmailQuery {
	return &CheckEmailQuery{reader: reader}
}

func (q *CheckEmailQuery) Query(ctx context.Context, msg CheckEmailMessage) (core.EmailAvailability, error) {
	if q == nil || q.reader == nil {
		return core.EmailAvailability{}, core.MissingDependency("query: email availability reader is required")
	}
	return q.reader.CheckEmailAvailability(ctx, msg.Email)
}
