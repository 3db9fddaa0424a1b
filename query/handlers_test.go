package query

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-auth-session/core"
)

func TestSessionStateQuery_ReturnsSnapshot(t *testing.T) {
	reader := stubReader{state: core.SessionState{
		Session: &core.Session{AccessToken: "a", RefreshToken: "r", User: core.UserInfo{ID: "u1"}},
		Loading: true,
	}}
	state, err := NewSessionStateQuery(reader).Query(context.Background(), SessionStateMessage{})
	if err != nil {
		t.Fatalf("query session state: %v", err)
	}
	if !state.IsAuthenticated() || !state.Loading {
		t.Fatalf("unexpected state: %#v", state)
	}
}

func TestProfileQuery_QueryDelegates(t *testing.T) {
	called := false
	reader := stubReader{profileFn: func(context.Context) (core.UserInfo, error) {
		called = true
		return core.UserInfo{ID: "u1", Email: "ada@example.com"}, nil
	}}
	profile, err := NewProfileQuery(reader).Query(context.Background(), ProfileMessage{})
	if err != nil {
		t.Fatalf("query profile: %v", err)
	}
	if !called || profile.Email != "ada@example.com" {
		t.Fatalf("unexpected profile result: %#v", profile)
	}
}

func TestCheckEmailQuery_QueryDelegatesAndPropagatesErrors(t *testing.T) {
	reader := stubReader{checkFn: func(_ context.Context, email string) (core.EmailAvailability, error) {
		if email == "taken@example.com" {
			return core.EmailAvailability{Available: false}, nil
		}
		return core.EmailAvailability{}, &core.NetworkError{}
	}}
	q := NewCheckEmailQuery(reader)

	out, err := q.Query(context.Background(), CheckEmailMessage{Email: "taken@example.com"})
	if err != nil || out.Available {
		t.Fatalf("expected unavailable email, got %#v err=%v", out, err)
	}

	_, err = q.Query(context.Background(), CheckEmailMessage{Email: "other@example.com"})
	var networkErr *core.NetworkError
	if !errors.As(err, &networkErr) {
		t.Fatalf("expected network error, got %v", err)
	}
}

type stubReader struct {
	state     core.SessionState
	profileFn func(ctx context.Context) (core.UserInfo, error)
	checkFn   func(ctx context.Context, email string) (core.EmailAvailability, error)
}

func (s stubReader) State() core.SessionState {
	return s.state
}

func (s stubReader) Profile(ctx context.Context) (core.UserInfo, error) {
	return s.profileFn(ctx)
}

func (s stubReader) CheckEmailAvailability(ctx context.Context, email string) (core.EmailAvailability, error) {
	return s.checkFn(ctx, email)
}
