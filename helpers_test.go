package authsession

import (
	"context"
	"errors"
	"sync"

	authcommand "github.com/goliatone/go-auth-session/command"
	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/providers"
	authquery "github.com/goliatone/go-auth-session/query"
)

type fakeAdapter struct {
	mu      sync.Mutex
	id      core.Provider
	result  providers.Result
	initErr error
	inits   int
	signIns int
}

func (a *fakeAdapter) ID() core.Provider { return a.id }

func (a *fakeAdapter) Init(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inits++
	return a.initErr
}

func (a *fakeAdapter) SignIn(context.Context) (providers.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signIns++
	return a.result, nil
}

func loginMessage(password string) authcommand.LoginMessage {
	return authcommand.LoginMessage{Request: core.LoginRequest{Email: "ada@example.com", Password: password}}
}

func profileMessage() authquery.ProfileMessage {
	return authquery.ProfileMessage{}
}

func asProviderError(err error, target **core.ProviderError) bool {
	return errors.As(err, target)
}
