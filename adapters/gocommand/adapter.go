// Package gocommand registers the session commands and queries with a
// go-command registry and the global dispatcher.
package gocommand

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	authcommand "github.com/goliatone/go-auth-session/command"
	"github.com/goliatone/go-auth-session/core"
	authquery "github.com/goliatone/go-auth-session/query"
)

var errNoRegistry = errors.New("gocommand: registry is not configured")

// CheckMessage rejects messages without a Type() and runs Validate() when
// the message has one.
func CheckMessage(msg any) error {
	typed, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: %T does not implement Type() string", msg)
	}
	if strings.TrimSpace(typed.Type()) == "" {
		return fmt.Errorf("gocommand: %T has an empty message type", msg)
	}
	return command.ValidateMessage(msg)
}

// RegistryAdapter wraps a go-command registry. Resolvers added before
// Initialize see every registered handler, which is how commands are
// mirrored into a go-job queue registry.
type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) ready() error {
	if a == nil || a.registry == nil {
		return errNoRegistry
	}
	return nil
}

// RegisterCommand adds a command or query handler to the registry.
func (a *RegistryAdapter) RegisterCommand(handler any) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.RegisterCommand(handler)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	return a.ready() == nil && a.registry.HasResolver(strings.TrimSpace(key))
}

// AddQueueResolver mirrors registered commands into queueRegistry so a
// go-job worker can execute them by message type.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) Initialize() error {
	if err := a.ready(); err != nil {
		return err
	}
	return a.registry.Initialize()
}

// Dispatch checks msg then hands it to the global dispatcher.
func Dispatch[T any](ctx context.Context, msg T) error {
	if err := CheckMessage(msg); err != nil {
		return err
	}
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	if err := CheckMessage(msg); err != nil {
		var zero R
		return zero, err
	}
	return commanddispatcher.Query[T, R](ctx, msg)
}

// Bind registers cmd and subscribes it to the dispatcher. The subscription
// is dropped when registration fails.
func Bind[T any](adapter *RegistryAdapter, cmd command.Commander[T], opts ...runner.Option) (commanddispatcher.Subscription, error) {
	if err := adapter.ready(); err != nil {
		return nil, err
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	sub := commanddispatcher.SubscribeCommand(cmd, opts...)
	return keep(sub, adapter.RegisterCommand(cmd))
}

// BindQuery is Bind for query handlers.
func BindQuery[T any, R any](adapter *RegistryAdapter, qry command.Querier[T, R], opts ...runner.Option) (commanddispatcher.Subscription, error) {
	if err := adapter.ready(); err != nil {
		return nil, err
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	sub := commanddispatcher.SubscribeQuery(qry, opts...)
	return keep(sub, adapter.RegisterCommand(qry))
}

func keep(sub commanddispatcher.Subscription, err error) (commanddispatcher.Subscription, error) {
	if err == nil {
		return sub, nil
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	return nil, err
}

// Subscriptions groups dispatcher subscriptions so they can be released
// together.
type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, sub := range s {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}

// RegisterSessionHandlers wires every session command and query for store.
// Provider sign-in is only registered when adapters is non-nil. On error the
// subscriptions made so far are released.
func RegisterSessionHandlers(
	adapter *RegistryAdapter,
	store *core.Store,
	adapters authcommand.AdapterResolver,
	opts ...runner.Option,
) (Subscriptions, error) {
	if store == nil {
		return nil, fmt.Errorf("gocommand: session store is required")
	}

	var (
		subs Subscriptions
		err  error
	)
	add := func(sub commanddispatcher.Subscription, bindErr error) {
		if err != nil {
			return
		}
		if bindErr != nil {
			err = bindErr
			return
		}
		subs = append(subs, sub)
	}

	add(Bind[authcommand.RegisterMessage](adapter, authcommand.NewRegisterCommand(store), opts...))
	add(Bind[authcommand.LoginMessage](adapter, authcommand.NewLoginCommand(store), opts...))
	add(Bind[authcommand.GoogleAuthMessage](adapter, authcommand.NewGoogleAuthCommand(store), opts...))
	add(Bind[authcommand.AppleAuthMessage](adapter, authcommand.NewAppleAuthCommand(store), opts...))
	add(Bind[authcommand.RefreshMessage](adapter, authcommand.NewRefreshCommand(store), opts...))
	add(Bind[authcommand.LogoutMessage](adapter, authcommand.NewLogoutCommand(store), opts...))
	add(Bind[authcommand.ClearAuthMessage](adapter, authcommand.NewClearAuthCommand(store), opts...))
	add(Bind[authcommand.ForgotPasswordMessage](adapter, authcommand.NewForgotPasswordCommand(store), opts...))
	add(Bind[authcommand.ResetPasswordMessage](adapter, authcommand.NewResetPasswordCommand(store), opts...))
	add(Bind[authcommand.ChangePasswordMessage](adapter, authcommand.NewChangePasswordCommand(store), opts...))
	add(BindQuery[authquery.SessionStateMessage, core.SessionState](adapter, authquery.NewSessionStateQuery(store), opts...))
	add(BindQuery[authquery.ProfileMessage, core.UserInfo](adapter, authquery.NewProfileQuery(store), opts...))
	add(BindQuery[authquery.CheckEmailMessage, core.EmailAvailability](adapter, authquery.NewCheckEmailQuery(store), opts...))
	if adapters != nil {
		add(Bind[authcommand.ProviderSignInMessage](adapter, authcommand.NewProviderSignInCommand(store, adapters), opts...))
	}

	if err != nil {
		subs.Unsubscribe()
		return nil, err
	}
	return subs, nil
}
