package authsession

import (
	"context"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-auth-session/adapters/gologger"
	authcommand "github.com/goliatone/go-auth-session/command"
	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/i18n"
	"github.com/goliatone/go-auth-session/providers"
	authquery "github.com/goliatone/go-auth-session/query"
	"github.com/goliatone/go-auth-session/transport"
)

type Commands struct {
	Register       *authcommand.RegisterCommand
	Login          *authcommand.LoginCommand
	GoogleAuth     *authcommand.GoogleAuthCommand
	AppleAuth      *authcommand.AppleAuthCommand
	ProviderSignIn *authcommand.ProviderSignInCommand
	Refresh        *authcommand.RefreshCommand
	Logout         *authcommand.LogoutCommand
	ClearAuth      *authcommand.ClearAuthCommand
	ForgotPassword *authcommand.ForgotPasswordCommand
	ResetPassword  *authcommand.ResetPasswordCommand
	ChangePassword *authcommand.ChangePasswordCommand
}

type Queries struct {
	SessionState *authquery.SessionStateQuery
	Profile      *authquery.ProfileQuery
	CheckEmail   *authquery.CheckEmailQuery
}

// Facade owns one API client, one session store and the provider adapters
// configured for them.
type Facade struct {
	cfg        Config
	storage    core.Storage
	client     *transport.Client
	store      *core.Store
	providers  *ProviderRegistry
	catalog    *i18n.Catalog
	translator *i18n.Translator
	logger     glog.Logger
	commands   Commands
	queries    Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	storage        core.Storage
	httpClient     transport.HTTPDoer
	catalog        *i18n.Catalog
	adapters       []providers.Adapter
	loggerProvider glog.LoggerProvider
	logger         glog.Logger
	storeOptions   []core.Option
	clientOptions  []transport.ClientOption
}

// WithStorage is required for the sqlite and postgres drivers; the host owns
// the database handle.
func WithStorage(storage core.Storage) FacadeOption {
	return func(o *facadeOptions) {
		o.storage = storage
	}
}

func WithHTTPClient(doer transport.HTTPDoer) FacadeOption {
	return func(o *facadeOptions) {
		o.httpClient = doer
	}
}

func WithCatalog(catalog *i18n.Catalog) FacadeOption {
	return func(o *facadeOptions) {
		o.catalog = catalog
	}
}

func WithProviderAdapter(adapter providers.Adapter) FacadeOption {
	return func(o *facadeOptions) {
		if adapter != nil {
			o.adapters = append(o.adapters, adapter)
		}
	}
}

func WithFacadeLogger(provider glog.LoggerProvider, logger glog.Logger) FacadeOption {
	return func(o *facadeOptions) {
		o.loggerProvider = provider
		o.logger = logger
	}
}

func WithStoreOptions(opts ...core.Option) FacadeOption {
	return func(o *facadeOptions) {
		o.storeOptions = append(o.storeOptions, opts...)
	}
}

func WithClientOptions(opts ...transport.ClientOption) FacadeOption {
	return func(o *facadeOptions) {
		o.clientOptions = append(o.clientOptions, opts...)
	}
}

func NewFacade(cfg Config, opts ...FacadeOption) (*Facade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := facadeOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	storage := options.storage
	if storage == nil {
		driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
		if driver != "" && driver != core.StorageDriverMemory {
			return nil, fmt.Errorf("authsession: storage driver %q requires WithStorage", cfg.Storage.Driver)
		}
		storage = core.NewMemoryStorage()
	}

	loggers := gologger.Resolve(cfg.ServiceName, options.loggerProvider, options.logger)
	logger := loggers.Logger

	clientOpts := []transport.ClientOption{transport.WithLogger(logger)}
	if options.httpClient != nil {
		clientOpts = append(clientOpts, transport.WithHTTPClient(options.httpClient))
	}
	clientOpts = append(clientOpts, options.clientOptions...)
	client, err := transport.NewClient(cfg.API.BaseURL, storage, clientOpts...)
	if err != nil {
		return nil, err
	}

	storeOpts := append(loggers.StoreOptions(), options.storeOptions...)
	store, err := core.NewStore(client, storage, storeOpts...)
	if err != nil {
		return nil, err
	}

	catalog := options.catalog
	if catalog == nil {
		catalog, err = i18n.NewCatalog()
		if err != nil {
			return nil, err
		}
	}

	registry := NewProviderRegistry()
	for _, adapter := range options.adapters {
		if err := registry.Register(adapter); err != nil {
			return nil, err
		}
	}

	facade := &Facade{
		cfg:        cfg,
		storage:    storage,
		client:     client,
		store:      store,
		providers:  registry,
		catalog:    catalog,
		translator: i18n.NewTranslator(catalog.Localizer(cfg.Locale)),
		logger:     logger,
	}
	facade.commands = Commands{
		Register:       authcommand.NewRegisterCommand(store),
		Login:          authcommand.NewLoginCommand(store),
		GoogleAuth:     authcommand.NewGoogleAuthCommand(store),
		AppleAuth:      authcommand.NewAppleAuthCommand(store),
		ProviderSignIn: authcommand.NewProviderSignInCommand(store, registry.Adapter),
		Refresh:        authcommand.NewRefreshCommand(store),
		Logout:         authcommand.NewLogoutCommand(store),
		ClearAuth:      authcommand.NewClearAuthCommand(store),
		ForgotPassword: authcommand.NewForgotPasswordCommand(store),
		ResetPassword:  authcommand.NewResetPasswordCommand(store),
		ChangePassword: authcommand.NewChangePasswordCommand(store),
	}
	facade.queries = Queries{
		SessionState: authquery.NewSessionStateQuery(store),
		Profile:      authquery.NewProfileQuery(store),
		CheckEmail:   authquery.NewCheckEmailQuery(store),
	}
	return facade, nil
}

func (f *Facade) Config() Config {
	if f == nil {
		return Config{}
	}
	return f.cfg
}

func (f *Facade) Store() *core.Store {
	if f == nil {
		return nil
	}
	return f.store
}

func (f *Facade) Client() *transport.Client {
	if f == nil {
		return nil
	}
	return f.client
}

func (f *Facade) Storage() core.Storage {
	if f == nil {
		return nil
	}
	return f.storage
}

func (f *Facade) Providers() *ProviderRegistry {
	if f == nil {
		return nil
	}
	return f.providers
}

func (f *Facade) Catalog() *i18n.Catalog {
	if f == nil {
		return nil
	}
	return f.catalog
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

// Start restores the persisted session and initializes the registered
// providers. A provider failing to initialize is logged, not returned; the
// failure surfaces again when that provider is used.
func (f *Facade) Start(ctx context.Context) error {
	if f == nil || f.store == nil {
		return fmt.Errorf("authsession: facade is not configured")
	}
	if err := f.store.Init(ctx); err != nil {
		return err
	}
	failures, _ := f.providers.InitAll(ctx)
	for provider, err := range failures {
		f.logger.Warn("identity provider init failed", "provider", string(provider), "error", err.Error())
	}
	return nil
}

// SignIn runs the provider flow and exchanges its result for a session.
func (f *Facade) SignIn(ctx context.Context, provider core.Provider) (*core.Session, error) {
	if f == nil || f.store == nil {
		return nil, fmt.Errorf("authsession: facade is not configured")
	}
	msg := authcommand.ProviderSignInMessage{Provider: provider}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if err := f.commands.ProviderSignIn.Execute(ctx, msg); err != nil {
		return nil, err
	}
	return f.store.Session(), nil
}

// Translate renders err (or a StructuredError) in the configured locale.
func (f *Facade) Translate(value any) string {
	if f == nil || f.translator == nil {
		return i18n.NewTranslator(nil).Translate(value)
	}
	return f.translator.Translate(value)
}

func (f *Facade) FieldErrors(err error) map[string]string {
	if f == nil || f.translator == nil {
		return i18n.NewTranslator(nil).ToFieldErrorMap(err)
	}
	return f.translator.ToFieldErrorMap(err)
}

// RunRefresh keeps the session fresh until ctx is done, using the
// configured skew.
func (f *Facade) RunRefresh(ctx context.Context, onError func(error)) error {
	if f == nil || f.store == nil {
		return fmt.Errorf("authsession: facade is not configured")
	}
	runner, err := core.NewRefreshRunner(f.store, core.RefreshRunnerOptions{
		Skew:    time.Duration(f.cfg.Refresh.SkewSeconds) * time.Second,
		OnError: onError,
	})
	if err != nil {
		return err
	}
	return runner.Run(ctx)
}
