package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-config/cfgx"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type storeBuilder struct {
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	userCodec       UserCodec
	accountAPI      AccountAPI
	now             func() time.Time
}

type Option func(*storeBuilder)

func WithLogger(logger Logger) Option {
	return func(b *storeBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *storeBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *storeBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithUserCodec(codec UserCodec) Option {
	return func(b *storeBuilder) {
		b.userCodec = codec
	}
}

// WithAccountAPI sets the client used by the password and profile flows.
// When unset the AuthAPI is used if it also implements AccountAPI.
func WithAccountAPI(api AccountAPI) Option {
	return func(b *storeBuilder) {
		b.accountAPI = api
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *storeBuilder) {
		b.now = now
	}
}

func defaultStoreBuilder() storeBuilder {
	return storeBuilder{
		metricsRecorder: NopMetricsRecorder{},
		userCodec:       JSONUserCodec{},
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (b storeBuilder) resolveLogger() (LoggerProvider, Logger) {
	return glog.Resolve("auth-session", b.loggerProvider, b.logger)
}

// EnvConfigLoader reads the AUTH_* environment variables. Environment
// replaces the process environment when set.
type EnvConfigLoader struct {
	Environment map[string]string
}

type envSettings struct {
	APIURL            string `env:"AUTH_API_URL"`
	GoogleClientID    string `env:"AUTH_GOOGLE_CLIENT_ID"`
	AppleClientID     string `env:"AUTH_APPLE_CLIENT_ID"`
	AppleRedirectURI  string `env:"AUTH_APPLE_REDIRECT_URI"`
	AppOrigin         string `env:"AUTH_APP_ORIGIN"`
	Locale            string `env:"AUTH_LOCALE"`
	StorageDriver     string `env:"AUTH_STORAGE_DRIVER"`
	StorageDSN        string `env:"AUTH_STORAGE_DSN"`
	StorageSealKey    string `env:"AUTH_STORAGE_SEAL_KEY"`
	RefreshSkewSecond int    `env:"AUTH_REFRESH_SKEW_SECONDS"`
}

func (l EnvConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	settings := envSettings{}
	options := env.Options{}
	if l.Environment != nil {
		options.Environment = l.Environment
	}
	if err := env.ParseWithOptions(&settings, options); err != nil {
		return nil, fmt.Errorf("core: parse environment: %w", err)
	}

	raw := map[string]any{}
	setNested(raw, settings.APIURL, "api", "base_url")
	setNested(raw, settings.GoogleClientID, "google", "client_id")
	setNested(raw, settings.AppleClientID, "apple", "client_id")
	setNested(raw, settings.AppleRedirectURI, "apple", "redirect_uri")
	setNested(raw, settings.AppOrigin, "app_origin")
	setNested(raw, settings.Locale, "locale")
	setNested(raw, settings.StorageDriver, "storage", "driver")
	setNested(raw, settings.StorageDSN, "storage", "dsn")
	setNested(raw, settings.StorageSealKey, "storage", "seal_key")
	if settings.RefreshSkewSecond > 0 {
		raw["refresh"] = map[string]any{"skew_seconds": settings.RefreshSkewSecond}
	}
	return raw, nil
}

func setNested(target map[string]any, value string, path ...string) {
	value = strings.TrimSpace(value)
	if value == "" || len(path) == 0 {
		return
	}
	current := target
	for _, key := range path[:len(path)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// LoadConfig layers defaults, the provider's config and runtime overrides,
// in increasing precedence.
func LoadConfig(ctx context.Context, provider ConfigProvider, resolver OptionsResolver, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	if provider == nil {
		provider = NewCfgxConfigProvider(EnvConfigLoader{})
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	putString := func(target map[string]any, key string, value string) {
		if includeZero || strings.TrimSpace(value) != "" {
			target[key] = value
		}
	}
	putSection := func(key string, section map[string]any) {
		if len(section) > 0 {
			layer[key] = section
		}
	}

	putString(layer, "service_name", cfg.ServiceName)
	putString(layer, "app_origin", cfg.AppOrigin)
	putString(layer, "locale", cfg.Locale)

	api := map[string]any{}
	putString(api, "base_url", cfg.API.BaseURL)
	putSection("api", api)

	google := map[string]any{}
	putString(google, "client_id", cfg.Google.ClientID)
	putSection("google", google)

	apple := map[string]any{}
	putString(apple, "client_id", cfg.Apple.ClientID)
	putString(apple, "redirect_uri", cfg.Apple.RedirectURI)
	putSection("apple", apple)

	storage := map[string]any{}
	putString(storage, "driver", cfg.Storage.Driver)
	putString(storage, "dsn", cfg.Storage.DSN)
	putString(storage, "seal_key", cfg.Storage.SealKey)
	putSection("storage", storage)

	if includeZero || cfg.Refresh.SkewSeconds > 0 {
		layer["refresh"] = map[string]any{"skew_seconds": cfg.Refresh.SkewSeconds}
	}
	return layer
}
