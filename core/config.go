package core

import (
	"fmt"
	"net/url"
	"strings"
)

type APIConfig struct {
	BaseURL string `koanf:"base_url" mapstructure:"base_url"`
}

type GoogleConfig struct {
	ClientID string `koanf:"client_id" mapstructure:"client_id"`
}

type AppleConfig struct {
	ClientID    string `koanf:"client_id" mapstructure:"client_id"`
	RedirectURI string `koanf:"redirect_uri" mapstructure:"redirect_uri"`
}

type StorageConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`

	// SealKey encrypts stored values at rest when set.
	SealKey string `koanf:"seal_key" mapstructure:"seal_key" json:"-"`
}

type RefreshConfig struct {
	SkewSeconds int `koanf:"skew_seconds" mapstructure:"skew_seconds"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	API         APIConfig     `koanf:"api" mapstructure:"api"`
	Google      GoogleConfig  `koanf:"google" mapstructure:"google"`
	Apple       AppleConfig   `koanf:"apple" mapstructure:"apple"`
	AppOrigin   string        `koanf:"app_origin" mapstructure:"app_origin"`
	Locale      string        `koanf:"locale" mapstructure:"locale"`
	Storage     StorageConfig `koanf:"storage" mapstructure:"storage"`
	Refresh     RefreshConfig `koanf:"refresh" mapstructure:"refresh"`
}

const (
	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

func DefaultConfig() Config {
	return Config{
		ServiceName: "auth-session",
		API:         APIConfig{BaseURL: "http://localhost:3000"},
		AppOrigin:   "http://127.0.0.1:8085",
		Locale:      "en",
		Storage:     StorageConfig{Driver: StorageDriverMemory},
		Refresh:     RefreshConfig{SkewSeconds: 60},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if err := validateAbsoluteURL("api.base_url", c.API.BaseURL); err != nil {
		return err
	}
	if origin := strings.TrimSpace(c.AppOrigin); origin != "" {
		if err := validateAbsoluteURL("app_origin", origin); err != nil {
			return err
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", StorageDriverMemory:
	case StorageDriverSQLite, StorageDriverPostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("core: storage.dsn is required for driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("core: unsupported storage.driver %q", c.Storage.Driver)
	}
	if c.Refresh.SkewSeconds < 0 {
		return fmt.Errorf("core: refresh.skew_seconds must not be negative")
	}
	return nil
}

// AppleRedirect returns the configured redirect URI, defaulting to the app
// origin.
func (c Config) AppleRedirect() string {
	if redirect := strings.TrimSpace(c.Apple.RedirectURI); redirect != "" {
		return redirect
	}
	return strings.TrimSpace(c.AppOrigin)
}

func validateAbsoluteURL(field string, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("core: %s is required", field)
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: %s must be an absolute url", field)
	}
	return nil
}
