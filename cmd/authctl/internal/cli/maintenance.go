package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-auth-session/providers/loopback"
)

func (a *app) newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "migrate",
		Short:       "Apply storage migrations",
		Annotations: map[string]string{"setup": "skip"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd.Context())
			if err != nil {
				return a.fail(err)
			}
			storage, err := openStorage(cmd.Context(), cfg.Storage, a.flags.namespace, true, a.flags.verbose)
			if err != nil {
				return a.fail(err)
			}
			a.storage = storage
			if storage.client == nil {
				a.printer.Info("memory storage needs no migrations")
				return nil
			}
			a.printer.Success("migrations applied for %s", cfg.Storage.Driver)
			return nil
		},
	}
}

func (a *app) newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "config",
		Short:       "Print the resolved configuration",
		Annotations: map[string]string{"setup": "skip"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig(cmd.Context())
			if err != nil {
				return a.fail(err)
			}
			if a.flags.jsonOut {
				return a.printer.JSON(cfg)
			}
			a.printer.Field("api url", cfg.API.BaseURL)
			a.printer.Field("app origin", cfg.AppOrigin)
			a.printer.Field("locale", cfg.Locale)
			a.printer.Field("storage", cfg.Storage.Driver)
			a.printer.Field("google", configured(cfg.Google.ClientID))
			a.printer.Field("apple", configured(cfg.Apple.ClientID))
			a.printer.Field("apple redirect", cfg.AppleRedirect())
			a.printer.Field("refresh skew", strconv.Itoa(cfg.Refresh.SkewSeconds)+"s")
			return nil
		},
	}
}

func configured(clientID string) string {
	if clientID == "" {
		return "not configured"
	}
	return "configured"
}

func loopbackAddress(origin string) (string, error) {
	addr, err := loopback.ListenAddress(origin)
	if err != nil {
		return "", fmt.Errorf("authctl: app origin: %w", err)
	}
	return addr, nil
}
