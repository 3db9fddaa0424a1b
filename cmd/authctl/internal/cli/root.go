// Package cli implements the authctl commands. Every command runs through
// the same facade the library exposes to hosts.
package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	authsession "github.com/goliatone/go-auth-session"
	"github.com/goliatone/go-auth-session/core"
	"github.com/goliatone/go-auth-session/providers/loopback"
	"github.com/goliatone/go-auth-session/transport"
)

// Options carries what tests and embedding hosts override.
type Options struct {
	Out        io.Writer
	Err        io.Writer
	Runtime    core.Config
	HTTPClient transport.HTTPDoer
	// Open presents a provider URL to the user. The default prints it.
	Open func(url string) error
}

type rootFlags struct {
	apiURL    string
	locale    string
	driver    string
	dsn       string
	namespace string
	migrate   bool
	jsonOut   bool
	noColor   bool
	verbose   bool
}

type app struct {
	opts     Options
	flags    rootFlags
	printer  *printer
	facade   *authsession.Facade
	storage  openedStorage
	receiver *loopback.Receiver
}

func NewRootCommand(opts Options) *cobra.Command {
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "authctl",
		Short: "Drive an auth session against an authentication API",
		Long: `authctl signs in against an authentication API and keeps the resulting
session in local storage.

Configuration comes from AUTH_* environment variables; flags override them.

Examples:
  authctl login --email ada@example.com --password secret
  authctl status
  authctl signin google
  authctl --storage-driver sqlite --storage-dsn file:auth.db migrate`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.printer = newPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), !a.flags.noColor)
			if skipsSetup(cmd) {
				return nil
			}
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}
	if opts.Out != nil {
		root.SetOut(opts.Out)
	}
	if opts.Err != nil {
		root.SetErr(opts.Err)
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.flags.apiURL, "api-url", "", "authentication API base url (AUTH_API_URL)")
	flags.StringVar(&a.flags.locale, "locale", "", "locale for messages (AUTH_LOCALE)")
	flags.StringVar(&a.flags.driver, "storage-driver", "", "memory, sqlite or postgres (AUTH_STORAGE_DRIVER)")
	flags.StringVar(&a.flags.dsn, "storage-dsn", "", "storage connection string (AUTH_STORAGE_DSN)")
	flags.StringVar(&a.flags.namespace, "profile", "default", "storage namespace holding the session")
	flags.BoolVar(&a.flags.migrate, "migrate", false, "apply storage migrations before running")
	flags.BoolVar(&a.flags.jsonOut, "json", false, "print results as json")
	flags.BoolVar(&a.flags.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log library activity to stderr")

	root.AddCommand(
		a.newRegisterCommand(),
		a.newLoginCommand(),
		a.newSignInCommand(),
		a.newRefreshCommand(),
		a.newLogoutCommand(),
		a.newClearCommand(),
		a.newStatusCommand(),
		a.newProfileCommand(),
		a.newCheckEmailCommand(),
		a.newPasswordCommand(),
		a.newWatchCommand(),
		a.newMigrateCommand(),
		a.newConfigCommand(),
	)
	return root
}

func skipsSetup(cmd *cobra.Command) bool {
	return cmd.Annotations["setup"] == "skip"
}

func (a *app) runtimeConfig() core.Config {
	runtime := a.opts.Runtime
	if v := strings.TrimSpace(a.flags.apiURL); v != "" {
		runtime.API.BaseURL = v
	}
	if v := strings.TrimSpace(a.flags.locale); v != "" {
		runtime.Locale = v
	}
	if v := strings.TrimSpace(a.flags.driver); v != "" {
		runtime.Storage.Driver = v
	}
	if v := strings.TrimSpace(a.flags.dsn); v != "" {
		runtime.Storage.DSN = v
	}
	return runtime
}

func (a *app) loadConfig(ctx context.Context) (core.Config, error) {
	return authsession.LoadConfig(ctx, a.runtimeConfig())
}

func (a *app) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	storage, err := openStorage(ctx, cfg.Storage, a.flags.namespace, a.flags.migrate, a.flags.verbose)
	if err != nil {
		return err
	}
	a.storage = storage

	logger := cliLogger{printer: a.printer, verbose: a.flags.verbose}
	a.receiver = loopback.New()
	open := a.opts.Open
	if open == nil {
		open = func(url string) error {
			a.printer.Info("Open %s in your browser to continue.", url)
			return nil
		}
	}
	googleAdapter, appleAdapter := authsession.LoopbackProviders(cfg, a.receiver, open, logger)

	facadeOpts := []authsession.FacadeOption{
		authsession.WithStorage(storage.storage),
		authsession.WithFacadeLogger(nil, logger),
		authsession.WithProviderAdapter(googleAdapter),
		authsession.WithProviderAdapter(appleAdapter),
	}
	if a.opts.HTTPClient != nil {
		facadeOpts = append(facadeOpts, authsession.WithHTTPClient(a.opts.HTTPClient))
	}
	facade, err := authsession.NewFacade(cfg, facadeOpts...)
	if err != nil {
		_ = storage.Close()
		return err
	}
	if err := facade.Start(ctx); err != nil {
		_ = storage.Close()
		return a.fail(err)
	}
	a.facade = facade
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	if a.receiver != nil {
		errs = append(errs, a.receiver.Close(ctx))
	}
	errs = append(errs, a.storage.Close())
	return errors.Join(errs...)
}

// fail prints err in the configured locale and returns it so the exit
// status reflects the failure.
func (a *app) fail(err error) error {
	if err == nil {
		return nil
	}
	message := err.Error()
	if a.facade != nil {
		message = a.facade.Translate(err)
	}
	a.printer.Error("%s", message)
	if a.facade != nil {
		for field, text := range a.facade.FieldErrors(err) {
			a.printer.Field(field, text)
		}
	}
	return err
}

func (a *app) message(key string, args ...any) string {
	if a.facade == nil || a.facade.Catalog() == nil {
		return key
	}
	return a.facade.Catalog().Localizer(a.facade.Config().Locale).Format(key, args...)
}
