package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/shopadmin/internal/catalog"
	"github.com/me/shopadmin/internal/config"
	"github.com/me/shopadmin/internal/gateway"
	"github.com/me/shopadmin/internal/logging"
	"github.com/me/shopadmin/internal/session"
	"github.com/me/shopadmin/internal/store"
)

// errSessionExpired replaces a 401 from an authenticated call. The stored
// token has already been cleared when it is returned.
var errSessionExpired = errors.New("session expired, run `shopadmin login`")

var errNotLoggedIn = errors.New("not logged in, run `shopadmin login`")

// app is the state shared by every command of one invocation.
type app struct {
	configPath string
	apiURL     string
	debug      bool
	logLevel   string
	logFormat  string

	cfg     config.Config
	logger  *slog.Logger
	gw      *gateway.Client
	loading *gateway.Loading

	sess    *session.Store
	closers []func() error
}

// NewRootCmd creates the root cobra command for the shopadmin CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "shopadmin",
		Short: "shopadmin: product catalog admin client",
		Long:  "shopadmin manages products of a DummyJSON-compatible catalog API from the command line, a terminal browser or a web panel.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default ~/.shopadmin/config.yaml, or SHOPADMIN_CONFIG)")
	pf.StringVar(&a.apiURL, "api", "", "Products API base URL (overrides api.base_url)")
	pf.BoolVar(&a.debug, "debug", false, "Enable debug logging")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "", "Log format (text, json)")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProductsCmd(a),
		newCategoriesCmd(a),
		newBrowseCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)

	return root
}

// setup loads configuration and builds the logger and gateway. Session
// storage is opened on demand by commands that need it.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.API.BaseURL = a.apiURL
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if a.debug {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg

	a.logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, cmd.ErrOrStderr())
	a.loading = &gateway.Loading{}
	a.gw = gateway.New(gateway.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}, a.logger,
		gateway.WithLoading(a.loading))
	return nil
}

// session opens the token store selected by session.storage.
func (a *app) session(ctx context.Context) (*session.Store, error) {
	if a.sess != nil {
		return a.sess, nil
	}

	var storage session.Storage
	switch a.cfg.Session.Storage {
	case config.StorageMemory:
		storage = session.NewMemoryStorage()
	case config.StorageSQLite:
		st, err := store.NewSQLiteStore(a.cfg.Server.DBPath, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st.Close)
		if err := st.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		storage = st
	default:
		storage = session.NewFileStorage(a.cfg.Session.Path)
	}

	sess, err := session.Open(ctx, storage, a.logger)
	if err != nil {
		return nil, err
	}
	a.sess = sess
	return sess, nil
}

// catalog returns a client bound to the stored session. It fails early when
// no one is logged in.
func (a *app) catalog(ctx context.Context) (*catalog.Client, error) {
	sess, err := a.session(ctx)
	if err != nil {
		return nil, err
	}
	if !sess.IsAuthenticated() {
		return nil, errNotLoggedIn
	}
	return catalog.New(a.gw, sess, nil, a.logger), nil
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// apiError maps an API failure onto the message printed for action.
func apiError(action string, err error) error {
	switch {
	case err == nil:
		return nil
	case gateway.IsUnauthorized(err):
		return errSessionExpired
	case gateway.StatusCode(err) != 0:
		return fmt.Errorf("%s: %w (HTTP %d)", action, err, gateway.StatusCode(err))
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}
