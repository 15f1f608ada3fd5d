// Command server runs the shopadmin web panel on its own, for deployments
// that do not ship the full CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/me/shopadmin/internal/config"
	"github.com/me/shopadmin/internal/gateway"
	"github.com/me/shopadmin/internal/logging"
	"github.com/me/shopadmin/internal/server"
	"github.com/me/shopadmin/internal/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "shopadmin-server:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("shopadmin-server", pflag.ContinueOnError)
	configFile := fs.String("config", "", "config file (default ~/.shopadmin/config.yaml)")
	addr := fs.String("addr", "", "listen address")
	dbPath := fs.String("db", "", "session database")
	apiURL := fs.String("api", "", "products API base URL")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	logFormat := fs.String("log-format", "", "text or json")
	secure := fs.Bool("secure", false, "HTTPS-only session cookies")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	for dst, v := range map[*string]string{
		&cfg.Server.Addr:   *addr,
		&cfg.Server.DBPath: *dbPath,
		&cfg.API.BaseURL:   *apiURL,
		&cfg.Log.Level:     *logLevel,
		&cfg.Log.Format:    *logFormat,
	} {
		if v != "" {
			*dst = v
		}
	}
	cfg.Server.Secure = cfg.Server.Secure || *secure

	logger := logging.NewLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format)

	if err := os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0o700); err != nil {
		return err
	}
	st, err := store.NewSQLiteStore(cfg.Server.DBPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate %s: %w", cfg.Server.DBPath, err)
	}

	gw := gateway.New(gateway.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}, logger)
	logger.Info("panel starting", "db", cfg.Server.DBPath, "api", gw.BaseURL())
	return server.New(cfg, st, gw, logger).Run(ctx)
}
