package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/me/shopadmin/internal/server"
	"github.com/me/shopadmin/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	var addr, dbPath string
	var secure bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web admin panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dbPath != "" {
				cfg.Server.DBPath = dbPath
			}
			if cmd.Flags().Changed("secure") {
				cfg.Server.Secure = secure
			}

			if err := os.MkdirAll(filepath.Dir(cfg.Server.DBPath), 0o700); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}
			st, err := store.NewSQLiteStore(cfg.Server.DBPath, a.logger)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			a.closers = append(a.closers, st.Close)
			if err := st.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			a.logger.Info("database ready", "path", cfg.Server.DBPath)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(cfg, st, a.gw, a.logger).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Session database path (overrides server.db_path)")
	cmd.Flags().BoolVar(&secure, "secure", false, "Mark session cookies Secure (serve behind HTTPS)")
	return cmd
}
