package cli

import (
	"errors"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/me/shopadmin/internal/config"
	"github.com/me/shopadmin/internal/logging"
	"github.com/me/shopadmin/internal/tui"
)

func newBrowseCmd(a *app) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse products in an interactive terminal UI",
		Long: `Browse products interactively. The location line at the top shows the
current view as a query string; pass it back with --query to reopen the same view.

Logs would corrupt the screen, so they are discarded unless --debug is set,
in which case they go to ~/.shopadmin/browse.log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := a.browseLogger()
			if err != nil {
				return err
			}
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if !sess.IsAuthenticated() {
				return errNotLoggedIn
			}
			err = tui.Run(cmd.Context(), tui.Options{
				Gateway:  a.gw,
				Session:  sess,
				Loading:  a.loading,
				Query:    query,
				PageSize: a.cfg.UI.PageSize,
				Debounce: a.cfg.UI.Debounce,
				Logger:   logger,
				In:       cmd.InOrStdin(),
				Out:      cmd.OutOrStdout(),
			})
			if errors.Is(err, tui.ErrSessionExpired) {
				return errSessionExpired
			}
			return err
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Initial view state, as printed on the location line")
	return cmd
}

// browseLogger returns a file logger when debugging and a discarding one
// otherwise.
func (a *app) browseLogger() (*slog.Logger, error) {
	if !a.debug {
		return logging.Discard(), nil
	}
	logger, f, err := logging.OpenFile(filepath.Join(config.Dir(), "browse.log"), slog.LevelDebug, a.cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, f.Close)
	return logger, nil
}
