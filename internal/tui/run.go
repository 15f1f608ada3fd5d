package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/me/shopadmin/internal/catalog"
	"github.com/me/shopadmin/internal/gateway"
	"github.com/me/shopadmin/internal/listview"
	"github.com/me/shopadmin/internal/logging"
	"github.com/me/shopadmin/internal/querystate"
)

// ErrSessionExpired is returned by Run when the API rejected the stored
// token. The token has been cleared by then.
var ErrSessionExpired = errors.New("session expired")

// Options configures Run.
type Options struct {
	Gateway  *gateway.Client
	Session  catalog.Session
	Loading  *gateway.Loading // optional, drives the spinner
	Query    string           // initial location
	PageSize int
	Debounce time.Duration
	Logger   *slog.Logger
	In       io.Reader
	Out      io.Writer
}

// initialLocation normalizes the starting query. Paging restarts from the
// first row, and a non-default page size is made explicit.
func initialLocation(raw string, pageSize int) string {
	patch := querystate.Patch{querystate.KeySkip: nil}
	s := querystate.Parse(raw)
	if !s.Has(querystate.KeyTake) && pageSize > 0 && pageSize != querystate.DefaultTake {
		patch[querystate.KeyTake] = pageSize
	}
	return s.Apply(patch).Encode()
}

// Run starts the browser and blocks until the user quits or ctx ends.
func Run(ctx context.Context, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := logging.OrDiscard(opts.Logger).With("component", "tui")
	events := make(chan tea.Msg, 32)

	client := catalog.New(opts.Gateway, opts.Session, func() {
		post(ctx, events, expiredMsg{})
	}, logger)

	hist := querystate.NewHistory(initialLocation(opts.Query, opts.PageSize))
	qs := querystate.NewSynchronizer(hist)
	ctrl := listview.New(client, qs, logger)
	defer ctrl.Close()

	unsubscribe := ctrl.Subscribe(func(v listview.View) {
		select {
		case events <- viewMsg{view: v}:
		default:
			// Dropped views are refreshed by the load's own loadedMsg.
		}
	})
	defer unsubscribe()

	m := newModel(ctx, deps{
		ctrl:       ctrl,
		hist:       hist,
		qs:         qs,
		categories: client.Categories,
		loading:    opts.Loading,
		debounce:   opts.Debounce,
		events:     events,
	})
	defer m.stop()

	progOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if opts.In != nil {
		progOpts = append(progOpts, tea.WithInput(opts.In))
	}
	if opts.Out != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Out))
	}

	logger.Debug("browser starting", "location", hist.Location())
	final, err := tea.NewProgram(m, progOpts...).Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("terminal UI: %w", err)
	}
	if fm, ok := final.(Model); ok && fm.expired {
		return ErrSessionExpired
	}
	logger.Debug("browser closed", "location", hist.Location())
	return nil
}
