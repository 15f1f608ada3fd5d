package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/shopadmin/internal/catalog"
	"github.com/me/shopadmin/internal/gateway"
	"github.com/me/shopadmin/internal/session"
)

func newLoginCmd(a *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the API token",
		Long:  "Exchange a username and password for a bearer token and persist it in the configured session storage.",
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if username == "" {
				if username, err = prompt(cmd.OutOrStdout(), in, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt(cmd.OutOrStdout(), in, "Password: "); err != nil {
					return err
				}
			}
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}

			token, err := catalog.Login(cmd.Context(), a.gw, username, password)
			if err != nil {
				if gateway.StatusCode(err) != 0 {
					return fmt.Errorf("login failed: %w", err)
				}
				return fmt.Errorf("login failed: %s", gateway.UserMessage(err))
			}
			if err := sess.SetToken(cmd.Context(), token); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted if omitted)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted if omitted)")
	return cmd
}

func prompt(w io.Writer, r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := sess.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user of the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			claims, err := sess.Claims()
			if errors.Is(err, session.ErrNoToken) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			if err != nil {
				// Opaque tokens carry no claims.
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in (token has no readable claims)")
				return nil
			}

			out := cmd.OutOrStdout()
			name := claims.Username
			if name == "" {
				name = claims.Subject
			}
			fmt.Fprintf(out, "User:    %s\n", name)
			switch {
			case claims.ExpiresAt.IsZero():
				fmt.Fprintln(out, "Expires: never")
			case claims.IsExpired():
				fmt.Fprintf(out, "Expires: expired %s\n", humanize.Time(claims.ExpiresAt))
			default:
				fmt.Fprintf(out, "Expires: %s (%s)\n", humanize.Time(claims.ExpiresAt), claims.ExpiresAt.Format(time.RFC3339))
			}
			return nil
		},
	}
}
