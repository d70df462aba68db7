// Package main implements the hearth CLI for a family's smart-home dashboard.
//
// The CLI acts for one family at a time. `hearth login <family name>` stores
// the name in ~/.config/hearth/session.toml and every other command sends it
// to the server as X-Family-Name.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/hearth/internal/client"
	"github.com/fyrsmithlabs/hearth/internal/logging"
	"github.com/fyrsmithlabs/hearth/internal/session"
)

// version information (set via ldflags during build)
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// cli holds state shared by every command.
type cli struct {
	serverURL   string
	sessionFile string
	verbose     int

	logger   *logging.Logger
	sessions *session.Store
}

func newRootCmd() *cobra.Command {
	app := &cli{}

	root := &cobra.Command{
		Use:   "hearth",
		Short: "Control your family's home from the terminal",
		Long: `hearth is a command-line client for the hearth household dashboard.
It toggles the lights, switches scenes, tracks the pantry and pins notes to
the family board.

Examples:
  # Log in as a family (no password, the name is the key)
  hearth login "The Okafors"

  # See the home at a glance
  hearth status

  # Open the live dashboard
  hearth dashboard`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: app.setup,
	}

	root.PersistentFlags().StringVar(&app.serverURL, "server", client.BaseURLFromEnv(), "hearth API URL (env HEARTH_API_URL)")
	root.PersistentFlags().CountVarP(&app.verbose, "verbose", "v", "log requests to stderr (-vv adds request and response bodies)")
	root.PersistentFlags().StringVar(&app.sessionFile, "session-file", "", "session file (default ~/.config/hearth/session.toml)")
	_ = root.PersistentFlags().MarkHidden("session-file")

	root.AddCommand(
		app.loginCmd(),
		app.logoutCmd(),
		app.whoamiCmd(),
		app.statusCmd(),
		app.toggleCmd(),
		app.modeCmd(),
		app.climateCmd(),
		app.itemsCmd(),
		app.notesCmd(),
		app.dashboardCmd(),
		app.healthCmd(),
	)
	return root
}

// setup builds the logger and session store before any command runs.
func (a *cli) setup(cmd *cobra.Command, _ []string) error {
	level := zapcore.WarnLevel
	switch {
	case a.verbose > 1:
		level = logging.TraceLevel
	case a.verbose == 1:
		level = zapcore.DebugLevel
	}
	logger, err := logging.NewLogger(logging.NewCLIConfig(level), nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger

	if a.sessionFile != "" {
		a.sessions = session.NewStore(a.sessionFile)
		return nil
	}
	a.sessions, err = session.DefaultStore()
	return err
}

// errNotLoggedIn is returned by commands that need a family.
var errNotLoggedIn = errors.New(`not logged in; run "hearth login <family name>" first`)

// newClient returns a client for family. A server stored at login is used
// unless --server was given explicitly.
func (a *cli) newClient(cmd *cobra.Command, family, storedServer string) *client.Client {
	base := a.serverURL
	if !cmd.Flags().Changed("server") && strings.TrimSpace(storedServer) != "" {
		base = storedServer
	}
	return client.New(base,
		client.WithFamily(family),
		client.WithLogger(a.logger),
		client.WithUserAgent("hearth-cli/"+version),
	)
}

// familyClient loads the session and returns a client acting for it.
func (a *cli) familyClient(cmd *cobra.Command) (*client.Client, error) {
	sess, err := a.sessions.Load()
	if err != nil {
		if errors.Is(err, session.ErrNotLoggedIn) {
			return nil, errNotLoggedIn
		}
		return nil, err
	}
	return a.newClient(cmd, sess.Family, sess.Server), nil
}

// check turns a family rejection into a logout, mirroring what the
// dashboard does on a rejected poll. A 400 for bad input keeps the session.
func (a *cli) check(cmd *cobra.Command, c *client.Client, err error) error {
	if err == nil || !client.IsFamilyRejected(err) || client.IsBadInput(err) {
		return err
	}
	if lerr := a.sessions.Logout(); lerr != nil {
		return fmt.Errorf("%w (logout failed: %v)", err, lerr)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "The server rejected %q. You have been logged out.\n", c.Family())
	return err
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }
