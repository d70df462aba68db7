package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hearth/internal/dashboard"
	"github.com/fyrsmithlabs/hearth/internal/logging"
)

func (a *cli) dashboardCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"ui"},
		Short:   "Open the live home dashboard",
		Long: `Open a full-screen dashboard that polls the home every interval.

Keys:
  tab       switch between Control and Items
  l / m     toggle lights / cycle mode (Home, Away, Night)
  n         pin a note (enter to send, esc to cancel)
  ↑ / ↓     select a note or item
  + / -     change the selected item's quantity
  /         search items by name or location
  d         delete the selected note or item
  r / q     refresh / quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}

			// Log lines would tear the full-screen view.
			logger := logging.Nop()
			if a.verbose > 0 {
				logger = a.logger
			}

			cfg := dashboard.Config{
				Interval: interval,
				Logger:   logger,
				Logout:   a.sessions.Logout,
			}
			watcher, err := a.sessions.Watch(cmd.Context())
			if err != nil {
				a.logger.Warn(cmd.Context(), "session watch unavailable", zap.Error(err))
			} else {
				defer watcher.Stop()
				cfg.SessionChanges = watcher.Changes()
			}

			final, err := dashboard.Run(cmd.Context(), c, cfg)
			if err != nil {
				return fmt.Errorf("dashboard: %w", err)
			}
			if msg := final.ExitMessage(); msg != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), msg)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", dashboard.DefaultInterval, "poll interval")
	return cmd
}
