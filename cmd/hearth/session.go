package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/hearth/internal/session"
)

func (a *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <family name>",
		Short: "Act as a family",
		Long: `Store the family name used for every request.

There is no password: the family name is the only key, and names are
case-sensitive ("Okafor" and "okafor" are different homes).`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			server := ""
			if cmd.Flags().Changed("server") {
				server = a.serverURL
			}
			sess, err := a.sessions.Login(strings.Join(args, " "), server)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Welcome home, %s.\n", sess.Family)
			return nil
		},
	}
}

func (a *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the current family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.sessions.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), "Logged out.")
			return nil
		},
	}
}

func (a *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current family",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.sessions.Load()
			if errors.Is(err, session.ErrNotLoggedIn) {
				return errNotLoggedIn
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), sess.Family)
			return nil
		},
	}
}
