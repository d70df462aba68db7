package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/hearth/internal/client"
	"github.com/fyrsmithlabs/hearth/internal/home"
)

func (a *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show lights, mode and climate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}
			st, err := c.Status(cmd.Context())
			if err != nil {
				return a.check(cmd, c, err)
			}
			printStatus(out(cmd), st)
			return nil
		},
	}
}

func printStatus(w io.Writer, st *home.Status) {
	lights := "off"
	if st.Lights {
		lights = "on"
	}
	fmt.Fprintf(w, "Hello, %s\n", st.Family)
	fmt.Fprintf(w, "  Lights:      %s\n", lights)
	fmt.Fprintf(w, "  Mode:        %s\n", st.Mode)
	fmt.Fprintf(w, "  Temperature: %.1f°C\n", st.Temperature)
	fmt.Fprintf(w, "  Humidity:    %.0f%%\n", st.Humidity)
}

func (a *cli) toggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle [device]",
		Short: "Flip a device (default: lights)",
		Long: `Flip a device on or off. Only "lights" exists today; other device
names are accepted and change nothing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device := home.DeviceLights
			if len(args) == 1 {
				device = args[0]
			}
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}
			lights, err := c.Toggle(cmd.Context(), device)
			if err != nil {
				return a.check(cmd, c, err)
			}
			state := "off"
			if lights {
				state = "on"
			}
			fmt.Fprintf(out(cmd), "Lights are %s.\n", state)
			return nil
		},
	}
}

func (a *cli) modeCmd() *cobra.Command {
	names := make([]string, 0, len(home.Modes))
	for _, m := range home.Modes {
		names = append(names, string(m))
	}
	return &cobra.Command{
		Use:       "mode <" + strings.Join(names, "|") + ">",
		Short:     "Switch the home scene",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, ok := home.ParseMode(args[0])
			if !ok {
				return fmt.Errorf("unknown mode %q (choose %s)", args[0], strings.Join(names, ", "))
			}
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}
			got, err := c.SetMode(cmd.Context(), mode)
			if err != nil {
				return a.check(cmd, c, err)
			}
			fmt.Fprintf(out(cmd), "Mode set to %s.\n", got)
			return nil
		},
	}
}

func (a *cli) climateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "climate <temperature> <humidity>",
		Short: "Report a temperature (°C) and humidity (%) reading",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			temp, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid temperature %q: %w", args[0], err)
			}
			humidity, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid humidity %q: %w", args[1], err)
			}
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}
			st, err := c.ReportClimate(cmd.Context(), temp, humidity)
			if err != nil {
				return a.check(cmd, c, err)
			}
			printStatus(out(cmd), st)
			return nil
		},
	}
}

func (a *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check hearth server health",
		Long: `Check the health status of the hearth server.

Examples:
  # Check health
  hearth health

  # Check health on a different server
  hearth health --server http://hearth.lan:8000/api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := client.New(a.serverURL, client.WithLogger(a.logger))
			h, err := c.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Server Status: %s\n", h.Status)
			if h.Version != "" {
				fmt.Fprintf(out(cmd), "Version:       %s\n", h.Version)
			}
			if h.Store != "" {
				fmt.Fprintf(out(cmd), "Store:         %s\n", h.Store)
			}
			return nil
		},
	}
}
