package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/hearth/internal/home"
)

func (a *cli) notesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notes",
		Aliases: []string{"note", "board"},
		Short:   "Read and pin notes on the family board",
	}
	cmd.AddCommand(a.notesListCmd(), a.notesAddCmd(), a.notesRmCmd())
	return cmd
}

func (a *cli) notesListCmd() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the family board, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}
			notes, err := c.Notes(cmd.Context())
			if err != nil {
				return a.check(cmd, c, err)
			}
			md := notesMarkdown(c.Family(), notes)
			if plain {
				fmt.Fprint(out(cmd), md)
				return nil
			}
			return renderMarkdown(out(cmd), md)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print raw markdown")
	return cmd
}

// notesMarkdown lays the board out as markdown. Note text is quoted so that
// stray markdown in a note cannot break the list.
func notesMarkdown(family string, notes []home.Note) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s's Family Board\n\n", family)
	if len(notes) == 0 {
		b.WriteString("_No notes yet._\n")
		return b.String()
	}
	for _, n := range notes {
		for _, line := range strings.Split(strings.TrimSpace(n.Content), "\n") {
			fmt.Fprintf(&b, "> %s\n", line)
		}
		fmt.Fprintf(&b, "\n`%s` · %s\n\n", n.ID, n.CreatedAt.Local().Format("Mon 2 Jan 15:04"))
	}
	return b.String()
}

func renderMarkdown(w io.Writer, md string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return fmt.Errorf("markdown renderer: %w", err)
	}
	rendered, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render notes: %w", err)
	}
	_, err = io.WriteString(w, rendered)
	return err
}

func (a *cli) notesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <text>",
		Short: "Pin a note",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.TrimSpace(strings.Join(args, " "))
			if content == "" {
				return fmt.Errorf("note is empty")
			}
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}
			note, err := c.AddNote(cmd.Context(), content)
			if err != nil {
				return a.check(cmd, c, err)
			}
			fmt.Fprintf(out(cmd), "Pinned [%s]\n", note.ID)
			return nil
		},
	}
}

func (a *cli) notesRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Remove a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}
			if err := c.DeleteNote(cmd.Context(), args[0]); err != nil {
				return a.check(cmd, c, err)
			}
			fmt.Fprintln(out(cmd), "Note removed.")
			return nil
		},
	}
}
