package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/hearth/internal/client"
	"github.com/fyrsmithlabs/hearth/internal/export"
	"github.com/fyrsmithlabs/hearth/internal/home"
)

func (a *cli) itemsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "items",
		Aliases: []string{"item", "inventory"},
		Short:   "Manage the family inventory",
	}
	cmd.AddCommand(
		a.itemsListCmd(),
		a.itemsAddCmd(),
		a.itemsQtyCmd(),
		a.itemsStepCmd("inc", 1),
		a.itemsStepCmd("dec", -1),
		a.itemsRmCmd(),
		a.itemsExportCmd(),
	)
	return cmd
}

func (a *cli) itemsListCmd() *cobra.Command {
	var (
		search    string
		low       bool
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items, optionally filtered",
		Long: `List the inventory.

Examples:
  # Everything in the fridge (matches name or location)
  hearth items list --search fridge

  # What is running out
  hearth items list --low`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}
			var items []home.Item
			if low {
				if !cmd.Flags().Changed("threshold") {
					threshold = -1
				}
				items, err = c.LowStock(cmd.Context(), threshold)
				items = home.Filter(items, search)
			} else {
				items, err = c.Items(cmd.Context(), search)
			}
			if err != nil {
				return a.check(cmd, c, err)
			}
			printItems(out(cmd), items)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by name or location")
	cmd.Flags().BoolVar(&low, "low", false, "only items running low")
	cmd.Flags().Float64Var(&threshold, "threshold", home.DefaultLowStockThreshold, "low stock threshold (with --low)")
	return cmd
}

var lowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

func printItems(w io.Writer, items []home.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items found.")
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ID", "NAME", "QTY", "LOCATION", "CATEGORY")
	for _, it := range items {
		qty := formatQty(it.Quantity) + " " + it.Unit
		if it.Quantity <= home.DefaultLowStockThreshold {
			qty = lowStyle.Render(qty)
		}
		t.Row(it.ID, it.Name, qty, it.Location, it.Category)
	}
	fmt.Fprintln(w, t.String())
	fmt.Fprintf(w, "%d items\n", len(items))
}

func (a *cli) itemsAddCmd() *cobra.Command {
	var (
		qty      float64
		unit     string
		location string
		category string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}
			in := home.ItemInput{
				Name:     strings.Join(args, " "),
				Unit:     unit,
				Location: location,
				Category: category,
			}
			if cmd.Flags().Changed("qty") {
				in.Quantity = &qty
			}
			item, err := c.AddItem(cmd.Context(), in)
			if err != nil {
				return a.check(cmd, c, err)
			}
			fmt.Fprintf(out(cmd), "Added %s (%s %s) [%s]\n", item.Name, formatQty(item.Quantity), item.Unit, item.ID)
			return nil
		},
	}
	cmd.Flags().Float64VarP(&qty, "qty", "q", home.DefaultQuantity, "quantity")
	cmd.Flags().StringVarP(&unit, "unit", "u", "", "unit (default pcs)")
	cmd.Flags().StringVarP(&location, "location", "l", "", "where it is kept")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category (default Grocery)")
	return cmd
}

func (a *cli) itemsQtyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qty <id> <quantity>",
		Short: "Set an item's quantity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[1], err)
			}
			if qty < 0 {
				return fmt.Errorf("quantity cannot be negative")
			}
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}
			return a.setQuantity(cmd, c, args[0], qty)
		},
	}
}

// itemsStepCmd builds inc and dec. A decrement that would go below zero is refused.
func (a *cli) itemsStepCmd(name string, sign float64) *cobra.Command {
	var by float64
	short := "Add to an item's quantity"
	if sign < 0 {
		short = "Take from an item's quantity"
	}
	cmd := &cobra.Command{
		Use:   name + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if by <= 0 {
				return fmt.Errorf("--by must be positive")
			}
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}
			items, err := c.Items(cmd.Context(), "")
			if err != nil {
				return a.check(cmd, c, err)
			}
			item, ok := findItem(items, args[0])
			if !ok {
				return fmt.Errorf("item %s not found", args[0])
			}
			qty := item.Quantity + sign*by
			if qty < 0 {
				return fmt.Errorf("%s only has %s %s left", item.Name, formatQty(item.Quantity), item.Unit)
			}
			return a.setQuantity(cmd, c, item.ID, qty)
		},
	}
	cmd.Flags().Float64Var(&by, "by", 1, "amount to change by")
	return cmd
}

func (a *cli) setQuantity(cmd *cobra.Command, c *client.Client, id string, qty float64) error {
	item, err := c.UpdateQuantity(cmd.Context(), id, qty)
	if err != nil {
		return a.check(cmd, c, err)
	}
	fmt.Fprintf(out(cmd), "%s: %s %s\n", item.Name, formatQty(item.Quantity), item.Unit)
	return nil
}

func (a *cli) itemsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}
			if err := c.DeleteItem(cmd.Context(), args[0]); err != nil {
				return a.check(cmd, c, err)
			}
			fmt.Fprintln(out(cmd), "Item deleted.")
			return nil
		},
	}
}

func (a *cli) itemsExportCmd() *cobra.Command {
	var (
		all       bool
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "export <file.pdf>",
		Short: "Write a printable shopping list",
		Long: `Write the low-stock items, grouped by location, to a PDF.

Examples:
  hearth items export shopping.pdf
  hearth items export pantry.pdf --all`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.familyClient(cmd)
			if err != nil {
				return err
			}
			items, err := c.Items(cmd.Context(), "")
			if err != nil {
				return a.check(cmd, c, err)
			}
			if all {
				threshold = export.AllItems
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create %s: %w", args[0], err)
			}
			if err := export.ShoppingListPDF(f, c.Family(), items, threshold); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close %s: %w", args[0], err)
			}
			fmt.Fprintf(out(cmd), "Shopping list written to %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list the whole inventory")
	cmd.Flags().Float64Var(&threshold, "threshold", home.DefaultLowStockThreshold, "include items at or below this quantity")
	return cmd
}

func findItem(items []home.Item, id string) (home.Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return home.Item{}, false
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
