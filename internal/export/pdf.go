// Package export renders household data into printable documents.
package export

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/fyrsmithlabs/hearth/internal/home"
)

// AllItems passed as the threshold lists the whole inventory.
const AllItems = -1.0

// ShoppingListPDF writes a shopping list for family to w. Items at or below
// threshold are listed, grouped by location; a negative threshold lists every
// item.
func ShoppingListPDF(w io.Writer, family string, items []home.Item, threshold float64) error {
	if w == nil {
		return errors.New("export: nil writer")
	}
	pdf := shoppingList(family, items, threshold, time.Now())
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("export: write pdf: %w", err)
	}
	return nil
}

func shoppingList(family string, items []home.Item, threshold float64, at time.Time) *gofpdf.Fpdf {
	selected := items
	if threshold >= 0 {
		selected = home.LowStock(items, threshold)
	}
	sorted := make([]home.Item, len(selected))
	copy(sorted, selected)
	home.SortItems(sorted)

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(family+" shopping list"), false)
	pdf.SetCreator("hearth", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(family+"'s Shopping List"))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(110, 110, 110)
	subtitle := "Everything in the inventory"
	if threshold >= 0 {
		subtitle = "Items with " + strconv.FormatFloat(threshold, 'f', -1, 64) + " or fewer left"
	}
	pdf.Cell(0, 6, tr(subtitle+" - "+at.Format("Mon 2 Jan 2006 15:04")))
	pdf.Ln(10)
	pdf.SetTextColor(0, 0, 0)

	if len(sorted) == 0 {
		pdf.SetFont("Arial", "I", 11)
		pdf.Cell(0, 8, "Nothing to buy.")
		return pdf
	}

	locations, groups := home.GroupByLocation(sorted)
	for _, loc := range locations {
		pdf.SetFont("Arial", "B", 12)
		pdf.SetFillColor(230, 240, 250)
		pdf.CellFormat(0, 8, tr(loc), "", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 11)
		for _, it := range groups[loc] {
			pdf.CellFormat(8, 7, "[ ]", "", 0, "L", false, 0, "")
			pdf.CellFormat(90, 7, tr(it.Name), "", 0, "L", false, 0, "")
			qty := strconv.FormatFloat(it.Quantity, 'f', -1, 64) + " " + it.Unit
			pdf.CellFormat(40, 7, tr(qty+" left"), "", 0, "R", false, 0, "")
			pdf.CellFormat(0, 7, tr(it.Category), "", 1, "R", false, 0, "")
		}
		pdf.Ln(3)
	}
	return pdf
}
