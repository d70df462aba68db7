package dashboard

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/hearth/internal/home"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
)

// Lipgloss styles
var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	chipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("210")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("45"))

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.snap == nil {
		if m.err != nil {
			return m.renderError()
		}
		return containerStyle.Render(dimStyle.Render(LoadingMessage(m.family)))
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	if m.view == viewItems {
		b.WriteString(m.renderItems())
	} else {
		b.WriteString(m.renderControl())
	}
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n" + m.renderFooter())
	return containerStyle.Render(b.String())
}

// LoadingMessage is shown until the first snapshot arrives.
func LoadingMessage(family string) string {
	return fmt.Sprintf("Connecting to %s's Home...", family)
}

func (m Model) renderError() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" hearth ") + "\n\n")
	b.WriteString(errorStyle.Render("⚠ Cannot reach your home") + "\n\n")
	b.WriteString(dimStyle.Render("Family: ") + valueStyle.Render(m.family) + "\n")
	b.WriteString(dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n\n")
	b.WriteString(footerStyle.Render("[q] quit  [r] retry"))
	return containerStyle.Render(b.String())
}

func (m Model) renderHeader() string {
	badge := healthyStyle.Render("● Online")
	if m.err != nil {
		badge = warningStyle.Render("● Stale")
	}
	tabs := m.renderTab("Control", m.view == viewControl) + " " + m.renderTab("Items", m.view == viewItems)
	updated := "Never"
	if !m.lastUpdate.IsZero() {
		updated = m.lastUpdate.Format("3:04:05 PM")
	}
	return headerStyle.Render(" Hello, "+m.family+" ") + "  " + badge + "   " +
		tabs + "   " + dimStyle.Render(updated) + "\n"
}

func (m Model) renderTab(name string, active bool) string {
	if active {
		return selectedStyle.Render(" " + name + " ")
	}
	return dimStyle.Render(" " + name + " ")
}

func (m Model) renderControl() string {
	st := m.snap.Status
	var b strings.Builder

	b.WriteString("\n" + sectionStyle.Render("┃ Climate") + "\n")
	b.WriteString(labelStyle.Render("  Temperature: ") +
		valueStyle.Render(FormatTemperature(st.Temperature)) +
		"   " + createSparkline(m.tempHistory) + "\n")
	b.WriteString(labelStyle.Render("  Humidity:    ") +
		valueStyle.Render(FormatHumidity(st.Humidity)) +
		"   " + createSparkline(m.humidityHistory) + "\n")
	b.WriteString(labelStyle.Render("  ") + m.humidityBar.ViewAs(humidityRatio(st.Humidity)) + "\n")

	b.WriteString("\n" + sectionStyle.Render("┃ Controls") + "\n")
	lights := dimStyle.Render("○ off")
	if st.Lights {
		lights = warningStyle.Render("● on")
	}
	b.WriteString(labelStyle.Render("  Lights: ") + lights +
		labelStyle.Render("   Mode: ") + valueStyle.Render(string(st.Mode)) + "\n")

	if len(m.snap.LowStock) > 0 {
		b.WriteString("\n" + sectionStyle.Render("┃ Low Stock") + "\n  ")
		chips := make([]string, 0, len(m.snap.LowStock))
		for _, it := range m.snap.LowStock {
			chips = append(chips, chipStyle.Render(fmt.Sprintf("%s (%s)", it.Name, FormatQuantity(it.Quantity))))
		}
		b.WriteString(strings.Join(chips, " ") + "\n")
	}

	b.WriteString("\n" + sectionStyle.Render("┃ Family Board") + "\n")
	if m.mode == inputNote {
		b.WriteString("  " + m.input.View() + "\n")
	}
	if len(m.snap.Notes) == 0 {
		b.WriteString(dimStyle.Render("  No notes yet.") + "\n")
	}
	for i, n := range m.snap.Notes {
		line := fmt.Sprintf("  %s  %s", n.Content, dimStyle.Render(FormatAge(n.CreatedAt, m.lastUpdate)))
		if i == m.noteCursor {
			line = selectedStyle.Render("›") + line[1:]
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) renderItems() string {
	items := m.visibleItems()
	var b strings.Builder

	title := fmt.Sprintf("┃ Family Inventory  %d items", len(items))
	b.WriteString("\n" + sectionStyle.Render(title) + "\n")
	switch {
	case m.mode == inputSearch:
		b.WriteString("  " + m.input.View() + "\n")
	case m.search != "":
		b.WriteString(dimStyle.Render("  search: ") + valueStyle.Render(m.search) + "\n")
	}

	if len(items) == 0 {
		b.WriteString(dimStyle.Render("  No items found.") + "\n")
		return b.String()
	}
	for i, it := range items {
		qty := FormatQuantity(it.Quantity) + " " + it.Unit
		qtyStyle := valueStyle
		if it.Quantity <= home.DefaultLowStockThreshold {
			qtyStyle = errorStyle
		}
		line := fmt.Sprintf("  %-24s %s  %s", it.Name,
			qtyStyle.Render(fmt.Sprintf("%-10s", qty)),
			dimStyle.Render("@ "+orDash(it.Location)))
		if i == m.itemCursor {
			line = selectedStyle.Render("›") + line[1:]
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m Model) renderStatusLine() string {
	switch {
	case m.err != nil:
		return "\n" + errorStyle.Render("⚠ "+m.err.Error()) + "\n"
	case m.status != "":
		return "\n" + dimStyle.Render(m.status) + "\n"
	}
	return ""
}

func (m Model) renderFooter() string {
	key := func(k, label string) string {
		return footerKeyStyle.Render("["+k+"]") + footerStyle.Render(" "+label+"  ")
	}
	var keys string
	if m.view == viewItems {
		keys = key("+/-", "qty") + key("/", "search") + key("d", "delete")
	} else {
		keys = key("l", "lights") + key("m", "mode") + key("n", "note") + key("d", "delete")
	}
	return keys + key("tab", "view") + key("r", "refresh") + key("q", "quit") +
		footerStyle.Render(fmt.Sprintf("Auto: %v", m.interval))
}

// createSparkline creates a sparkline chart from historical data
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	spark.Draw()
	return sparklineStyle.Render(spark.View())
}

func humidityRatio(h float64) float64 {
	switch {
	case h < 0:
		return 0
	case h > 100:
		return 1
	}
	return h / 100
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
