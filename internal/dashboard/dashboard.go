// Package dashboard is the hearth terminal UI.
//
// The model polls a family's home on a fixed interval and renders two
// views: Control (climate, lights, mode, low stock and the family board)
// and Items (the searchable inventory). Mutations go straight to the API;
// quantity changes are applied optimistically and undone by a refetch when
// the server refuses them.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hearth/internal/client"
	"github.com/fyrsmithlabs/hearth/internal/home"
	"github.com/fyrsmithlabs/hearth/internal/logging"
	"github.com/fyrsmithlabs/hearth/internal/session"
)

const (
	// DefaultInterval is how often the dashboard polls.
	DefaultInterval = 10 * time.Second

	historySize = 30
)

// API is the part of the hearth client the dashboard drives.
type API interface {
	Family() string
	Snapshot(ctx context.Context) (*client.Snapshot, error)
	Toggle(ctx context.Context, device string) (bool, error)
	SetMode(ctx context.Context, mode home.Mode) (home.Mode, error)
	AddNote(ctx context.Context, content string) (*home.Note, error)
	DeleteNote(ctx context.Context, id string) error
	UpdateQuantity(ctx context.Context, id string, quantity float64) (*home.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// Config tunes the dashboard.
type Config struct {
	// Interval between polls (default 10s).
	Interval time.Duration

	Logger *logging.Logger

	// Logout clears the stored session when the server rejects the family.
	Logout func() error

	// SessionChanges, when set, ends the dashboard if another terminal
	// logs out or switches family.
	SessionChanges <-chan session.Change
}

type view int

const (
	viewControl view = iota
	viewItems
)

type inputMode int

const (
	inputNone inputMode = iota
	inputNote
	inputSearch
	inputConfirmDelete
)

// Model is the bubbletea dashboard model.
type Model struct {
	api      API
	family   string
	interval time.Duration
	logger   *logging.Logger
	logout   func() error
	changes  <-chan session.Change

	view       view
	snap       *client.Snapshot
	lastUpdate time.Time
	err        error
	status     string

	tempHistory     []float64
	humidityHistory []float64

	input      textinput.Model
	mode       inputMode
	search     string
	noteCursor int
	itemCursor int
	pendingID  string

	humidityBar progress.Model
	width       int

	quitting  bool
	loggedOut bool
	exitMsg   string
}

// New builds a dashboard for the family api acts for.
func New(api API, cfg Config) Model {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}

	ti := textinput.New()
	ti.CharLimit = home.MaxNoteContentLength
	ti.Width = 48

	return Model{
		api:             api,
		family:          api.Family(),
		interval:        cfg.Interval,
		logger:          cfg.Logger.Named("dashboard"),
		logout:          cfg.Logout,
		changes:         cfg.SessionChanges,
		input:           ti,
		tempHistory:     make([]float64, 0, historySize),
		humidityHistory: make([]float64, 0, historySize),
		humidityBar: progress.New(
			progress.WithGradient("#00ffff", "#0000ff"),
			progress.WithWidth(30),
		),
	}
}

// Run starts the dashboard and blocks until it exits. The returned model
// carries the exit message, if any.
func Run(ctx context.Context, api API, cfg Config) (Model, error) {
	p := tea.NewProgram(New(api, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if m, ok := final.(Model); ok {
		return m, err
	}
	return Model{}, err
}

// ExitMessage explains why the dashboard ended, if it was not a plain quit.
func (m Model) ExitMessage() string { return m.exitMsg }

// LoggedOut reports whether the dashboard ended the session.
func (m Model) LoggedOut() bool { return m.loggedOut }

// Init starts the first poll and the tick loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchSnapshot(m.api),
		tick(m.interval),
		waitForSession(m.changes),
	)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		if m.quitting {
			return m, nil
		}
		return m, tea.Batch(tick(m.interval), fetchSnapshot(m.api))

	case snapshotMsg:
		m.applySnapshot(msg.snap)
		return m, nil

	case pollErrMsg:
		if client.IsFamilyRejected(msg.err) {
			return m.endSession(fmt.Sprintf("The server rejected %q. You have been logged out.", m.family))
		}
		// Keep the last good snapshot on screen.
		m.err = msg.err
		m.logger.Warn(context.Background(), "poll failed", zap.Error(msg.err))
		return m, nil

	case toggledMsg:
		if m.snap != nil {
			m.snap.Status.Lights = msg.lights
		}
		m.status = "Lights " + onOff(msg.lights)
		return m, nil

	case modeMsg:
		if m.snap != nil {
			m.snap.Status.Mode = msg.mode
		}
		m.status = "Mode set to " + string(msg.mode)
		return m, nil

	case noteAddedMsg:
		if m.snap != nil {
			m.snap.Notes = append([]home.Note{msg.note}, m.snap.Notes...)
		}
		m.noteCursor = 0
		m.status = "Note pinned"
		return m, nil

	case noteDeletedMsg:
		if m.snap != nil {
			m.snap.Notes = removeNote(m.snap.Notes, msg.id)
			m.noteCursor = clamp(m.noteCursor, len(m.snap.Notes))
		}
		m.status = "Note removed"
		return m, nil

	case itemDeletedMsg:
		if m.snap != nil {
			m.setItems(removeItem(m.snap.Items, msg.id))
		}
		m.status = "Item deleted"
		return m, nil

	case quantityMsg:
		if m.snap != nil {
			m.setItems(replaceItem(m.snap.Items, msg.item))
		}
		return m, nil

	case actionErrMsg:
		m.err = fmt.Errorf("%s: %w", msg.op, msg.err)
		m.logger.Warn(context.Background(), "action failed", zap.String("op", msg.op), zap.Error(msg.err))
		if msg.refetch {
			return m, fetchSnapshot(m.api)
		}
		return m, nil

	case sessionMsg:
		if !msg.ok {
			return m, nil
		}
		if !msg.change.LoggedIn() {
			m.quitting = true
			m.exitMsg = "Logged out from another terminal."
			return m, tea.Quit
		}
		if msg.change.Family != m.family {
			m.quitting = true
			m.exitMsg = fmt.Sprintf("Switched to %s from another terminal. Restart the dashboard to follow.", msg.change.Family)
			return m, tea.Quit
		}
		return m, waitForSession(m.changes)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.mode {
	case inputNote, inputSearch:
		return m.handleInput(msg)
	case inputConfirmDelete:
		id := m.pendingID
		m.mode, m.pendingID = inputNone, ""
		if msg.String() == "y" && id != "" {
			m.status = "Deleting..."
			return m, deleteItem(m.api, id)
		}
		m.status = "Delete cancelled"
		return m, nil
	}

	m.status = ""
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		if m.view == viewControl {
			m.view = viewItems
		} else {
			m.view = viewControl
		}
		return m, nil
	case "r":
		return m, fetchSnapshot(m.api)
	case "l":
		return m, toggleLights(m.api)
	case "m":
		current := home.ModeHome
		if m.snap != nil {
			current = m.snap.Status.Mode
		}
		return m, setMode(m.api, current.Next())
	case "n":
		m.view = viewControl
		return m.startInput(inputNote, "Leave a note...", "")
	case "/":
		m.view = viewItems
		return m.startInput(inputSearch, "Search items or locations...", m.search)
	case "esc":
		m.search = ""
		m.itemCursor = 0
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		return m, nil
	case "d":
		return m.deleteSelected()
	case "+", "=":
		return m.adjustQuantity(1)
	case "-":
		return m.adjustQuantity(-1)
	}
	return m, nil
}

func (m Model) startInput(mode inputMode, placeholder, value string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	cmd := m.input.Focus()
	return m, cmd
}

func (m Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.mode == inputSearch {
			m.search = ""
			m.itemCursor = 0
		}
		m.mode = inputNone
		m.input.Blur()
		m.input.SetValue("")
		return m, nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = inputNone
		m.input.Blur()
		m.input.SetValue("")
		if mode == inputSearch {
			m.search = value
			return m, nil
		}
		if value == "" {
			return m, nil
		}
		m.status = "Pinning note..."
		return m, addNote(m.api, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == inputSearch {
		m.search = m.input.Value()
		m.itemCursor = 0
	}
	return m, cmd
}

func (m *Model) moveCursor(delta int) {
	if m.view == viewControl {
		m.noteCursor = clamp(m.noteCursor+delta, len(m.notes()))
		return
	}
	m.itemCursor = clamp(m.itemCursor+delta, len(m.visibleItems()))
}

func (m Model) deleteSelected() (tea.Model, tea.Cmd) {
	if m.view == viewControl {
		notes := m.notes()
		if len(notes) == 0 {
			return m, nil
		}
		return m, deleteNote(m.api, notes[clamp(m.noteCursor, len(notes))].ID)
	}

	items := m.visibleItems()
	if len(items) == 0 {
		return m, nil
	}
	item := items[clamp(m.itemCursor, len(items))]
	m.mode = inputConfirmDelete
	m.pendingID = item.ID
	m.status = fmt.Sprintf("Delete %s? (y/n)", item.Name)
	return m, nil
}

// adjustQuantity changes the selected item by delta before the server
// confirms. Quantities never go below zero.
func (m Model) adjustQuantity(delta float64) (tea.Model, tea.Cmd) {
	if m.view != viewItems {
		return m, nil
	}
	items := m.visibleItems()
	if len(items) == 0 {
		return m, nil
	}
	item := items[clamp(m.itemCursor, len(items))]
	qty := item.Quantity + delta
	if qty < 0 {
		return m, nil
	}
	item.Quantity = qty
	m.setItems(replaceItem(m.snap.Items, item))
	return m, updateQuantity(m.api, item.ID, qty)
}

func (m *Model) applySnapshot(snap *client.Snapshot) {
	if snap == nil {
		return
	}
	m.snap = snap
	m.lastUpdate = snap.FetchedAt
	m.err = nil
	m.tempHistory = appendToHistory(m.tempHistory, snap.Status.Temperature)
	m.humidityHistory = appendToHistory(m.humidityHistory, snap.Status.Humidity)
	m.noteCursor = clamp(m.noteCursor, len(snap.Notes))
	m.itemCursor = clamp(m.itemCursor, len(m.visibleItems()))
}

// setItems swaps in a new item list and recomputes the low-stock chips.
func (m *Model) setItems(items []home.Item) {
	m.snap.Items = items
	m.snap.LowStock = home.LowStock(items, home.DefaultLowStockThreshold)
	m.itemCursor = clamp(m.itemCursor, len(m.visibleItems()))
}

func (m Model) endSession(message string) (tea.Model, tea.Cmd) {
	if m.logout != nil {
		if err := m.logout(); err != nil {
			m.logger.Warn(context.Background(), "failed to clear session", zap.Error(err))
		}
	}
	m.loggedOut = true
	m.quitting = true
	m.exitMsg = message
	return m, tea.Quit
}

func (m Model) notes() []home.Note {
	if m.snap == nil {
		return nil
	}
	return m.snap.Notes
}

func (m Model) visibleItems() []home.Item {
	if m.snap == nil {
		return nil
	}
	return home.Filter(m.snap.Items, m.search)
}

// appendToHistory appends a value to history, maintaining max size
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func removeNote(notes []home.Note, id string) []home.Note {
	out := make([]home.Note, 0, len(notes))
	for _, n := range notes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}

func removeItem(items []home.Item, id string) []home.Item {
	out := make([]home.Item, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

// replaceItem returns a copy of items with the matching item swapped.
func replaceItem(items []home.Item, item home.Item) []home.Item {
	out := make([]home.Item, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == item.ID {
			out[i] = item
		}
	}
	return out
}
