package dashboard

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fyrsmithlabs/hearth/internal/client"
	"github.com/fyrsmithlabs/hearth/internal/home"
	"github.com/fyrsmithlabs/hearth/internal/session"
)

// requestTimeout bounds every API call made from the UI.
const requestTimeout = 10 * time.Second

// Message types
type (
	tickMsg     time.Time
	snapshotMsg struct{ snap *client.Snapshot }
	pollErrMsg  struct{ err error }

	toggledMsg     struct{ lights bool }
	modeMsg        struct{ mode home.Mode }
	noteAddedMsg   struct{ note home.Note }
	noteDeletedMsg struct{ id string }
	itemDeletedMsg struct{ id string }
	quantityMsg    struct{ item home.Item }

	// actionErrMsg reports a failed mutation. refetch asks for a fresh
	// snapshot to undo an optimistic change.
	actionErrMsg struct {
		op      string
		err     error
		refetch bool
	}

	sessionMsg struct {
		change session.Change
		ok     bool
	}
)

// tick schedules the next poll.
func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func call(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return fn(ctx)
	}
}

func fetchSnapshot(api API) tea.Cmd {
	return call(func(ctx context.Context) tea.Msg {
		snap, err := api.Snapshot(ctx)
		if err != nil {
			return pollErrMsg{err: err}
		}
		return snapshotMsg{snap: snap}
	})
}

func toggleLights(api API) tea.Cmd {
	return call(func(ctx context.Context) tea.Msg {
		lights, err := api.Toggle(ctx, home.DeviceLights)
		if err != nil {
			return actionErrMsg{op: "toggle lights", err: err}
		}
		return toggledMsg{lights: lights}
	})
}

func setMode(api API, mode home.Mode) tea.Cmd {
	return call(func(ctx context.Context) tea.Msg {
		got, err := api.SetMode(ctx, mode)
		if err != nil {
			return actionErrMsg{op: "set mode", err: err}
		}
		return modeMsg{mode: got}
	})
}

func addNote(api API, content string) tea.Cmd {
	return call(func(ctx context.Context) tea.Msg {
		note, err := api.AddNote(ctx, content)
		if err != nil {
			return actionErrMsg{op: "add note", err: err}
		}
		return noteAddedMsg{note: *note}
	})
}

func deleteNote(api API, id string) tea.Cmd {
	return call(func(ctx context.Context) tea.Msg {
		if err := api.DeleteNote(ctx, id); err != nil {
			return actionErrMsg{op: "delete note", err: err, refetch: true}
		}
		return noteDeletedMsg{id: id}
	})
}

func deleteItem(api API, id string) tea.Cmd {
	return call(func(ctx context.Context) tea.Msg {
		if err := api.DeleteItem(ctx, id); err != nil {
			return actionErrMsg{op: "delete item", err: err, refetch: true}
		}
		return itemDeletedMsg{id: id}
	})
}

func updateQuantity(api API, id string, qty float64) tea.Cmd {
	return call(func(ctx context.Context) tea.Msg {
		item, err := api.UpdateQuantity(ctx, id, qty)
		if err != nil {
			return actionErrMsg{op: "update quantity", err: err, refetch: true}
		}
		return quantityMsg{item: *item}
	})
}

// waitForSession relays the next login change from another terminal.
func waitForSession(changes <-chan session.Change) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-changes
		return sessionMsg{change: c, ok: ok}
	}
}
