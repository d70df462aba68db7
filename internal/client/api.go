package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/hearth/internal/home"
)

// Health is the body of GET /health.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Store   string `json:"store,omitempty"`
}

type toggleResponse struct {
	Status string `json:"status"`
	Lights bool   `json:"lights"`
}

type modeResponse struct {
	Status string    `json:"status"`
	Mode   home.Mode `json:"mode"`
}

// Health checks the server. It is served outside the API root.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	root := strings.TrimSuffix(c.baseURL, "/api")
	var out Health
	if err := c.do(ctx, http.MethodGet, root+"/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status fetches the home status.
func (c *Client) Status(ctx context.Context) (*home.Status, error) {
	var out home.Status
	if err := c.do(ctx, http.MethodGet, "/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Toggle flips device and returns the resulting light state.
func (c *Client) Toggle(ctx context.Context, device string) (bool, error) {
	var out toggleResponse
	err := c.do(ctx, http.MethodPost, "/toggle", nil, map[string]string{"device": device}, &out)
	return out.Lights, err
}

// SetMode requests a scene change and returns the mode now in effect.
func (c *Client) SetMode(ctx context.Context, mode home.Mode) (home.Mode, error) {
	var out modeResponse
	err := c.do(ctx, http.MethodPost, "/mode", nil, map[string]string{"mode": string(mode)}, &out)
	return out.Mode, err
}

// ReportClimate submits a sensor reading.
func (c *Client) ReportClimate(ctx context.Context, temperature, humidity float64) (*home.Status, error) {
	var out home.Status
	body := map[string]float64{"temperature": temperature, "humidity": humidity}
	if err := c.do(ctx, http.MethodPost, "/climate", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Items lists inventory, filtered by name or location when query is set.
func (c *Client) Items(ctx context.Context, query string) ([]home.Item, error) {
	var q url.Values
	if query = strings.TrimSpace(query); query != "" {
		q = url.Values{"q": {query}}
	}
	out := make([]home.Item, 0)
	if err := c.do(ctx, http.MethodGet, "/items", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LowStock lists items at or below threshold. A negative threshold uses the server default.
func (c *Client) LowStock(ctx context.Context, threshold float64) ([]home.Item, error) {
	var q url.Values
	if threshold >= 0 {
		q = url.Values{"threshold": {formatFloat(threshold)}}
	}
	out := make([]home.Item, 0)
	if err := c.do(ctx, http.MethodGet, "/items/low", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddItem creates an item.
func (c *Client) AddItem(ctx context.Context, in home.ItemInput) (*home.Item, error) {
	var out home.Item
	if err := c.do(ctx, http.MethodPost, "/items", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateItem patches an item.
func (c *Client) UpdateItem(ctx context.Context, id string, patch home.ItemPatch) (*home.Item, error) {
	var out home.Item
	if err := c.do(ctx, http.MethodPatch, "/items/"+url.PathEscape(id), nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateQuantity sets an item's quantity.
func (c *Client) UpdateQuantity(ctx context.Context, id string, quantity float64) (*home.Item, error) {
	return c.UpdateItem(ctx, id, home.ItemPatch{Quantity: &quantity})
}

// DeleteItem removes an item.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/items/"+url.PathEscape(id), nil, nil, nil)
}

// Notes lists the family board, newest first.
func (c *Client) Notes(ctx context.Context) ([]home.Note, error) {
	out := make([]home.Note, 0)
	if err := c.do(ctx, http.MethodGet, "/notes", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddNote pins a note.
func (c *Client) AddNote(ctx context.Context, content string) (*home.Note, error) {
	var out home.Note
	if err := c.do(ctx, http.MethodPost, "/notes", nil, map[string]string{"content": content}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notes/"+url.PathEscape(id), nil, nil, nil)
}

// Snapshot is one consistent poll of a home.
type Snapshot struct {
	Status    home.Status
	Items     []home.Item
	Notes     []home.Note
	LowStock  []home.Item
	FetchedAt time.Time
}

// Snapshot fetches status, notes and items concurrently and derives the
// low-stock list. Any failure fails the whole snapshot so callers can keep
// their previous one.
func (c *Client) Snapshot(ctx context.Context) (*Snapshot, error) {
	var (
		status *home.Status
		items  []home.Item
		notes  []home.Note
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		status, err = c.Status(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		notes, err = c.Notes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = c.Items(gctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("poll %s: %w", c.Family(), err)
	}

	return &Snapshot{
		Status:    *status,
		Items:     items,
		Notes:     notes,
		LowStock:  home.LowStock(items, home.DefaultLowStockThreshold),
		FetchedAt: time.Now(),
	}, nil
}
