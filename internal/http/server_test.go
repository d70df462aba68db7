package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/hearth/internal/config"
	"github.com/fyrsmithlabs/hearth/internal/events"
	"github.com/fyrsmithlabs/hearth/internal/home"
	"github.com/fyrsmithlabs/hearth/internal/logging"
	"github.com/fyrsmithlabs/hearth/internal/store"
)

type testServer struct {
	*Server
	log *logging.TestLogger
	pub *events.Recorder
	db  *store.SQL
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := store.Open(context.Background(), config.StoreConfig{Driver: config.DriverSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	pub := &events.Recorder{}
	svc, err := home.NewService(nil, db, pub, nil)
	require.NoError(t, err)

	tl := logging.NewTestLogger()
	srv, err := NewServer(svc, tl.Logger, &Config{Host: "127.0.0.1", Port: 0, Version: "test"}, WithPinger(db))
	require.NoError(t, err)
	return &testServer{Server: srv, log: tl, pub: pub, db: db}
}

// do performs a request as family (skipped when empty) and returns the recorder.
func (ts *testServer) do(t *testing.T, method, path, family string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if family != "" {
		req.Header.Set(HeaderFamilyName, family)
	}
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNewServer(t *testing.T) {
	t.Run("returns error when service is nil", func(t *testing.T) {
		_, err := NewServer(nil, logging.Nop(), nil)
		assert.ErrorContains(t, err, "home service cannot be nil")
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		ts := setupTestServer(t)
		_, err := NewServer(ts.home, nil, nil)
		assert.ErrorContains(t, err, "logger is required")
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		ts := setupTestServer(t)
		srv, err := NewServer(ts.home, logging.Nop(), nil)
		require.NoError(t, err)
		assert.Equal(t, 8000, srv.config.Port)
		assert.Equal(t, 10*time.Second, srv.config.ShutdownTimeout)
	})
}

func TestHandleHealth(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "ok", resp.Store)
}

func TestHandleHealth_StoreDown(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.db.Close())

	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decode[HealthResponse](t, rec).Status)
}

func TestFamilyHeader(t *testing.T) {
	ts := setupTestServer(t)

	tests := []struct {
		name   string
		family string
	}{
		{"missing", ""},
		{"blank", "   "},
		{"too long", strings.Repeat("x", home.MaxFamilyNameLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
			if tt.family != "" {
				req.Header.Set(HeaderFamilyName, tt.family)
			}
			rec := httptest.NewRecorder()
			ts.echo.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Message)
		})
	}
}

func TestStatusToggleMode(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/status", "Okafor", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[home.Status](t, rec)
	assert.Equal(t, "Okafor", st.Family)
	assert.Equal(t, 24.0, st.Temperature)
	assert.Equal(t, 45.0, st.Humidity)
	assert.Equal(t, home.ModeHome, st.Mode)
	assert.False(t, st.Lights)

	rec = ts.do(t, http.MethodPost, "/api/toggle", "Okafor", ToggleRequest{Device: "lights"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ToggleResponse{Status: "success", Lights: true}, decode[ToggleResponse](t, rec))

	rec = ts.do(t, http.MethodPost, "/api/toggle", "Okafor", ToggleRequest{Device: "oven"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ToggleResponse{Status: "success", Lights: true}, decode[ToggleResponse](t, rec))

	rec = ts.do(t, http.MethodPost, "/api/mode", "Okafor", ModeRequest{Mode: "Night"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ModeResponse{Status: "success", Mode: "Night"}, decode[ModeResponse](t, rec))

	rec = ts.do(t, http.MethodPost, "/api/mode", "Okafor", ModeRequest{Mode: "Disco"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Night", decode[ModeResponse](t, rec).Mode)

	// Another family is unaffected.
	rec = ts.do(t, http.MethodGet, "/api/status", "Lindqvist", nil)
	st = decode[home.Status](t, rec)
	assert.False(t, st.Lights)
	assert.Equal(t, home.ModeHome, st.Mode)

	ts.log.AssertField(t, "http request", "family", "Okafor")
}

func TestInvalidBody(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/toggle", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(HeaderFamilyName, "Okafor")
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid input: invalid request body", decode[ErrorResponse](t, rec).Message)
}

func TestOversizedItemFieldIsBadRequest(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/items", "Okafor", map[string]string{
		"name": strings.Repeat("m", home.MaxItemNameLength+1),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.True(t, strings.HasPrefix(decode[ErrorResponse](t, rec).Message, home.ErrInvalidInput.Error()))
}

func TestClimate(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/climate", "Okafor", map[string]float64{"temperature": 19.5, "humidity": 52})
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[home.Status](t, rec)
	assert.Equal(t, 19.5, st.Temperature)
	assert.Equal(t, 52.0, st.Humidity)

	rec = ts.do(t, http.MethodPost, "/api/climate", "Okafor", map[string]float64{"temperature": 19.5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/climate", "Okafor", map[string]float64{"temperature": 200, "humidity": 50})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemsLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/items", "Okafor", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String(), "empty list encodes as []")

	rec = ts.do(t, http.MethodPost, "/api/items", "Okafor", map[string]any{"name": "Milk", "quantity": 3, "unit": "L", "location": "Fridge"})
	require.Equal(t, http.StatusCreated, rec.Code)
	milk := decode[home.Item](t, rec)
	assert.Equal(t, "Milk", milk.Name)
	assert.Equal(t, "Grocery", milk.Category)

	rec = ts.do(t, http.MethodPost, "/api/items", "Okafor", map[string]any{"name": "Batteries", "quantity": 1, "location": "Drawer"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/items", "Okafor", map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/items?q=fridge", "Okafor", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]home.Item](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, milk.ID, items[0].ID)

	rec = ts.do(t, http.MethodGet, "/api/items/low", "Okafor", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	low := decode[[]home.Item](t, rec)
	require.Len(t, low, 1)
	assert.Equal(t, "Batteries", low[0].Name)

	rec = ts.do(t, http.MethodGet, "/api/items/low?threshold=5", "Okafor", nil)
	assert.Len(t, decode[[]home.Item](t, rec), 2)

	rec = ts.do(t, http.MethodGet, "/api/items/low?threshold=lots", "Okafor", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/items/"+milk.ID, "Okafor", map[string]any{"quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, decode[home.Item](t, rec).Quantity)

	rec = ts.do(t, http.MethodPatch, "/api/items/"+milk.ID, "Okafor", map[string]any{"quantity": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPatch, "/api/items/"+milk.ID, "Lindqvist", map[string]any{"quantity": 9})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/items/"+milk.ID, "Okafor", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/items/"+milk.ID, "Okafor", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotesLifecycle(t *testing.T) {
	ts := setupTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/notes", "Okafor", NoteRequest{Content: "Buy milk"})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[home.Note](t, rec)

	time.Sleep(2 * time.Millisecond)
	rec = ts.do(t, http.MethodPost, "/api/notes", "Okafor", NoteRequest{Content: "Plumber Tuesday"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/notes", "Okafor", NoteRequest{Content: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/notes", "Okafor", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[[]home.Note](t, rec)
	require.Len(t, notes, 2)
	assert.Equal(t, "Plumber Tuesday", notes[0].Content)

	rec = ts.do(t, http.MethodDelete, "/api/notes/"+first.ID, "Okafor", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/notes/"+first.ID, "Okafor", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	kinds := map[events.Kind]int{}
	for _, ev := range ts.pub.Events() {
		kinds[ev.Kind]++
	}
	assert.Equal(t, 3, kinds[events.KindNotes])
}

func TestCORS(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/toggle", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:5173")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	req.Header.Set(echo.HeaderAccessControlRequestHeaders, "content-type,x-family-name")
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), "x-family-name")
}

func TestMetricsEndpoint(t *testing.T) {
	ts := setupTestServer(t)
	ts.do(t, http.MethodPost, "/api/toggle", "Okafor", ToggleRequest{Device: "lights"})

	rec := ts.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hearth_toggles_total")
}

type failingHome struct{ HomeService }

func (failingHome) Status(context.Context, string) (home.Status, error) {
	return home.Status{}, errors.New("database is on fire")
}

func TestInternalErrorsAreLoggedAndHidden(t *testing.T) {
	tl := logging.NewTestLogger()
	srv, err := NewServer(failingHome{}, tl.Logger, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set(HeaderFamilyName, "Okafor")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal server error", decode[ErrorResponse](t, rec).Message)
	tl.AssertLogged(t, zapcore.ErrorLevel, "request failed")
	tl.AssertField(t, "request failed", "route", "/api/status")
}

func TestUnknownRoute(t *testing.T) {
	ts := setupTestServer(t)
	rec := ts.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decode[ErrorResponse](t, rec).Message)
}

func TestStart_GracefulShutdown(t *testing.T) {
	ts := setupTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Start(ctx) }()

	require.Eventually(t, func() bool { return ts.Addr() != nil }, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + ts.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
