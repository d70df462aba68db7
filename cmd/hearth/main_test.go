package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/hearth/internal/config"
	"github.com/fyrsmithlabs/hearth/internal/home"
	hearthhttp "github.com/fyrsmithlabs/hearth/internal/http"
	"github.com/fyrsmithlabs/hearth/internal/logging"
	"github.com/fyrsmithlabs/hearth/internal/store"
)

type testEnv struct {
	url         string
	sessionFile string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.Open(context.Background(), config.StoreConfig{Driver: config.DriverSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc, err := home.NewService(nil, db, nil, nil)
	require.NoError(t, err)
	srv, err := hearthhttp.NewServer(svc, logging.Nop(), &hearthhttp.Config{Version: "test"}, hearthhttp.WithPinger(db))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{
		url:         ts.URL + "/api",
		sessionFile: filepath.Join(t.TempDir(), "session.toml"),
	}
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append(args, "--server", e.url, "--session-file", e.sessionFile))
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}

var idPattern = regexp.MustCompile(`\[([0-9a-f-]{36})\]`)

func idFrom(t *testing.T, out string) string {
	t.Helper()
	m := idPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, "no id in %q", out)
	return m[1]
}

func TestLoginWhoamiLogout(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)

	out := env.mustRun(t, "login", "The", "Okafors")
	assert.Contains(t, out, "Welcome home, The Okafors.")
	assert.Equal(t, "The Okafors\n", env.mustRun(t, "whoami"))

	assert.Contains(t, env.mustRun(t, "logout"), "Logged out.")
	_, err = env.run(t, "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestLogin_Blank(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "login", "   ")
	assert.ErrorIs(t, err, home.ErrFamilyRequired)
}

func TestCommandsNeedLogin(t *testing.T) {
	env := newTestEnv(t)
	for _, args := range [][]string{{"status"}, {"toggle"}, {"items", "list"}, {"notes", "list"}} {
		_, err := env.run(t, args...)
		assert.ErrorIs(t, err, errNotLoggedIn, args)
	}
}

func TestHomeControls(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "login", "Okafor")

	out := env.mustRun(t, "status")
	assert.Contains(t, out, "Hello, Okafor")
	assert.Contains(t, out, "Mode:        Home")
	assert.Contains(t, out, "Temperature: 24.0°C")

	assert.Contains(t, env.mustRun(t, "toggle"), "Lights are on.")
	assert.Contains(t, env.mustRun(t, "toggle", "lights"), "Lights are off.")

	assert.Contains(t, env.mustRun(t, "mode", "Night"), "Mode set to Night.")
	_, err := env.run(t, "mode", "night")
	assert.ErrorContains(t, err, "unknown mode")

	out = env.mustRun(t, "climate", "19.5", "52")
	assert.Contains(t, out, "Temperature: 19.5°C")
	assert.Contains(t, out, "Humidity:    52%")

	_, err = env.run(t, "climate", "warm", "52")
	assert.ErrorContains(t, err, "invalid temperature")
}

func TestItemsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "login", "Okafor")

	milk := idFrom(t, env.mustRun(t, "items", "add", "Milk", "--qty", "1", "--unit", "l", "--location", "Fridge"))
	candles := idFrom(t, env.mustRun(t, "items", "add", "Candles", "--qty", "6", "--location", "Drawer"))

	out := env.mustRun(t, "items", "list")
	assert.Contains(t, out, "Milk")
	assert.Contains(t, out, "Candles")
	assert.Contains(t, out, "2 items")

	out = env.mustRun(t, "items", "list", "--search", "fridge")
	assert.Contains(t, out, "Milk")
	assert.NotContains(t, out, "Candles")

	out = env.mustRun(t, "items", "list", "--low")
	assert.Contains(t, out, "Milk")
	assert.NotContains(t, out, "Candles")

	assert.Contains(t, env.mustRun(t, "items", "inc", milk), "Milk: 2 l")
	assert.Contains(t, env.mustRun(t, "items", "qty", candles, "0.5"), "Candles: 0.5 pcs")
	_, err := env.run(t, "items", "dec", candles)
	assert.ErrorContains(t, err, "only has 0.5 pcs left")
	_, err = env.run(t, "items", "qty", candles, "-1")
	assert.Error(t, err)

	assert.Contains(t, env.mustRun(t, "items", "rm", candles), "Item deleted.")
	_, err = env.run(t, "items", "rm", candles)
	assert.Error(t, err)

	_, err = env.run(t, "items", "inc", "no-such-id")
	assert.ErrorContains(t, err, "not found")
}

func TestItemsExport(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "login", "Okafor")
	env.mustRun(t, "items", "add", "Eggs", "--qty", "1")

	path := filepath.Join(t.TempDir(), "shopping.pdf")
	assert.Contains(t, env.mustRun(t, "items", "export", path), "Shopping list written")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestNotes(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "login", "Okafor")

	out := env.mustRun(t, "notes", "list", "--plain")
	assert.Contains(t, out, "_No notes yet._")

	id := idFrom(t, env.mustRun(t, "notes", "add", "Water", "the", "plants"))
	out = env.mustRun(t, "notes", "list", "--plain")
	assert.Contains(t, out, "# Okafor's Family Board")
	assert.Contains(t, out, "> Water the plants")
	assert.Contains(t, out, id)

	assert.Contains(t, env.mustRun(t, "notes", "rm", id), "Note removed.")
	_, err := env.run(t, "notes", "rm", id)
	assert.Error(t, err)
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderMarkdown(&buf, "# Board\n\n> buy milk\n"))
	assert.Contains(t, buf.String(), "buy milk")
}

func TestRejectedFamilyLogsOut(t *testing.T) {
	env := newTestEnv(t)
	long := strings.Repeat("a", home.MaxFamilyNameLength+1)
	require.NoError(t, os.WriteFile(env.sessionFile, []byte("family = \""+long+"\"\n"), 0600))

	out, err := env.run(t, "status")
	require.Error(t, err)
	assert.Contains(t, out, "You have been logged out.")
	_, err = os.Stat(env.sessionFile)
	assert.True(t, os.IsNotExist(err))
}

func TestBadInputKeepsSession(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun(t, "login", "Okafor")

	_, err := env.run(t, "items", "add", "Flour", "--qty", "-2")
	require.Error(t, err)
	assert.Equal(t, "Okafor\n", env.mustRun(t, "whoami"))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "health")
	assert.Contains(t, out, "Server Status: ok")
	assert.Contains(t, out, "Version:       test")
}
