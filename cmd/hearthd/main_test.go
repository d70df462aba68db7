package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func startNATS(t *testing.T) *natsserver.Server {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	require.NoError(t, err)
	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}
	t.Cleanup(func() {
		srv.Shutdown()
		srv.WaitForShutdown()
	})
	return srv
}

func waitHealthy(t *testing.T, base string) {
	t.Helper()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
}

func TestMainIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	dir := t.TempDir()
	port := freePort(t)
	ns := startNATS(t)

	t.Setenv("HOME", dir)
	t.Setenv("HEARTH_SERVER_HTTP_HOST", "127.0.0.1")
	t.Setenv("HEARTH_SERVER_HTTP_PORT", strconv.Itoa(port))
	t.Setenv("HEARTH_STORE_DSN", filepath.Join(dir, "hearth.db"))
	t.Setenv("HEARTH_EVENTS_ENABLED", "true")
	t.Setenv("HEARTH_EVENTS_NATS_URL", ns.ClientURL())
	t.Setenv("HEARTH_LOGGING_LEVEL", "warn")

	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer nc.Close()
	msgs := make(chan *nats.Msg, 8)
	sub, err := nc.ChanSubscribe("hearth.>", msgs)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, nc.Flush())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, "")
	}()

	base := "http://127.0.0.1:" + strconv.Itoa(port)
	waitHealthy(t, base)

	req, err := http.NewRequest(http.MethodPost, base+"/api/toggle", strings.NewReader(`{"device":"lights"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Family-Name", "Okafor")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	var body struct {
		Lights bool `json:"lights"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, body.Lights)

	select {
	case msg := <-msgs:
		assert.True(t, strings.HasPrefix(msg.Subject, "hearth.okafor."), msg.Subject)
	case <-time.After(5 * time.Second):
		t.Fatal("no event published")
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			t.Errorf("run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shutdown in time")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("HEARTH_STORE_DRIVER", "postgres")

	err := run(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}
