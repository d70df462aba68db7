package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/hearth/internal/logging"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestFamilyToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Okafor", "okafor"},
		{"The Smiths", "the_smiths"},
		{"van der-Berg", "van_der-berg"},
		{"a.b*c>d", "a_b_c_d"},
		{"Müller", "m_ller"},
		{"", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FamilyToken(tt.in))
		})
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "hearth.the_smiths.items", Subject("hearth", "The Smiths", KindItems))
}

func TestNATS_Publish(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("hearth.okafor.status", ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	tl := logging.NewTestLogger()
	pub := NewNATS(nc, "", tl.Logger)

	ev := New(KindStatus, "toggle", "Okafor", map[string]bool{"lights": true})
	require.NoError(t, pub.Publish(context.Background(), ev))

	select {
	case msg := <-ch:
		var got Event
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, ev.ID, got.ID)
		assert.Equal(t, KindStatus, got.Kind)
		assert.Equal(t, "toggle", got.Action)
		assert.Equal(t, "Okafor", got.Family)
		assert.Equal(t, map[string]any{"lights": true}, got.Payload)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for status event")
	}

	tl.AssertField(t, "event published", "subject", "hearth.okafor.status")

	// Close must leave a borrowed connection open.
	require.NoError(t, pub.Close())
	assert.True(t, nc.IsConnected())
}

func TestNATS_SharedTokenKeepsExactFamily(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	ch := make(chan *nats.Msg, 2)
	sub, err := nc.ChanSubscribe("hearth.okafor.items", ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	pub := NewNATS(nc, "hearth", nil)
	require.NoError(t, pub.Publish(context.Background(), New(KindItems, "create", "Okafor", nil)))
	require.NoError(t, pub.Publish(context.Background(), New(KindItems, "create", "okafor", nil)))

	var families []string
	for len(families) < 2 {
		select {
		case msg := <-ch:
			var got Event
			require.NoError(t, json.Unmarshal(msg.Data, &got))
			families = append(families, got.Family)
		case <-time.After(time.Second):
			t.Fatalf("timeout, got %v", families)
		}
	}
	assert.ElementsMatch(t, []string{"Okafor", "okafor"}, families)
}

func TestNATS_PublishCanceledContext(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = NewNATS(nc, "hearth", nil).Publish(ctx, New(KindNotes, "create", "Okafor", nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnect(t *testing.T) {
	server := startTestNATSServer(t)

	pub, err := Connect(server.ClientURL(), "home", nil)
	require.NoError(t, err)
	assert.Equal(t, "home", pub.prefix)
	require.NoError(t, pub.Publish(context.Background(), New(KindItems, "delete", "Okafor", nil)))
	assert.NoError(t, pub.Close())
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{}
	require.NoError(t, rec.Publish(context.Background(), New(KindNotes, "create", "Okafor", nil)))
	assert.Len(t, rec.Events(), 1)

	rec.Err = errors.New("broker down")
	assert.Error(t, rec.Publish(context.Background(), New(KindNotes, "create", "Okafor", nil)))
	assert.Len(t, rec.Events(), 1)

	assert.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}
