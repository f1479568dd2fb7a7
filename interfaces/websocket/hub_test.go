package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"canvasflow/domain/events"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zap.NewNop())
	go hub.Run()
	t.Cleanup(hub.Stop)

	server := httptest.NewServer(ServeWS(hub, zap.NewNop()))
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub, server := startHub(t)

	first := dial(t, server)
	second := dial(t, server)

	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.Broadcast("request.settled", "ai-req-1", map[string]string{"outcome": "success"}))

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg EventMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "request.settled", msg.Type)
		assert.Equal(t, "ai-req-1", msg.RequestID)
		assert.Contains(t, string(msg.Data), "success")
	}
}

func TestHub_DisconnectedClientIsUnregistered(t *testing.T) {
	hub, server := startHub(t)

	conn := dial(t, server)
	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 1
	}, time.Second, 5*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestEventBroadcaster_PublishesDomainEvents(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server)

	require.Eventually(t, func() bool {
		return hub.ConnectionCount() == 1
	}, time.Second, 5*time.Millisecond)

	broadcaster := NewEventBroadcaster(hub)
	event := events.NewRequestAccepted("ai-req-7", "node-1", time.Now())
	require.NoError(t, broadcaster.Publish(context.Background(), event))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg EventMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "request.accepted", msg.Type)
	assert.Equal(t, "ai-req-7", msg.RequestID)
	assert.Contains(t, string(msg.Data), "node-1")
}
