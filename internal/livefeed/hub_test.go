package livefeed

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var hello Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, EventHello, hello.Type)
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubBroadcastsToViewers(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	all := dial(t, srv, "")
	only := dial(t, srv, "?conversation_id=conv-2")
	waitForClients(t, hub, 2)

	hub.Broadcast(Event{Type: EventMessage, ConversationID: "conv-1", Role: "user", Content: "hola"})
	hub.Broadcast(Event{Type: EventPaused, ConversationID: "conv-2", Reason: "handoff"})

	var got Event
	require.NoError(t, all.ReadJSON(&got))
	assert.Equal(t, "conv-1", got.ConversationID)
	assert.Equal(t, "hola", got.Content)
	assert.False(t, got.At.IsZero())
	require.NoError(t, all.ReadJSON(&got))
	assert.Equal(t, EventPaused, got.Type)

	require.NoError(t, only.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, only.ReadJSON(&got))
	assert.Equal(t, "conv-2", got.ConversationID)
	assert.Equal(t, "handoff", got.Reason)
}

func TestHubForgetsClosedViewers(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv, "")
	waitForClients(t, hub, 1)
	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)
}

func TestHubRejectsForeignOrigin(t *testing.T) {
	hub := NewHub([]string{"https://panel.example.com"}, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := map[string][]string{"Origin": {"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestNilHubBroadcastIsNoop(t *testing.T) {
	var hub *Hub
	hub.Broadcast(Event{Type: EventMessage})
}
