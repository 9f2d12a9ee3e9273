package sink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockwatch/internal/models"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register(conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubBroadcastsDecisions(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	conn := dialHub(t, hub)
	require.Equal(t, 1, hub.ClientCount())

	batch := []models.Decision{{ID: "d-1", Action: models.ActionNotify}}
	require.NoError(t, hub.SendDecisions(context.Background(), batch))

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var envelope Envelope
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, "decisions", envelope.Kind)
	assert.False(t, envelope.SentAt.IsZero())
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	conn := dialHub(t, hub)

	hubConns := make([]*websocket.Conn, 0, 1)
	hub.mu.Lock()
	for c := range hub.clients {
		hubConns = append(hubConns, c)
	}
	hub.mu.Unlock()
	require.Len(t, hubConns, 1)

	hub.Unregister(hubConns[0])
	assert.Zero(t, hub.ClientCount())

	// Delivery to an empty hub still succeeds.
	require.NoError(t, hub.SendAlerts(context.Background(), []models.MilestoneAlert{{ID: "a-1"}}))

	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
