package sink

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"stockwatch/internal/models"
	"stockwatch/internal/schedule"
)

const writeDeadline = 10 * time.Second

// Envelope frames every message pushed over the live feed.
type Envelope struct {
	Kind    string      `json:"kind"` // decisions, alerts, digest
	SentAt  time.Time   `json:"sent_at"`
	Payload interface{} `json:"payload"`
}

type digestPayload struct {
	Title    string                     `json:"title"`
	Upcoming []schedule.UpcomingRelease `json:"upcoming"`
}

// Hub is a Sink that broadcasts deliveries to connected websocket clients.
// A client that cannot keep up is dropped; delivery to the hub itself never
// fails, matching the at-most-once contract for decision batches.
type Hub struct {
	mu      sync.Mutex
	logger  zerolog.Logger
	clients map[*websocket.Conn]bool
}

// NewHub builds an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		logger:  logger.With().Str("sink", "hub").Logger(),
		clients: make(map[*websocket.Conn]bool),
	}
}

// Register adds a connection to the broadcast set.
func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info().Int("clients", count).Msg("live feed client connected")
}

// Unregister drops a connection and closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Info().Int("clients", count).Msg("live feed client disconnected")
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) SendDecisions(_ context.Context, batch []models.Decision) error {
	h.broadcast("decisions", batch)
	return nil
}

func (h *Hub) SendAlerts(_ context.Context, batch []models.MilestoneAlert) error {
	h.broadcast("alerts", batch)
	return nil
}

func (h *Hub) SendDigest(_ context.Context, upcoming []schedule.UpcomingRelease, title string) error {
	h.broadcast("digest", digestPayload{Title: title, Upcoming: upcoming})
	return nil
}

func (h *Hub) broadcast(kind string, payload interface{}) {
	raw, err := json.Marshal(Envelope{Kind: kind, SentAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("kind", kind).Msg("failed to encode envelope")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			delete(h.clients, conn)
			_ = conn.Close()
		}
	}
}
