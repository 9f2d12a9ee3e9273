// Package api exposes the command surface: interest-list management, tag
// routing, release lookups and the live websocket feed.
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"stockwatch/internal/engine"
	"stockwatch/internal/models"
	"stockwatch/internal/schedule"
	"stockwatch/internal/service"
	"stockwatch/internal/sink"
)

const sendTimeout = 15 * time.Second

type Handler struct {
	interest *service.InterestService
	router   *sink.Router
	sched    *schedule.Scheduler
	hub      *sink.Hub
	out      sink.Sink
	engine   *engine.DecisionEngine
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func SetupRoutes(r *gin.RouterGroup, interest *service.InterestService, router *sink.Router, sched *schedule.Scheduler, hub *sink.Hub, out sink.Sink, eng *engine.DecisionEngine, logger zerolog.Logger) *Handler {
	handler := &Handler{
		interest: interest,
		router:   router,
		sched:    sched,
		hub:      hub,
		out:      out,
		engine:   eng,
		logger:   logger.With().Str("component", "api").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	// Interest list management
	interestGroup := r.Group("/interest")
	{
		interestGroup.POST("", handler.AddInterest)
		interestGroup.GET("/:owner_id", handler.ListInterest)
		interestGroup.DELETE("/:owner_id/:product_id", handler.RemoveInterest)
	}

	// Tag -> delivery target routing
	routes := r.Group("/routes")
	{
		routes.GET("", handler.ListRoutes)
		routes.POST("", handler.SetRoute)
		routes.DELETE("/:tag", handler.RemoveRoute)
	}

	// Release calendar
	releases := r.Group("/releases")
	{
		releases.GET("/upcoming", handler.UpcomingReleases)
	}

	// One-off alert through the real delivery path
	r.POST("/alerts/test", handler.TestAlert)

	r.GET("/health", handler.Health)
	r.GET("/ws", handler.LiveFeed)

	return handler
}

type interestRequest struct {
	OwnerID   int64    `json:"owner_id" binding:"required"`
	ProductID string   `json:"product_id" binding:"required"`
	MaxPrice  *float64 `json:"max_price"`
	Action    string   `json:"action"`
	Tags      []string `json:"tags"`
	Vendors   []string `json:"vendors"`
}

// AddInterest upserts a watch entry; a second request for the same
// owner/product pair replaces the first.
func (h *Handler) AddInterest(c *gin.Context) {
	var req interestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.MaxPrice != nil && *req.MaxPrice <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_price must be positive"})
		return
	}

	action := models.ActionNotify
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "", string(models.ActionNotify):
	case string(models.ActionAcquire):
		action = models.ActionAcquire
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be notify or acquire"})
		return
	}

	entry, err := h.interest.AddOrUpdate(req.OwnerID, strings.TrimSpace(req.ProductID), req.MaxPrice, action, req.Tags, req.Vendors)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to save interest entry")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "ok", "data": entry})
}

func (h *Handler) ListInterest(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.Param("owner_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner_id"})
		return
	}
	entries, err := h.interest.ListFor(ownerID)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list interest entries")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list entries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "ok", "data": gin.H{"count": len(entries), "items": entries}})
}

func (h *Handler) RemoveInterest(c *gin.Context) {
	ownerID, err := strconv.ParseInt(c.Param("owner_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner_id"})
		return
	}
	removed, err := h.interest.Remove(ownerID, c.Param("product_id"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to remove interest entry")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove entry"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such entry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "removed"})
}

func (h *Handler) ListRoutes(c *gin.Context) {
	routes, err := h.router.List()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list tag routes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list routes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "ok", "data": gin.H{"count": len(routes), "items": routes}})
}

func (h *Handler) SetRoute(c *gin.Context) {
	var req struct {
		Tag      string `json:"tag" binding:"required"`
		TargetID int64  `json:"target_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.router.Set(strings.TrimSpace(req.Tag), req.TargetID); err != nil {
		h.logger.Error().Err(err).Msg("failed to save tag route")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save route"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "ok"})
}

func (h *Handler) RemoveRoute(c *gin.Context) {
	removed, err := h.router.Remove(c.Param("tag"))
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to remove tag route")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove route"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "no such route"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "removed"})
}

// UpcomingReleases lists known releases inside the window, soonest first.
// GET /api/v1/releases/upcoming?days=90
func (h *Handler) UpcomingReleases(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "90"))
	if days <= 0 || days > 365 {
		days = 90
	}
	upcoming, err := h.sched.Upcoming(days, time.Now().UTC())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list upcoming releases")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list releases"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "ok", "data": gin.H{"count": len(upcoming), "window_days": days, "items": upcoming}})
}

// TestAlert pushes a synthetic alert through the configured sinks so the
// delivery path can be verified end to end.
func (h *Handler) TestAlert(c *gin.Context) {
	var req struct {
		Message string `json:"message"`
	}
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.Message) == "" {
		req.Message = "Delivery path test."
	}

	alert := models.MilestoneAlert{
		ID:           uuid.NewString(),
		Milestone:    models.MilestoneAnnouncement,
		ScheduledFor: time.Now().UTC(),
		Message:      req.Message,
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), sendTimeout)
	defer cancel()
	if err := h.out.SendAlerts(ctx, []models.MilestoneAlert{alert}); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "delivery failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 200, "msg": "sent", "data": alert})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"interest_entries": h.engine.Size(),
		"feed_clients":     h.hub.ClientCount(),
	})
}

// LiveFeed upgrades the connection and keeps it registered with the hub
// until the peer goes away. Clients only listen; inbound frames are read
// and discarded to service control messages.
func (h *Handler) LiveFeed(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.hub.Register(conn)
	defer h.hub.Unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
