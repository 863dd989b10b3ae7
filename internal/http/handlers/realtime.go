package handlers

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fanlume/fanlume-backend/internal/pkg/logger"
	"github.com/fanlume/fanlume-backend/internal/realtime"
)

// RealtimeHandler serves the agent-facing SSE stream. Agent identity is
// taken from the X-Agent-Id header (or agent_id query); authentication
// is handled upstream by the platform gateway.
type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub

	mu      sync.Mutex
	clients map[uuid.UUID]*realtime.SSEClient
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// GET /sse/stream
func (h *RealtimeHandler) Stream(c *gin.Context) {
	raw := strings.TrimSpace(c.GetHeader("X-Agent-Id"))
	if raw == "" {
		raw = strings.TrimSpace(c.Query("agent_id"))
	}
	agentID, err := uuid.Parse(raw)
	if err != nil || agentID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid agent id"})
		return
	}

	h.mu.Lock()
	if existing, ok := h.clients[agentID]; ok {
		h.hub.CloseClient(existing)
		delete(h.clients, agentID)
	}
	client := h.hub.NewSSEClient(agentID)
	h.clients[agentID] = client
	h.mu.Unlock()

	h.hub.AddChannel(client, agentID.String())
	h.log.Info("SSE stream open", "agent_id", agentID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	// Only tear down if a reconnect hasn't already replaced (and closed)
	// this client.
	h.mu.Lock()
	mine := h.clients[agentID] == client
	if mine {
		delete(h.clients, agentID)
	}
	h.mu.Unlock()
	if mine {
		h.hub.CloseClient(client)
	}
}
