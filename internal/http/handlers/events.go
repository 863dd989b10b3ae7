package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fanlume/fanlume-backend/internal/http/response"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	"github.com/fanlume/fanlume-backend/internal/services"
)

// EventsHandler is the ingress for the external messaging subsystem.
type EventsHandler struct {
	events services.MessageEventService
}

func NewEventsHandler(events services.MessageEventService) *EventsHandler {
	return &EventsHandler{events: events}
}

type messageEventReq struct {
	ConversationID uuid.UUID `json:"conversation_id" binding:"required"`
	Text           string    `json:"text" binding:"required"`
}

// POST /api/messages/events
func (h *EventsHandler) OnFanMessage(c *gin.Context) {
	var req messageEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.events.OnFanMessage(dbc, req.ConversationID, req.Text); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

type purchaseEventReq struct {
	FanID     uuid.UUID `json:"fan_id" binding:"required"`
	CreatorID uuid.UUID `json:"creator_id" binding:"required"`
}

// POST /api/purchases/events
func (h *EventsHandler) OnPurchase(c *gin.Context) {
	var req purchaseEventReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.events.OnPurchase(dbc, req.FanID, req.CreatorID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
