package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fanlume/fanlume-backend/internal/http/response"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	"github.com/fanlume/fanlume-backend/internal/services"
)

type HandoffHandler struct {
	handoffs services.HandoffService
}

func NewHandoffHandler(handoffs services.HandoffService) *HandoffHandler {
	return &HandoffHandler{handoffs: handoffs}
}

// GET /api/conversations/:id/handoffs?limit=20
func (h *HandoffHandler) ListForConversation(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}
	limit := 20
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	rows, err := h.handoffs.ListByConversation(dbc, conversationID, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"handoffs": rows})
}

type requestManualReq struct {
	Note string `json:"note"`
}

// POST /api/conversations/:id/handoffs
func (h *HandoffHandler) RequestManual(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_conversation_id", err)
		return
	}
	var req requestManualReq
	_ = c.ShouldBindJSON(&req)

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.handoffs.RequestManual(dbc, conversationID, req.Note)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"handoff": row})
}

type respondReq struct {
	AgentID uuid.UUID `json:"agent_id" binding:"required"`
	Note    string    `json:"note"`
}

// POST /api/handoffs/:id/accept
func (h *HandoffHandler) Accept(c *gin.Context) {
	handoffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_handoff_id", err)
		return
	}
	var req respondReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.handoffs.Accept(dbc, handoffID, req.AgentID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"handoff": row})
}

// POST /api/handoffs/:id/decline
func (h *HandoffHandler) Decline(c *gin.Context) {
	handoffID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_handoff_id", err)
		return
	}
	var req respondReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	row, err := h.handoffs.Decline(dbc, handoffID, req.AgentID, req.Note)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"handoff": row})
}
