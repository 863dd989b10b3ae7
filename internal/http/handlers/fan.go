package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fanlume/fanlume-backend/internal/data/repos"
	types "github.com/fanlume/fanlume-backend/internal/domain"
	"github.com/fanlume/fanlume-backend/internal/http/response"
	"github.com/fanlume/fanlume-backend/internal/pkg/dbctx"
	pkgerrors "github.com/fanlume/fanlume-backend/internal/pkg/errors"
	"github.com/fanlume/fanlume-backend/internal/services"
)

// FanHandler exposes the read/write surface for fan profiles, memory,
// and operator notes.
type FanHandler struct {
	profiles repos.FanProfileRepo
	memory   services.MemoryService
	quality  services.QualityService
	notes    services.NoteService
}

func NewFanHandler(
	profiles repos.FanProfileRepo,
	memory services.MemoryService,
	quality services.QualityService,
	notes services.NoteService,
) *FanHandler {
	return &FanHandler{profiles: profiles, memory: memory, quality: quality, notes: notes}
}

func pairParams(c *gin.Context) (fanID, creatorID uuid.UUID, ok bool) {
	var err error
	creatorID, err = uuid.Parse(c.Param("creatorID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_creator_id", err)
		return uuid.Nil, uuid.Nil, false
	}
	fanID, err = uuid.Parse(c.Param("fanID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_fan_id", err)
		return uuid.Nil, uuid.Nil, false
	}
	return fanID, creatorID, true
}

// GET /api/creators/:creatorID/fans/:fanID/profile
func (h *FanHandler) GetProfile(c *gin.Context) {
	fanID, creatorID, ok := pairParams(c)
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	profile, err := h.profiles.GetByPair(dbc, fanID, creatorID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	if profile == nil {
		response.RespondServiceError(c, pkgerrors.ErrNotFound)
		return
	}
	response.RespondOK(c, gin.H{"profile": profile})
}

// GET /api/creators/:creatorID/fans/:fanID/memory
func (h *FanHandler) GetMemory(c *gin.Context) {
	fanID, creatorID, ok := pairParams(c)
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	mc, err := h.memory.GetMemoryContext(dbc, fanID, creatorID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"memory": mc})
}

// GET /api/creators/:creatorID/fans/:fanID/memory/prompt
func (h *FanHandler) GetMemoryPrompt(c *gin.Context) {
	fanID, creatorID, ok := pairParams(c)
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	mc, err := h.memory.GetMemoryContext(dbc, fanID, creatorID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"prompt": services.FormatForPrompt(mc)})
}

type saveFactReq struct {
	Category types.MemoryCategory `json:"category" binding:"required"`
	Key      string               `json:"key" binding:"required"`
	Value    string               `json:"value" binding:"required"`
	Source   types.MemorySource   `json:"source"`
}

// POST /api/creators/:creatorID/fans/:fanID/memory
func (h *FanHandler) SaveFact(c *gin.Context) {
	fanID, creatorID, ok := pairParams(c)
	if !ok {
		return
	}
	var req saveFactReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Source == "" {
		req.Source = types.MemorySourceManual
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.memory.SaveManualFact(dbc, fanID, creatorID, req.Category, req.Key, req.Value, req.Source); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"saved": true})
}

// DELETE /api/memory/:id
func (h *FanHandler) DeactivateFact(c *gin.Context) {
	factID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_fact_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.memory.DeactivateFact(dbc, factID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deactivated": true})
}

// POST /api/creators/:creatorID/fans/:fanID/quality/recompute
func (h *FanHandler) RecomputeQuality(c *gin.Context) {
	fanID, creatorID, ok := pairParams(c)
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	result, err := h.quality.Recompute(dbc, fanID, creatorID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"quality": result})
}

// POST /api/creators/:creatorID/quality/sweep
func (h *FanHandler) SweepCreatorQuality(c *gin.Context) {
	creatorID, err := uuid.Parse(c.Param("creatorID"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_creator_id", err)
		return
	}
	limit := 200
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", err)
			return
		}
		limit = parsed
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	n, err := h.quality.SweepCreator(dbc, creatorID, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"recomputed": n})
}

type setNoteReq struct {
	Note   string `json:"note" binding:"required"`
	Author string `json:"author"`
}

// PUT /api/creators/:creatorID/fans/:fanID/note
func (h *FanHandler) SetNote(c *gin.Context) {
	fanID, creatorID, ok := pairParams(c)
	if !ok {
		return
	}
	var req setNoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Author == "" {
		req.Author = "operator"
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.notes.SetManual(dbc, fanID, creatorID, req.Note, req.Author); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"saved": true})
}

// POST /api/creators/:creatorID/fans/:fanID/note/generate
func (h *FanHandler) GenerateNote(c *gin.Context) {
	fanID, creatorID, ok := pairParams(c)
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	note, err := h.notes.GenerateSummary(dbc, fanID, creatorID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"note": note})
}
