package http

import (
	"net/http"

	"aura-board/internal/service"

	"github.com/gin-gonic/gin"
)

// ParticipantHandler serves participant CRUD for a room.
type ParticipantHandler struct {
	participantService *service.ParticipantService
}

// NewParticipantHandler creates a ParticipantHandler.
func NewParticipantHandler(participantService *service.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participantService: participantService}
}

// List handles GET /api/rooms/:roomId/participants.
func (h *ParticipantHandler) List(c *gin.Context) {
	roomID, ok := uintParam(c, "roomId")
	if !ok {
		return
	}
	list, err := h.participantService.List(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, list)
}

// InsertParticipantRequest is the body of POST /api/rooms/:roomId/participants.
type InsertParticipantRequest struct {
	Name     string `json:"name" binding:"required"`
	ImageURL string `json:"image_url"`
}

// Insert handles POST /api/rooms/:roomId/participants.
func (h *ParticipantHandler) Insert(c *gin.Context) {
	roomID, ok := uintParam(c, "roomId")
	if !ok {
		return
	}
	var req InsertParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}

	p, err := h.participantService.Insert(c.Request.Context(), roomID, req.Name, req.ImageURL)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, p)
}

// UpdateParticipantRequest is the body of PATCH /api/participants/:id.
// Both fields are required; a zero value is a valid score.
type UpdateParticipantRequest struct {
	Position *float64 `json:"position" binding:"required"`
	Value    *int64   `json:"value" binding:"required"`
}

// Update handles PATCH /api/participants/:id.
func (h *ParticipantHandler) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req UpdateParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: position and value are required")
		return
	}

	p, err := h.participantService.Update(c.Request.Context(), id, *req.Position, *req.Value)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, p)
}

// Delete handles DELETE /api/participants/:id.
func (h *ParticipantHandler) Delete(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := h.participantService.Delete(c.Request.Context(), id); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
