package http

import (
	"net/http"
	"strconv"

	"aura-board/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const (
	defaultQRSize = 256
	maxQRSize     = 1024
)

// RoomHandler serves room creation, lookup and invites.
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// CreateRoomRequest is the body of POST /api/rooms.
type CreateRoomRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: name is required")
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), userID, req.Name)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, room)
}

// JoinRoomRequest is the body of POST /api/rooms/join.
type JoinRoomRequest struct {
	InviteCode string `json:"invite_code" binding:"required"`
}

// JoinRoom handles POST /api/rooms/join.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: invite_code is required")
		return
	}

	room, err := h.roomService.JoinRoom(c.Request.Context(), userID, req.InviteCode)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

// GetRoom handles GET /api/rooms/:roomId.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := uintParam(c, "roomId")
	if !ok {
		return
	}
	room, err := h.roomService.FindRoomByID(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

// InviteQRCode handles GET /api/rooms/:roomId/invite.png. The optional size
// query sets the image edge in pixels.
func (h *RoomHandler) InviteQRCode(c *gin.Context) {
	roomID, ok := uintParam(c, "roomId")
	if !ok {
		return
	}
	size := defaultQRSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 64 || n > maxQRSize {
			ErrorResponse(c, http.StatusBadRequest, "Invalid size")
			return
		}
		size = n
	}

	room, err := h.roomService.FindRoomByID(c.Request.Context(), roomID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	png, err := qrcode.Encode(room.InviteCode, qrcode.Medium, size)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to encode invite QR code")
		ErrorResponse(c, http.StatusInternalServerError, "Failed to render invite code")
		return
	}
	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, "image/png", png)
}
