package websocket

import (
	"errors"
	"net/http"
	"strconv"

	"aura-board/internal/hub"
	"aura-board/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// WebSocketHandler upgrades change feed requests and hands the connection to the hub.
type WebSocketHandler struct {
	upgrader    websocket.Upgrader
	hub         *hub.Hub
	roomService *service.RoomService
}

// NewWebSocketHandler creates a WebSocketHandler. checkOrigin may be nil to
// accept any origin.
func NewWebSocketHandler(hub *hub.Hub, roomService *service.RoomService, checkOrigin func(r *http.Request) bool) *WebSocketHandler {
	if hub == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if roomService == nil {
		panic("RoomService cannot be nil for WebSocketHandler")
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}

	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		hub:         hub,
		roomService: roomService,
	}
}

// HandleConnection handles GET /ws/room/:roomId.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userIDAny, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, ok := userIDAny.(uint)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	logCtx := logrus.WithField("user_id", userID)

	roomIDStr := c.Param("roomId")
	roomIDUint64, err := strconv.ParseUint(roomIDStr, 10, 32)
	if err != nil || roomIDUint64 == 0 {
		logCtx.Warnf("WS Handler: invalid room ID format: %s", roomIDStr)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room ID format"})
		return
	}
	roomID := uint(roomIDUint64)
	logCtx = logCtx.WithField("room_id", roomID)

	if _, err := h.roomService.FindRoomByID(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate room"})
		}
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logCtx.WithError(err).Warn("WS Handler: failed to upgrade connection")
		return
	}

	client := hub.NewClient(h.hub, conn, roomID, userID)
	if !h.hub.Register(client) {
		logCtx.Error("WS Handler: hub refused client registration")
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy"))
		conn.Close()
		return
	}
	client.Run()
	logCtx.Info("WS Handler: client connected to change feed")
}
