package hub

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client is one websocket connection watching a room's change feed.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	roomID uint
	userID uint
	send   chan []byte
}

// NewClient creates a Client for conn. Call Run after registering it.
func NewClient(hub *Hub, conn *websocket.Conn, roomID uint, userID uint) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		roomID: roomID,
		userID: userID,
		send:   make(chan []byte, 64),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) logger() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{"user_id": c.userID, "room_id": c.roomID})
}

// ReadPump keeps the read deadline alive on pongs and unregisters the client
// when the connection goes away. Data frames from the peer are ignored.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.messageChan <- HubMessage{Type: "unregister", Client: c}:
		case <-c.hub.stop:
		case <-time.After(time.Second):
			c.logger().Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger().WithError(err).Warn("WebSocket read error")
			}
			return
		}
	}
}

// WritePump sends queued change events and periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger().WithError(err).Warn("Failed to write change event")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger().WithError(err).Debug("Failed to send ping")
				return
			}
		}
	}
}

func (c *Client) RoomID() uint { return c.roomID }
func (c *Client) UserID() uint { return c.userID }
