package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"aura-board/internal/domain"
	"aura-board/internal/repository"

	"github.com/sirupsen/logrus"
)

// Websocket timing shared by the hub and its clients.
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// The feed is server to client only; peers send control frames at most.
	maxMessageSize = 512
)

// HubMessage is a request on the hub's control channel.
type HubMessage struct {
	Type   string // "register" or "unregister"
	Client *Client
}

// Hub fans change events from the redis feed out to the websocket clients
// watching each room.
type Hub struct {
	messageChan chan HubMessage

	// map[roomID]set of clients
	rooms   map[uint]map[*Client]bool
	roomsMu sync.RWMutex

	state repository.StateRepository

	stop     chan struct{}
	stopOnce sync.Once
}

// NewHub creates a Hub reading from the given state repository.
func NewHub(state repository.StateRepository) *Hub {
	if state == nil {
		panic("StateRepository cannot be nil for Hub")
	}
	return &Hub{
		messageChan: make(chan HubMessage, 512),
		rooms:       make(map[uint]map[*Client]bool),
		state:       state,
		stop:        make(chan struct{}),
	}
}

// Run subscribes to the change feed and serves register/unregister requests
// until ctx is cancelled or Stop is called. All clients are closed on return.
func (h *Hub) Run(ctx context.Context) error {
	log := logrus.WithField("component", "hub")

	stream, err := h.state.SubscribeChanges(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to change feed: %w", err)
	}
	defer func() {
		h.Stop()
		if err := stream.Close(); err != nil {
			log.WithError(err).Warn("Failed to close change stream")
		}
		h.closeAll()
		log.Info("Hub stopped")
	}()

	log.Info("Hub is running")
	changes := stream.Changes()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.stop:
			return nil
		case msg := <-h.messageChan:
			switch msg.Type {
			case "register":
				h.registerClient(msg.Client)
			case "unregister":
				h.unregisterClient(msg.Client)
			default:
				log.Warnf("Hub: received unknown message type: %s", msg.Type)
			}
		case change, ok := <-changes:
			if !ok {
				return fmt.Errorf("change feed closed")
			}
			h.publish(change.RoomID, change.Event)
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Register queues a client for registration. It reports false when the hub
// is not accepting requests.
func (h *Hub) Register(c *Client) bool {
	return h.QueueMessage(HubMessage{Type: "register", Client: c})
}

// QueueMessage enqueues a control message without blocking.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case <-h.stop:
		return false
	default:
	}
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// GetActiveRoomIDs returns the rooms with at least one connected client, ascending.
func (h *Hub) GetActiveRoomIDs() []uint {
	h.roomsMu.RLock()
	ids := make([]uint, 0, len(h.rooms))
	for id := range h.rooms {
		ids = append(ids, id)
	}
	h.roomsMu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ClientCount returns the number of clients watching roomID.
func (h *Hub) ClientCount(roomID uint) int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": client.RoomID(), "user_id": client.UserID()})

	h.roomsMu.Lock()
	if _, ok := h.rooms[client.RoomID()]; !ok {
		h.rooms[client.RoomID()] = make(map[*Client]bool)
	}
	h.rooms[client.RoomID()][client] = true
	h.roomsMu.Unlock()

	logCtx.Info("Client registered to Hub")
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{"room_id": client.RoomID(), "user_id": client.UserID()})

	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()

	roomClients, ok := h.rooms[client.RoomID()]
	if !ok || !roomClients[client] {
		logCtx.Debug("Client already unregistered")
		return
	}
	delete(roomClients, client)
	close(client.send)
	if len(roomClients) == 0 {
		delete(h.rooms, client.RoomID())
		logCtx.Info("Room empty, removed from Hub")
	}
	logCtx.Info("Client unregistered from Hub")
}

func (h *Hub) closeAll() {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()
	for roomID, clients := range h.rooms {
		for c := range clients {
			close(c.send)
		}
		delete(h.rooms, roomID)
	}
}

// publish sends one change event to every client of the room. Slow clients
// whose buffer is full miss the event.
func (h *Hub) publish(roomID uint, ev domain.ChangeEvent) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "event": ev.Type, "participant_id": ev.Record.ID})

	payload, err := json.Marshal(ev)
	if err != nil {
		logCtx.WithError(err).Error("Failed to marshal change event")
		return
	}

	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	roomClients := h.rooms[roomID]
	if len(roomClients) == 0 {
		return
	}
	logCtx.WithField("recipient_count", len(roomClients)).Debug("Broadcasting change event")
	for client := range roomClients {
		select {
		case client.send <- payload:
		default:
			logCtx.WithField("receiver_user_id", client.UserID()).Warn("Client send channel full, skipping event")
		}
	}
}
