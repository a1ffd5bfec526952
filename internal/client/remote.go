package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"aura-board/internal/board"
	"aura-board/internal/domain"

	"github.com/gorilla/websocket"
)

// RemoteStore implements board.RemoteStore against the backend.
type RemoteStore struct {
	c *Client
}

var _ board.RemoteStore = (*RemoteStore)(nil)

// NewRemoteStore creates a RemoteStore sharing c's session.
func NewRemoteStore(c *Client) *RemoteStore {
	return &RemoteStore{c: c}
}

type insertRequest struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url,omitempty"`
}

type updateRequest struct {
	Position float64 `json:"position"`
	Value    int64   `json:"value"`
}

// Insert creates a participant in roomID.
func (s *RemoteStore) Insert(ctx context.Context, roomID uint, name, imageURL string) (*domain.Participant, error) {
	var p domain.Participant
	path := fmt.Sprintf("/api/rooms/%d/participants", roomID)
	if err := s.c.do(ctx, http.MethodPost, path, insertRequest{Name: name, ImageURL: imageURL}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update stores a settled score.
func (s *RemoteStore) Update(ctx context.Context, id uint, position float64, value int64) (*domain.Participant, error) {
	var p domain.Participant
	path := fmt.Sprintf("/api/participants/%d", id)
	if err := s.c.do(ctx, http.MethodPatch, path, updateRequest{Position: position, Value: value}, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete removes a participant.
func (s *RemoteStore) Delete(ctx context.Context, id uint) error {
	return s.c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/participants/%d", id), nil, nil)
}

// List returns roomID's participants, highest value first.
func (s *RemoteStore) List(ctx context.Context, roomID uint) ([]domain.Participant, error) {
	var list []domain.Participant
	if err := s.c.do(ctx, http.MethodGet, fmt.Sprintf("/api/rooms/%d/participants", roomID), nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Subscribe opens roomID's change feed. handler runs on the feed goroutine,
// one event at a time. The feed ends on Unsubscribe, on ctx cancellation or
// when the connection drops.
func (s *RemoteStore) Subscribe(ctx context.Context, roomID uint, handler func(domain.ChangeEvent)) (board.Subscription, error) {
	u := *s.c.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + fmt.Sprintf("/ws/room/%d", roomID)

	header := http.Header{}
	if token := s.c.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := s.c.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusSwitchingProtocols {
				return nil, decodeAPIError(resp)
			}
		}
		return nil, fmt.Errorf("%w: dial %s: %v", board.ErrRemoteUnavailable, redact(u), err)
	}

	feedCtx, cancel := context.WithCancel(ctx)
	sub := &feedSubscription{conn: conn, cancel: cancel}
	log := s.c.log.WithField("room_id", roomID)

	go func() {
		<-feedCtx.Done()
		sub.close()
	}()
	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if feedCtx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					log.WithError(err).Warn("Change feed disconnected")
				}
				return
			}
			var ev domain.ChangeEvent
			if err := json.Unmarshal(data, &ev); err != nil || !ev.Valid() {
				log.WithField("payload_size", len(data)).Warn("Dropping malformed change event")
				continue
			}
			handler(ev)
		}
	}()
	return sub, nil
}

type feedSubscription struct {
	conn   *websocket.Conn
	cancel context.CancelFunc
	once   sync.Once
}

// Unsubscribe stops the feed without waiting for the reader to drain.
func (s *feedSubscription) Unsubscribe() error {
	s.cancel()
	return nil
}

func (s *feedSubscription) close() {
	s.once.Do(func() {
		_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = s.conn.Close()
	})
}

func redact(u url.URL) string {
	u.RawQuery = ""
	return u.String()
}
