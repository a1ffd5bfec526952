package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aura-board/internal/domain"
	"aura-board/internal/repository"
	"aura-board/internal/repository/mocks"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	ch     chan repository.RoomChange
	closed chan struct{}
}

func newFakeStream() *fakeStream {
	return &fakeStream{ch: make(chan repository.RoomChange, 8), closed: make(chan struct{})}
}

func (s *fakeStream) Changes() <-chan repository.RoomChange { return s.ch }

func (s *fakeStream) Close() error {
	close(s.closed)
	return nil
}

type hubFixture struct {
	hub    *Hub
	stream *fakeStream
	server *httptest.Server
	done   chan error
}

func startHub(t *testing.T) *hubFixture {
	t.Helper()
	stream := newFakeStream()
	state := new(mocks.StateRepository)
	state.On("SubscribeChanges", mock.Anything).Return(stream, nil).Once()

	h := NewHub(state)
	done := make(chan error, 1)
	go func() { done <- h.Run(context.Background()) }()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		roomID := uint(1)
		if r.URL.Query().Get("room") == "2" {
			roomID = 2
		}
		c := NewClient(h, conn, roomID, 7)
		h.Register(c)
		c.Run()
	}))

	f := &hubFixture{hub: h, stream: stream, server: srv, done: done}
	t.Cleanup(func() {
		h.Stop()
		srv.Close()
	})
	return f
}

func (f *hubFixture) dial(t *testing.T, room string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?room=" + room
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *hubFixture) waitClients(t *testing.T, roomID uint, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return f.hub.ClientCount(roomID) == n }, 2*time.Second, 10*time.Millisecond)
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.ChangeEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev domain.ChangeEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHub_FansOutToRoomClients(t *testing.T) {
	f := startHub(t)
	a := f.dial(t, "1")
	b := f.dial(t, "1")
	other := f.dial(t, "2")
	f.waitClients(t, 1, 2)
	f.waitClients(t, 2, 1)

	f.stream.ch <- repository.RoomChange{RoomID: 1, Event: domain.ChangeEvent{
		Type:   domain.ChangeUpdate,
		Record: domain.Participant{ID: 5, RoomID: 1, Name: "Ada", Position: 75, Value: 500_000_000},
	}}

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		assert.Equal(t, domain.ChangeUpdate, ev.Type)
		assert.Equal(t, uint(5), ev.Record.ID)
		assert.Equal(t, int64(500_000_000), ev.Record.Value)
	}

	require.NoError(t, other.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "room 2 must not see room 1 events")
}

func TestHub_ActiveRoomsTrackConnections(t *testing.T) {
	f := startHub(t)
	assert.Empty(t, f.hub.GetActiveRoomIDs())

	c2 := f.dial(t, "2")
	f.dial(t, "1")
	f.waitClients(t, 1, 1)
	f.waitClients(t, 2, 1)
	assert.Equal(t, []uint{1, 2}, f.hub.GetActiveRoomIDs())

	require.NoError(t, c2.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	c2.Close()
	f.waitClients(t, 2, 0)
	assert.Equal(t, []uint{1}, f.hub.GetActiveRoomIDs())
}

func TestHub_StopClosesFeedAndClients(t *testing.T) {
	f := startHub(t)
	conn := f.dial(t, "1")
	f.waitClients(t, 1, 1)

	f.hub.Stop()
	select {
	case err := <-f.done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	select {
	case <-f.stream.closed:
	default:
		t.Fatal("change stream not closed")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.False(t, f.hub.Register(&Client{}), "stopped hub accepts no clients")
}

func TestHub_SubscribeFailure(t *testing.T) {
	state := new(mocks.StateRepository)
	state.On("SubscribeChanges", mock.Anything).Return(nil, assert.AnError).Once()

	err := NewHub(state).Run(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
