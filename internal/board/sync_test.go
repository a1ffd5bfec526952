package board

import (
	"context"
	"errors"
	"testing"
	"time"

	"aura-board/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRoom uint = 3

func newBridgeFixture(t *testing.T) (*EntityStore, *SyncBridge, *fakeRemote) {
	t.Helper()
	s := NewEntityStore()
	r := newFakeRemote()
	return s, NewSyncBridge(s, r, testRoom, time.Second, nil), r
}

func record(id uint, name string, value int64) domain.Participant {
	return domain.Participant{ID: id, RoomID: testRoom, Name: name, Value: value, Position: ScoreToPosition(value)}
}

func TestSyncBridge_ApplyInsert_SuppressesDuplicates(t *testing.T) {
	s, b, _ := newBridgeFixture(t)
	ev := domain.ChangeEvent{Type: domain.ChangeInsert, Record: record(1, "Ada", 0)}

	assert.True(t, b.ApplyEvent(ev))
	assert.False(t, b.ApplyEvent(ev))
	assert.Equal(t, 1, s.Len())

	e, ok := s.Get("1")
	require.True(t, ok)
	assert.Equal(t, OriginRemote, e.Origin)
}

func TestSyncBridge_ApplyUpdate(t *testing.T) {
	s, b, _ := newBridgeFixture(t)
	require.True(t, b.ApplyEvent(domain.ChangeEvent{Type: domain.ChangeInsert, Record: record(1, "Ada", 0)}))

	upd := domain.ChangeEvent{Type: domain.ChangeUpdate, Record: record(1, "Ada", 500_000_000)}
	assert.True(t, b.ApplyEvent(upd))
	first := s.All()
	assert.True(t, b.ApplyEvent(upd), "reapplying is harmless")
	assert.Equal(t, first, s.All())
	assert.Equal(t, 75.0, first[0].Position)

	assert.False(t, b.ApplyEvent(domain.ChangeEvent{Type: domain.ChangeUpdate, Record: record(2, "Bob", 1)}), "unknown ids are ignored")
	assert.Equal(t, 1, s.Len())
}

func TestSyncBridge_ApplyDelete(t *testing.T) {
	s, b, _ := newBridgeFixture(t)
	require.True(t, b.ApplyEvent(domain.ChangeEvent{Type: domain.ChangeInsert, Record: record(1, "Ada", 0)}))
	require.NoError(t, s.Select("1"))

	assert.True(t, b.ApplyEvent(domain.ChangeEvent{Type: domain.ChangeDelete, Record: domain.Participant{ID: 1, RoomID: testRoom}}))
	assert.Equal(t, 0, s.Len())
	_, selected := s.Selected()
	assert.False(t, selected)

	assert.False(t, b.ApplyEvent(domain.ChangeEvent{Type: domain.ChangeDelete, Record: domain.Participant{ID: 1}}))
}

func TestSyncBridge_ApplyEvent_OtherRoomIgnored(t *testing.T) {
	s, b, _ := newBridgeFixture(t)
	rec := record(1, "Ada", 0)
	rec.RoomID = testRoom + 1
	assert.False(t, b.ApplyEvent(domain.ChangeEvent{Type: domain.ChangeInsert, Record: rec}))
	assert.Equal(t, 0, s.Len())
}

func TestSyncBridge_Persist(t *testing.T) {
	s, b, r := newBridgeFixture(t)
	r.seed(record(1, "Ada", 0))
	require.True(t, b.ApplyEvent(domain.ChangeEvent{Type: domain.ChangeInsert, Record: record(1, "Ada", 0)}))

	score := int64(250)
	require.NoError(t, s.Update("1", Patch{Score: &score}))
	e, _ := s.Get("1")
	b.Persist(e)

	select {
	case rec := <-r.updates:
		assert.Equal(t, uint(1), rec.ID)
		assert.Equal(t, int64(250), rec.Value)
		assert.Equal(t, e.Position, rec.Position)
	case <-time.After(time.Second):
		t.Fatal("persist did not reach the remote store")
	}
}

func TestSyncBridge_Persist_TemporaryIDSkipped(t *testing.T) {
	_, b, r := newBridgeFixture(t)
	b.Persist(Entity{ID: "tmp-1", Name: "Ada"})
	select {
	case <-r.updates:
		t.Fatal("temporary ids must not be persisted")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSyncBridge_CreateRemote(t *testing.T) {
	_, b, r := newBridgeFixture(t)
	rec, err := b.CreateRemote("Ada", "https://img/ada.jpg")
	require.NoError(t, err)
	assert.Equal(t, testRoom, rec.RoomID)
	assert.Equal(t, 50.0, rec.Position)
	assert.Equal(t, int64(0), rec.Value)

	r.insertErr = errors.New("boom")
	_, err = b.CreateRemote("Bob", "")
	assert.EqualError(t, err, "boom")
}

func TestSyncBridge_Load(t *testing.T) {
	_, b, r := newBridgeFixture(t)
	r.seed(record(1, "Ada", 5), record(2, "Bob", 100), domain.Participant{ID: 9, RoomID: 99, Name: "elsewhere"})

	entities, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, ids(entities))
	for _, e := range entities {
		assert.Equal(t, OriginRemote, e.Origin)
	}
}

func TestSyncBridge_Confirm_ReplacesTemporaryID(t *testing.T) {
	s, b, r := newBridgeFixture(t)
	require.NoError(t, s.Add(Entity{ID: "tmp-1", Name: "Ada"}))

	id := b.Confirm("tmp-1", record(42, "Ada", 0))
	assert.Equal(t, "42", id)
	e, ok := s.Get("42")
	require.True(t, ok)
	assert.Equal(t, OriginRemote, e.Origin)
	_, ok = s.Get("tmp-1")
	assert.False(t, ok)

	select {
	case <-r.updates:
		t.Fatal("unchanged value needs no persist")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSyncBridge_Confirm_PushesLocalChanges(t *testing.T) {
	s, b, r := newBridgeFixture(t)
	r.seed(record(42, "Ada", 0))
	require.NoError(t, s.Add(Entity{ID: "tmp-1", Name: "Ada"}))
	score := int64(1_000_000)
	require.NoError(t, s.Update("tmp-1", Patch{Score: &score}))

	b.Confirm("tmp-1", record(42, "Ada", 0))

	select {
	case rec := <-r.updates:
		assert.Equal(t, int64(1_000_000), rec.Value)
	case <-time.After(time.Second):
		t.Fatal("local value was not pushed after confirmation")
	}
}

func TestSyncBridge_Confirm_EchoArrivedFirst(t *testing.T) {
	s, b, _ := newBridgeFixture(t)
	require.NoError(t, s.Add(Entity{ID: "tmp-1", Name: "Ada"}))
	require.True(t, b.ApplyEvent(domain.ChangeEvent{Type: domain.ChangeInsert, Record: record(42, "Ada", 0)}))
	require.Equal(t, 2, s.Len())

	assert.Equal(t, "42", b.Confirm("tmp-1", record(42, "Ada", 0)))
	assert.Equal(t, []string{"42"}, ids(s.All()))
}

func TestSyncBridge_Confirm_DeletedWhilePending(t *testing.T) {
	s, b, r := newBridgeFixture(t)
	r.seed(record(42, "Ada", 0))

	assert.Equal(t, "", b.Confirm("tmp-gone", record(42, "Ada", 0)))
	assert.Equal(t, 0, s.Len())

	select {
	case id := <-r.deletes:
		assert.Equal(t, uint(42), id)
	case <-time.After(time.Second):
		t.Fatal("orphaned remote record was not deleted")
	}
}

func TestWriteTracker_StartWhileWaiting(t *testing.T) {
	var w writeTracker
	closed := func(ch <-chan struct{}) bool {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}

	assert.True(t, closed(w.drained()), "idle tracker is drained")

	w.start()
	waiting := w.drained()
	assert.False(t, closed(waiting))

	// a second write starts while someone waits on the first
	w.start()
	w.finish()
	assert.False(t, closed(waiting))
	w.finish()
	assert.True(t, closed(waiting))

	w.start()
	assert.False(t, closed(w.drained()))
	w.finish()
	assert.True(t, closed(w.drained()))
}
