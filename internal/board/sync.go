package board

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"aura-board/internal/domain"

	"github.com/sirupsen/logrus"
)

// RemoteStore is the hosted backend as seen by the board: CRUD on a room's
// participants plus a change feed.
type RemoteStore interface {
	Insert(ctx context.Context, roomID uint, name, imageURL string) (*domain.Participant, error)
	Update(ctx context.Context, id uint, position float64, value int64) (*domain.Participant, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, roomID uint) ([]domain.Participant, error)
	Subscribe(ctx context.Context, roomID uint, handler func(domain.ChangeEvent)) (Subscription, error)
}

// Subscription is a live change feed.
type Subscription interface {
	Unsubscribe() error
}

// DefaultRemoteTimeout bounds every outbound remote call.
const DefaultRemoteTimeout = 10 * time.Second

// SyncBridge keeps the EntityStore consistent with one room of the remote
// store. Inbound methods must run on the board loop; outbound calls are safe
// from any goroutine because they never touch the store.
type SyncBridge struct {
	store   *EntityStore
	remote  RemoteStore
	roomID  uint
	timeout time.Duration
	log     *logrus.Entry

	// background writes; shared with the owning board when set
	inflight *writeTracker
}

// writeTracker counts background writes. Unlike a sync.WaitGroup, writes may
// start while another goroutine is waiting for the count to drop to zero.
type writeTracker struct {
	mu   sync.Mutex
	n    int
	idle chan struct{} // closed while n == 0
}

func (w *writeTracker) start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.n == 0 {
		w.idle = make(chan struct{})
	}
	w.n++
}

func (w *writeTracker) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.n--
	if w.n == 0 {
		close(w.idle)
	}
}

// drained returns a channel that is closed once no write is in flight.
func (w *writeTracker) drained() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.n == 0 {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return w.idle
}

// NewSyncBridge creates a bridge for roomID.
func NewSyncBridge(store *EntityStore, remote RemoteStore, roomID uint, timeout time.Duration, log *logrus.Entry) *SyncBridge {
	if store == nil || remote == nil {
		panic("EntityStore and RemoteStore must be non-nil for SyncBridge")
	}
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	if log == nil {
		log = logrus.WithField("component", "sync")
	}
	return &SyncBridge{
		store:    store,
		remote:   remote,
		roomID:   roomID,
		timeout:  timeout,
		log:      log.WithField("room_id", roomID),
		inflight: new(writeTracker),
	}
}

// RoomID returns the room this bridge serves.
func (b *SyncBridge) RoomID() uint { return b.roomID }

// Wait blocks until the background writes started so far have finished.
func (b *SyncBridge) Wait() { <-b.inflight.drained() }

// RemoteID formats a remote participant id as an entity id.
func RemoteID(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func parseRemoteID(id string) (uint, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// EntityFromRecord converts a remote record into a remote-backed entity.
func EntityFromRecord(r domain.Participant) Entity {
	return Entity{
		ID:       RemoteID(r.ID),
		Name:     r.Name,
		Image:    r.ImageURL,
		Position: clampPosition(r.Position),
		Score:    clampScore(r.Value),
		Origin:   OriginRemote,
	}
}

// --- outbound ---

// Persist writes the settled (position, score) of e. Failures are logged and
// not retried: local state stays authoritative until the next sync.
func (b *SyncBridge) Persist(e Entity) {
	id, ok := parseRemoteID(e.ID)
	if !ok {
		b.log.WithField("entity_id", e.ID).Warn("Persist skipped: entity has no remote id")
		return
	}
	b.inflight.start()
	go func() {
		defer b.inflight.finish()
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()
		if _, err := b.remote.Update(ctx, id, e.Position, e.Score); err != nil {
			b.log.WithError(err).WithField("entity_id", e.ID).Warn("Background persist failed")
			return
		}
		b.log.WithFields(logrus.Fields{"entity_id": e.ID, "value": e.Score}).Debug("Entity persisted")
	}()
}

// CreateRemote inserts a participant and returns the stored record. It blocks.
func (b *SyncBridge) CreateRemote(name, image string) (*domain.Participant, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	rec, err := b.remote.Insert(ctx, b.roomID, name, image)
	if err != nil {
		b.log.WithError(err).WithField("name", name).Error("Remote create failed")
		return nil, err
	}
	if rec == nil || rec.ID == 0 {
		return nil, ErrRemoteRejected
	}
	return rec, nil
}

// DeleteRemote removes a participant remotely. It blocks.
func (b *SyncBridge) DeleteRemote(entityID string) error {
	id, ok := parseRemoteID(entityID)
	if !ok {
		return ErrNotFound
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.remote.Delete(ctx, id); err != nil {
		b.log.WithError(err).WithField("entity_id", entityID).Error("Remote delete failed")
		return err
	}
	return nil
}

// Load lists the room's records as remote-backed entities, highest score first.
func (b *SyncBridge) Load(ctx context.Context) ([]Entity, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	recs, err := b.remote.List(ctx, b.roomID)
	if err != nil {
		b.log.WithError(err).Error("Failed to load room participants")
		return nil, err
	}
	return EntitiesFromRecords(recs), nil
}

// EntitiesFromRecords converts a listing into entities.
func EntitiesFromRecords(recs []domain.Participant) []Entity {
	out := make([]Entity, 0, len(recs))
	for _, r := range recs {
		out = append(out, EntityFromRecord(r))
	}
	return out
}

// --- inbound (board loop only) ---

// ApplyEvent merges one change feed event into the store. Duplicate inserts,
// updates and deletes for unknown ids, and events for other rooms are
// dropped. It reports whether the store changed.
func (b *SyncBridge) ApplyEvent(ev domain.ChangeEvent) bool {
	if ev.Record.RoomID != 0 && ev.Record.RoomID != b.roomID {
		return false
	}
	id := RemoteID(ev.Record.ID)
	logCtx := b.log.WithFields(logrus.Fields{"entity_id": id, "event": ev.Type})

	switch ev.Type {
	case domain.ChangeInsert:
		if _, exists := b.store.Get(id); exists {
			logCtx.Debug("Duplicate insert suppressed")
			return false
		}
		if err := b.store.Add(EntityFromRecord(ev.Record)); err != nil {
			logCtx.WithError(err).Warn("Inbound insert rejected by store")
			return false
		}
		return true
	case domain.ChangeUpdate:
		if _, exists := b.store.Get(id); !exists {
			return false
		}
		e := EntityFromRecord(ev.Record)
		p := Patch{Image: &e.Image, Position: &e.Position, Score: &e.Score}
		if e.Name != "" {
			p.Name = &e.Name
		}
		if err := b.store.Update(id, p); err != nil {
			logCtx.WithError(err).Warn("Inbound update rejected by store")
			return false
		}
		return true
	case domain.ChangeDelete:
		if err := b.store.Remove(id); err != nil {
			return false
		}
		return true
	}
	logCtx.Warn("Unknown change event type")
	return false
}

// Confirm finishes an optimistic create: the temporary entity takes the
// remote id. It returns the id the entity ends up with.
func (b *SyncBridge) Confirm(tempID string, rec domain.Participant) string {
	remoteID := RemoteID(rec.ID)
	logCtx := b.log.WithFields(logrus.Fields{"temp_id": tempID, "entity_id": remoteID})

	local, ok := b.store.Get(tempID)
	if !ok {
		// deleted while the create was in flight; don't leave an orphan behind
		logCtx.Info("Entity removed before create confirmed, deleting remote record")
		b.inflight.start()
		go func() {
			defer b.inflight.finish()
			if err := b.DeleteRemote(remoteID); err != nil && !errors.Is(err, ErrNotFound) {
				logCtx.WithError(err).Warn("Failed to delete orphaned remote record")
			}
		}()
		return ""
	}

	if _, echoed := b.store.Get(remoteID); echoed {
		// the feed delivered our own insert first; keep that copy
		_ = b.store.Remove(tempID)
		return remoteID
	}

	if err := b.store.ReplaceID(tempID, remoteID); err != nil {
		logCtx.WithError(err).Warn("Failed to replace temporary id")
		return tempID
	}
	_ = b.store.setOrigin(remoteID, OriginRemote)

	// moved or nudged while pending: push the local value
	if local.Score != rec.Value {
		if e, ok := b.store.Get(remoteID); ok {
			b.Persist(e)
		}
	}
	return remoteID
}
