package board

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"aura-board/internal/domain"

	"github.com/sirupsen/logrus"
)

// MessageType tags a Board inbox message.
type MessageType string

const (
	MsgLocalAdd            MessageType = "local-add"
	MsgLocalRemove         MessageType = "local-remove"
	MsgLocalSelect         MessageType = "local-select"
	MsgLocalClearSelection MessageType = "local-clear-selection"
	MsgLocalDragBegin      MessageType = "local-drag-begin"
	MsgLocalDragMove       MessageType = "local-drag-move"
	MsgLocalDragEnd        MessageType = "local-drag-end"
	MsgLocalAdjust         MessageType = "local-adjust"
	MsgLocalResize         MessageType = "local-resize"
	MsgSnapshot            MessageType = "snapshot"
	MsgRanking             MessageType = "ranking"
	MsgJoinRoom            MessageType = "join-room"
	MsgLeaveRoom           MessageType = "leave-room"

	MsgRemoteInsert  MessageType = "remote-insert"
	MsgRemoteUpdate  MessageType = "remote-update"
	MsgRemoteDelete  MessageType = "remote-delete"
	MsgRemoteCreated MessageType = "remote-created"
	MsgRemoteDeleted MessageType = "remote-deleted"
	MsgRemoteLoaded  MessageType = "remote-loaded"
	MsgRemoteFailed  MessageType = "remote-failed"
)

// Message is the unit of work of the board loop. Only the fields relevant to
// Type are set.
type Message struct {
	Type     MessageType
	EntityID string
	Name     string
	Image    string
	PointerX float64
	Width    float64
	Delta    int64
	RoomID   uint
	Event    domain.ChangeEvent
	Record   *domain.Participant
	Entities []Entity
	Err      error
	Reply    chan Result

	gen    uint64 // room session the message belongs to
	bridge *SyncBridge
	sub    Subscription
	cancel context.CancelFunc
}

// Result is the reply to a Message.
type Result struct {
	EntityID string
	Entities []Entity
	Rows     []RankedEntity
	Selected string
	RoomID   uint
	Err      error

	gen uint64
}

// Options configures a Board.
type Options struct {
	Log *logrus.Entry
	// RemoteTimeout bounds each remote call. Defaults to DefaultRemoteTimeout.
	RemoteTimeout time.Duration
	InboxSize     int
	// OnRankingChange is called on the board goroutine after every mutation.
	OnRankingChange func([]RankedEntity)
	// NewTempID generates temporary ids for optimistic adds.
	NewTempID func() string
}

// Board owns an EntityStore and serializes every mutation through one
// goroutine: local gestures, remote completions and change feed events alike.
type Board struct {
	store   *EntityStore
	drag    *DragController
	ranking *RankingView
	remote  RemoteStore

	// room session, loop only
	gen     uint64
	joining bool
	roomID  uint
	bridge  *SyncBridge
	sub     Subscription
	cancel  context.CancelFunc
	pending []domain.ChangeEvent

	// background remote writes of every room session
	persists writeTracker

	inbox   chan Message
	done    chan struct{}
	timeout time.Duration
	newID   func() string
	log     *logrus.Entry
}

// NewBoard creates a board. remote may be nil, in which case the board stays
// local-only and JoinRoom fails.
func NewBoard(remote RemoteStore, opts Options) *Board {
	if opts.Log == nil {
		opts.Log = logrus.WithField("component", "board")
	}
	if opts.InboxSize <= 0 {
		opts.InboxSize = 256
	}
	if opts.RemoteTimeout <= 0 {
		opts.RemoteTimeout = DefaultRemoteTimeout
	}
	if opts.NewTempID == nil {
		opts.NewTempID = newTempID
	}
	b := &Board{
		store:   NewEntityStore(),
		remote:  remote,
		inbox:   make(chan Message, opts.InboxSize),
		done:    make(chan struct{}),
		timeout: opts.RemoteTimeout,
		newID:   opts.NewTempID,
		log:     opts.Log,
	}
	b.drag = NewDragController(b.store, boardPersister{b}, opts.Log.WithField("component", "drag"))
	b.ranking = NewRankingView(b.store)
	if opts.OnRankingChange != nil {
		b.ranking.OnChange(opts.OnRankingChange)
	}
	return b
}

func newTempID() string {
	return fmt.Sprintf("tmp-%d-%06x", time.Now().UnixNano(), rand.Intn(1<<24))
}

// boardPersister routes drag and adjust results to the current room, if any.
type boardPersister struct{ b *Board }

func (p boardPersister) Persist(e Entity) {
	if p.b.bridge != nil {
		p.b.bridge.Persist(e)
	}
}

// Run processes the inbox until ctx is cancelled. It must be called once.
func (b *Board) Run(ctx context.Context) {
	b.log.Info("Board loop started")
	defer func() {
		b.teardownRoom()
		close(b.done)
		b.log.Info("Board loop stopped")
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.inbox:
			b.handle(msg)
		}
	}
}

func (b *Board) handle(msg Message) {
	switch msg.Type {
	case MsgLocalAdd:
		b.handleAdd(msg)
	case MsgLocalRemove:
		b.handleRemove(msg)
	case MsgLocalSelect:
		reply(msg, Result{Err: b.store.Select(msg.EntityID)})
	case MsgLocalClearSelection:
		b.store.ClearSelection()
		reply(msg, Result{})
	case MsgLocalDragBegin:
		b.drag.Begin(msg.EntityID, msg.PointerX)
		reply(msg, Result{})
	case MsgLocalDragMove:
		b.drag.Move(msg.PointerX)
		reply(msg, Result{})
	case MsgLocalDragEnd:
		id, _ := b.drag.ActiveEntity()
		b.drag.End()
		reply(msg, Result{EntityID: id})
	case MsgLocalAdjust:
		reply(msg, Result{EntityID: msg.EntityID, Err: b.drag.Adjust(msg.EntityID, msg.Delta)})
	case MsgLocalResize:
		b.drag.SetLineWidth(msg.Width)
		reply(msg, Result{})
	case MsgSnapshot:
		sel, _ := b.store.Selected()
		reply(msg, Result{Entities: b.store.All(), Selected: sel, RoomID: b.roomID})
	case MsgRanking:
		reply(msg, Result{Rows: b.ranking.Rows()})
	case MsgJoinRoom:
		b.teardownRoom()
		b.gen++
		b.joining = true
		b.roomID = msg.RoomID
		reply(msg, Result{RoomID: msg.RoomID, gen: b.gen})
	case MsgLeaveRoom:
		b.teardownRoom()
		b.gen++
		reply(msg, Result{})
	case MsgRemoteLoaded:
		b.handleLoaded(msg)
	case MsgRemoteFailed:
		if msg.gen == b.gen && b.joining {
			b.joining = false
			b.roomID = 0
			b.pending = nil
		}
	case MsgRemoteInsert, MsgRemoteUpdate, MsgRemoteDelete:
		b.handleEvent(msg)
	case MsgRemoteCreated:
		b.handleCreated(msg)
	case MsgRemoteDeleted:
		b.handleDeleted(msg)
	default:
		b.log.Warnf("Board: received unknown message type: %s", msg.Type)
		reply(msg, Result{Err: fmt.Errorf("board: unknown message type %q", msg.Type)})
	}
}

func reply(msg Message, r Result) {
	if msg.Reply == nil {
		return
	}
	select {
	case msg.Reply <- r:
	default:
	}
}

func (b *Board) handleAdd(msg Message) {
	if strings.TrimSpace(msg.Name) == "" {
		reply(msg, Result{Err: ErrInvalidName})
		return
	}
	if b.store.Len() >= Capacity {
		reply(msg, Result{Err: ErrCapacityExceeded})
		return
	}
	tempID := b.newID()
	if err := b.store.Add(Entity{ID: tempID, Name: msg.Name, Image: msg.Image, Origin: OriginLocal}); err != nil {
		reply(msg, Result{Err: err})
		return
	}
	if b.bridge == nil {
		reply(msg, Result{EntityID: tempID})
		return
	}

	bridge, gen := b.bridge, b.gen
	go func() {
		rec, err := bridge.CreateRemote(msg.Name, msg.Image)
		b.post(Message{Type: MsgRemoteCreated, EntityID: tempID, Record: rec, Err: err, Reply: msg.Reply, gen: gen})
	}()
}

func (b *Board) handleCreated(msg Message) {
	if msg.gen != b.gen || b.bridge == nil {
		// room left while the create was in flight; the record lives on remotely
		if msg.Err != nil {
			reply(msg, Result{Err: msg.Err})
			return
		}
		reply(msg, Result{EntityID: RemoteID(msg.Record.ID)})
		return
	}
	if msg.Err != nil {
		_ = b.store.Remove(msg.EntityID)
		reply(msg, Result{Err: msg.Err})
		return
	}
	id := b.bridge.Confirm(msg.EntityID, *msg.Record)
	if id == "" {
		reply(msg, Result{Err: ErrNotFound})
		return
	}
	reply(msg, Result{EntityID: id})
}

func (b *Board) handleRemove(msg Message) {
	e, ok := b.store.Get(msg.EntityID)
	if !ok {
		reply(msg, Result{Err: ErrNotFound})
		return
	}
	if e.Origin == OriginLocal || b.bridge == nil {
		reply(msg, Result{EntityID: e.ID, Err: b.store.Remove(e.ID)})
		return
	}

	bridge, gen := b.bridge, b.gen
	go func() {
		err := bridge.DeleteRemote(e.ID)
		b.post(Message{Type: MsgRemoteDeleted, EntityID: e.ID, Err: err, Reply: msg.Reply, gen: gen})
	}()
}

func (b *Board) handleDeleted(msg Message) {
	if msg.Err != nil {
		reply(msg, Result{EntityID: msg.EntityID, Err: msg.Err})
		return
	}
	if msg.gen == b.gen {
		// the feed may already have removed it
		_ = b.store.Remove(msg.EntityID)
	}
	reply(msg, Result{EntityID: msg.EntityID})
}

func (b *Board) handleLoaded(msg Message) {
	if msg.gen != b.gen || !b.joining {
		// superseded by another join or a leave
		msg.cancel()
		if msg.sub != nil {
			_ = msg.sub.Unsubscribe()
		}
		reply(msg, Result{Err: ErrNotInRoom})
		return
	}
	b.drag.Abort()
	b.store.Reset(msg.Entities)
	b.joining = false
	b.bridge = msg.bridge
	b.sub = msg.sub
	b.cancel = msg.cancel

	for _, ev := range b.pending {
		b.bridge.ApplyEvent(ev)
	}
	b.pending = nil

	b.log.WithFields(logrus.Fields{"room_id": b.roomID, "participants": b.store.Len()}).Info("Joined room")
	reply(msg, Result{RoomID: b.roomID, Entities: b.store.All()})
}

func (b *Board) handleEvent(msg Message) {
	if msg.gen != b.gen {
		return
	}
	if b.joining {
		b.pending = append(b.pending, msg.Event)
		return
	}
	if b.bridge != nil {
		b.bridge.ApplyEvent(msg.Event)
	}
}

// teardownRoom drops the subscription and any drag, and empties the board.
func (b *Board) teardownRoom() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	if b.sub != nil {
		if err := b.sub.Unsubscribe(); err != nil {
			b.log.WithError(err).WithField("room_id", b.roomID).Warn("Failed to unsubscribe from change feed")
		}
		b.sub = nil
	}
	if b.roomID != 0 && !b.joining {
		b.log.WithField("room_id", b.roomID).Info("Left room")
	}
	b.drag.Abort()
	b.bridge = nil
	b.joining = false
	b.roomID = 0
	b.pending = nil
	if b.store.Len() > 0 {
		b.store.Reset(nil)
	}
}

// post delivers an asynchronous continuation. It gives up once the loop stops.
func (b *Board) post(msg Message) {
	select {
	case b.inbox <- msg:
	case <-b.done:
	}
}

func (b *Board) call(ctx context.Context, msg Message) (Result, error) {
	msg.Reply = make(chan Result, 1)
	select {
	case b.inbox <- msg:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-b.done:
		return Result{}, ErrClosed
	}
	select {
	case r := <-msg.Reply:
		return r, r.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-b.done:
		return Result{}, ErrClosed
	}
}

// Add creates an entity at score 0. Inside a room the call returns once the
// remote store has confirmed the create, with the remote id.
func (b *Board) Add(ctx context.Context, name, image string) (string, error) {
	r, err := b.call(ctx, Message{Type: MsgLocalAdd, Name: name, Image: image})
	return r.EntityID, err
}

// Remove deletes an entity, remotely first when it is remote-backed.
func (b *Board) Remove(ctx context.Context, id string) error {
	_, err := b.call(ctx, Message{Type: MsgLocalRemove, EntityID: id})
	return err
}

func (b *Board) Select(ctx context.Context, id string) error {
	_, err := b.call(ctx, Message{Type: MsgLocalSelect, EntityID: id})
	return err
}

func (b *Board) ClearSelection(ctx context.Context) error {
	_, err := b.call(ctx, Message{Type: MsgLocalClearSelection})
	return err
}

func (b *Board) BeginDrag(ctx context.Context, id string, pointerX float64) error {
	_, err := b.call(ctx, Message{Type: MsgLocalDragBegin, EntityID: id, PointerX: pointerX})
	return err
}

func (b *Board) MoveDrag(ctx context.Context, pointerX float64) error {
	_, err := b.call(ctx, Message{Type: MsgLocalDragMove, PointerX: pointerX})
	return err
}

func (b *Board) EndDrag(ctx context.Context) error {
	_, err := b.call(ctx, Message{Type: MsgLocalDragEnd})
	return err
}

// Adjust nudges an entity's score by delta.
func (b *Board) Adjust(ctx context.Context, id string, delta int64) error {
	_, err := b.call(ctx, Message{Type: MsgLocalAdjust, EntityID: id, Delta: delta})
	return err
}

// SetLineWidth tells the drag controller how wide the rendered scale is.
func (b *Board) SetLineWidth(ctx context.Context, px float64) error {
	_, err := b.call(ctx, Message{Type: MsgLocalResize, Width: px})
	return err
}

// Snapshot returns the entities in insertion order and the selected id.
func (b *Board) Snapshot(ctx context.Context) ([]Entity, string, error) {
	r, err := b.call(ctx, Message{Type: MsgSnapshot})
	return r.Entities, r.Selected, err
}

// Ranking returns the current ranking, highest score first.
func (b *Board) Ranking(ctx context.Context) ([]RankedEntity, error) {
	r, err := b.call(ctx, Message{Type: MsgRanking})
	return r.Rows, err
}

// JoinRoom leaves the current room, subscribes to roomID's change feed and
// loads its participants. Events that arrive while loading are applied on
// top of the loaded set.
func (b *Board) JoinRoom(ctx context.Context, roomID uint) error {
	if b.remote == nil {
		return ErrRemoteUnavailable
	}
	r, err := b.call(ctx, Message{Type: MsgJoinRoom, RoomID: roomID})
	if err != nil {
		return err
	}
	gen := r.gen
	logCtx := b.log.WithField("room_id", roomID)

	subCtx, cancel := context.WithCancel(context.Background())
	handler := func(ev domain.ChangeEvent) {
		typ, ok := eventMessageType(ev.Type)
		if !ok {
			logCtx.WithField("event", ev.Type).Debug("Dropping unknown change event")
			return
		}
		select {
		case b.inbox <- Message{Type: typ, Event: ev, gen: gen}:
		case <-subCtx.Done():
		case <-b.done:
		}
	}

	fail := func(err error) error {
		cancel()
		b.post(Message{Type: MsgRemoteFailed, gen: gen})
		return err
	}

	sub, err := b.remote.Subscribe(subCtx, roomID, handler)
	if err != nil {
		logCtx.WithError(err).Error("Failed to subscribe to change feed")
		return fail(err)
	}
	bridge := NewSyncBridge(b.store, b.remote, roomID, b.timeout, b.log.WithField("component", "sync"))
	bridge.inflight = &b.persists
	entities, err := bridge.Load(ctx)
	if err != nil {
		_ = sub.Unsubscribe()
		return fail(err)
	}

	// Once enqueued the loop owns sub and cancel, so the hand-off must not
	// give up on ctx.
	loaded := Message{
		Type:     MsgRemoteLoaded,
		Entities: entities,
		Reply:    make(chan Result, 1),
		gen:      gen,
		bridge:   bridge,
		sub:      sub,
		cancel:   cancel,
	}
	select {
	case b.inbox <- loaded:
	case <-b.done:
		_ = sub.Unsubscribe()
		cancel()
		return ErrClosed
	}
	select {
	case r := <-loaded.Reply:
		return r.Err
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return ErrClosed
	}
}

// Flush waits for background writes (drag and adjust results, orphan
// cleanup) to finish or fail. Callers that exit right after a gesture use it
// so the write is not lost.
func (b *Board) Flush(ctx context.Context) error {
	select {
	case <-b.persists.drained():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LeaveRoom drops the room subscription and any drag in progress, and
// empties the board.
func (b *Board) LeaveRoom(ctx context.Context) error {
	_, err := b.call(ctx, Message{Type: MsgLeaveRoom})
	return err
}

func eventMessageType(t domain.ChangeType) (MessageType, bool) {
	switch t {
	case domain.ChangeInsert:
		return MsgRemoteInsert, true
	case domain.ChangeUpdate:
		return MsgRemoteUpdate, true
	case domain.ChangeDelete:
		return MsgRemoteDelete, true
	}
	return "", false
}
