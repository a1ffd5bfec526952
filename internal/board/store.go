package board

import (
	"strings"
)

// Origin tells whether an entity is backed by the remote store.
type Origin int

const (
	OriginLocal Origin = iota
	OriginRemote
)

func (o Origin) String() string {
	if o == OriginRemote {
		return "remote"
	}
	return "local"
}

// Entity is a participant on the board.
type Entity struct {
	ID       string
	Name     string
	Image    string
	Position float64
	Score    int64
	Origin   Origin
}

// Patch carries the fields of a partial update. Nil fields are left untouched.
type Patch struct {
	Name     *string
	Image    *string
	Position *float64
	Score    *int64
}

// ChangeKind describes a store mutation.
type ChangeKind int

const (
	EntityAdded ChangeKind = iota
	EntityUpdated
	EntityRemoved
	EntityRenamed // id replaced; OldID holds the previous one
	SelectionChanged
	StoreReset
)

// Change is delivered to store listeners after every mutation.
type Change struct {
	Kind  ChangeKind
	ID    string
	OldID string
}

// Listener receives store changes. Listeners run synchronously inside the mutation.
type Listener func(Change)

// EntityStore is the canonical in-memory view of who is on the board.
// It is not safe for concurrent use; the Board loop owns it.
type EntityStore struct {
	entities  []*Entity // insertion order
	selected  string
	listeners map[int]Listener
	order     []int
	nextSub   int
}

// NewEntityStore returns an empty store.
func NewEntityStore() *EntityStore {
	return &EntityStore{listeners: make(map[int]Listener)}
}

// Subscribe registers a listener and returns a function that removes it.
// Listeners are called in registration order.
func (s *EntityStore) Subscribe(l Listener) func() {
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	s.order = append(s.order, id)
	return func() {
		delete(s.listeners, id)
		for i, v := range s.order {
			if v == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
	}
}

func (s *EntityStore) notify(c Change) {
	for _, id := range append([]int(nil), s.order...) {
		if l, ok := s.listeners[id]; ok {
			l(c)
		}
	}
}

// Add appends an entity. Position is derived from the score.
func (s *EntityStore) Add(e Entity) error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrInvalidName
	}
	if len(s.entities) >= Capacity {
		return ErrCapacityExceeded
	}
	if s.index(e.ID) >= 0 {
		return ErrDuplicateEntity
	}
	e.Score = clampScore(e.Score)
	e.Position = ScoreToPosition(e.Score)
	s.entities = append(s.entities, &e)
	s.notify(Change{Kind: EntityAdded, ID: e.ID})
	return nil
}

// Update merges p into the entity. Setting only one of Score/Position
// recomputes the other; setting both keeps both as given.
func (s *EntityStore) Update(id string, p Patch) error {
	e := s.find(id)
	if e == nil {
		return ErrNotFound
	}
	if p.Name != nil {
		if strings.TrimSpace(*p.Name) == "" {
			return ErrInvalidName
		}
		e.Name = *p.Name
	}
	if p.Image != nil {
		e.Image = *p.Image
	}
	switch {
	case p.Score != nil && p.Position != nil:
		e.Score = clampScore(*p.Score)
		e.Position = clampPosition(*p.Position)
	case p.Score != nil:
		e.Score = clampScore(*p.Score)
		e.Position = ScoreToPosition(e.Score)
	case p.Position != nil:
		e.Position = clampPosition(*p.Position)
		e.Score = PositionToScore(e.Position)
	}
	s.notify(Change{Kind: EntityUpdated, ID: id})
	return nil
}

// setPosition writes a position without touching the score. Only an active
// drag uses it; the score catches up when the drag ends.
func (s *EntityStore) setPosition(id string, pos float64) error {
	e := s.find(id)
	if e == nil {
		return ErrNotFound
	}
	e.Position = clampPosition(pos)
	s.notify(Change{Kind: EntityUpdated, ID: id})
	return nil
}

// setOrigin marks an entity local or remote-backed.
func (s *EntityStore) setOrigin(id string, o Origin) error {
	e := s.find(id)
	if e == nil {
		return ErrNotFound
	}
	e.Origin = o
	s.notify(Change{Kind: EntityUpdated, ID: id})
	return nil
}

// Remove deletes an entity and clears the selection if it pointed at it.
func (s *EntityStore) Remove(id string) error {
	i := s.index(id)
	if i < 0 {
		return ErrNotFound
	}
	s.entities = append(s.entities[:i], s.entities[i+1:]...)
	if s.selected == id {
		s.selected = ""
	}
	s.notify(Change{Kind: EntityRemoved, ID: id})
	return nil
}

// ReplaceID swaps a temporary id for the one assigned by the remote store.
func (s *EntityStore) ReplaceID(oldID, newID string) error {
	e := s.find(oldID)
	if e == nil {
		return ErrNotFound
	}
	if oldID == newID {
		return nil
	}
	if s.index(newID) >= 0 {
		return ErrDuplicateEntity
	}
	e.ID = newID
	if s.selected == oldID {
		s.selected = newID
	}
	s.notify(Change{Kind: EntityRenamed, ID: newID, OldID: oldID})
	return nil
}

// Reset replaces the whole content, e.g. when a room is loaded or left.
// Entities beyond Capacity and blank names are dropped.
func (s *EntityStore) Reset(entities []Entity) {
	s.entities = s.entities[:0]
	for _, e := range entities {
		if len(s.entities) >= Capacity {
			break
		}
		if strings.TrimSpace(e.Name) == "" || s.index(e.ID) >= 0 {
			continue
		}
		e := e
		e.Score = clampScore(e.Score)
		e.Position = clampPosition(e.Position)
		s.entities = append(s.entities, &e)
	}
	s.selected = ""
	s.notify(Change{Kind: StoreReset})
}

// Get returns a copy of the entity.
func (s *EntityStore) Get(id string) (Entity, bool) {
	e := s.find(id)
	if e == nil {
		return Entity{}, false
	}
	return *e, true
}

// Len returns the number of entities.
func (s *EntityStore) Len() int { return len(s.entities) }

// All returns a snapshot in insertion order.
func (s *EntityStore) All() []Entity {
	out := make([]Entity, len(s.entities))
	for i, e := range s.entities {
		out[i] = *e
	}
	return out
}

// positionsExcept lists the current positions of every other entity, in insertion order.
func (s *EntityStore) positionsExcept(id string) []float64 {
	out := make([]float64, 0, len(s.entities))
	for _, e := range s.entities {
		if e.ID != id {
			out = append(out, e.Position)
		}
	}
	return out
}

// Select marks id as the selected entity.
func (s *EntityStore) Select(id string) error {
	if s.find(id) == nil {
		return ErrNotFound
	}
	if s.selected == id {
		return nil
	}
	s.selected = id
	s.notify(Change{Kind: SelectionChanged, ID: id})
	return nil
}

// ClearSelection drops the selection, if any.
func (s *EntityStore) ClearSelection() {
	if s.selected == "" {
		return
	}
	s.selected = ""
	s.notify(Change{Kind: SelectionChanged})
}

// Selected returns the selected entity id.
func (s *EntityStore) Selected() (string, bool) {
	return s.selected, s.selected != ""
}

func (s *EntityStore) index(id string) int {
	for i, e := range s.entities {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *EntityStore) find(id string) *Entity {
	if i := s.index(id); i >= 0 {
		return s.entities[i]
	}
	return nil
}
