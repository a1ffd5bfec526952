package board

import "github.com/sirupsen/logrus"

// DefaultLineWidth is the assumed width, in pixels, of the rendered scale.
const DefaultLineWidth = 1000.0

// Persister durably stores the settled (position, score) of a remote-backed entity.
type Persister interface {
	Persist(e Entity)
}

// DragState is the state of the drag state machine.
type DragState int

const (
	Idle DragState = iota
	Dragging
)

type dragSession struct {
	entityID      string
	startX        float64
	startPosition float64
}

// DragController turns pointer gestures and discrete nudges into store
// mutations. Only settled values are handed to the Persister.
type DragController struct {
	store     *EntityStore
	persister Persister
	lineWidth float64
	state     DragState
	session   dragSession
	log       *logrus.Entry
}

// NewDragController wires a controller to its store. persister may be nil for
// a board that never syncs.
func NewDragController(store *EntityStore, persister Persister, log *logrus.Entry) *DragController {
	if store == nil {
		panic("EntityStore cannot be nil for DragController")
	}
	if log == nil {
		log = logrus.WithField("component", "drag")
	}
	d := &DragController{
		store:     store,
		persister: persister,
		lineWidth: DefaultLineWidth,
		log:       log,
	}
	store.Subscribe(d.onStoreChange)
	return d
}

// SetLineWidth updates the pixel width used to convert pointer deltas.
func (d *DragController) SetLineWidth(px float64) {
	if px > 0 {
		d.lineWidth = px
	}
}

// State returns the current state.
func (d *DragController) State() DragState { return d.state }

// ActiveEntity returns the entity being dragged.
func (d *DragController) ActiveEntity() (string, bool) {
	return d.session.entityID, d.state == Dragging
}

// Begin starts a drag. Unknown ids are ignored.
func (d *DragController) Begin(entityID string, pointerX float64) {
	e, ok := d.store.Get(entityID)
	if !ok {
		d.log.WithField("entity_id", entityID).Debug("Drag begin ignored: unknown entity")
		return
	}
	d.session = dragSession{entityID: entityID, startX: pointerX, startPosition: e.Position}
	d.state = Dragging
}

// Move recomputes the dragged entity's position for the current pointer.
// The score is left alone until End.
func (d *DragController) Move(pointerX float64) {
	if d.state != Dragging {
		return
	}
	deltaPercent := (pointerX - d.session.startX) / d.lineWidth * 100
	candidate := clampPosition(d.session.startPosition + deltaPercent)
	pos := ResolveOverlap(candidate, d.store.positionsExcept(d.session.entityID), MinSeparation)
	if err := d.store.setPosition(d.session.entityID, pos); err != nil {
		d.Abort()
	}
}

// End settles the drag: the score is derived from the final position and a
// remote-backed entity is persisted exactly once.
func (d *DragController) End() {
	if d.state != Dragging {
		return
	}
	id := d.session.entityID
	d.reset()

	e, ok := d.store.Get(id)
	if !ok {
		return
	}
	score := PositionToScore(e.Position)
	pos := e.Position
	if err := d.store.Update(id, Patch{Score: &score, Position: &pos}); err != nil {
		return
	}
	d.persist(id)
}

// Abort drops the session without persisting.
func (d *DragController) Abort() {
	if d.state == Dragging {
		d.log.WithField("entity_id", d.session.entityID).Debug("Drag session aborted")
	}
	d.reset()
}

// Adjust nudges an entity's score by delta and persists it immediately.
func (d *DragController) Adjust(entityID string, delta int64) error {
	e, ok := d.store.Get(entityID)
	if !ok {
		return ErrNotFound
	}
	score := addScore(e.Score, delta)
	if err := d.store.Update(entityID, Patch{Score: &score}); err != nil {
		return err
	}
	d.persist(entityID)
	return nil
}

func (d *DragController) persist(id string) {
	e, ok := d.store.Get(id)
	if !ok || e.Origin != OriginRemote || d.persister == nil {
		return
	}
	d.persister.Persist(e)
}

func (d *DragController) reset() {
	d.state = Idle
	d.session = dragSession{}
}

func (d *DragController) onStoreChange(c Change) {
	if d.state != Dragging {
		return
	}
	switch c.Kind {
	case EntityRemoved:
		if c.ID == d.session.entityID {
			d.Abort()
		}
	case EntityRenamed:
		if c.OldID == d.session.entityID {
			d.session.entityID = c.ID
		}
	case StoreReset:
		d.Abort()
	}
}
