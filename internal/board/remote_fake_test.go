package board

import (
	"context"
	"sort"
	"sync"

	"aura-board/internal/domain"
)

// fakeRemote is an in-memory RemoteStore. Insert and Delete can be held back
// with gates to exercise in-flight continuations.
type fakeRemote struct {
	mu      sync.Mutex
	nextID  uint
	records map[uint]domain.Participant
	handler func(domain.ChangeEvent)
	unsubs  int

	insertErr error
	deleteErr error
	listErr   error
	onList    func()

	insertGate chan struct{}
	deleteGate chan struct{}
	updates    chan domain.Participant
	deletes    chan uint
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		nextID:  100,
		records: make(map[uint]domain.Participant),
		updates: make(chan domain.Participant, 32),
		deletes: make(chan uint, 32),
	}
}

func (f *fakeRemote) seed(recs ...domain.Participant) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range recs {
		f.records[r.ID] = r
	}
}

func (f *fakeRemote) Insert(ctx context.Context, roomID uint, name, imageURL string) (*domain.Participant, error) {
	if f.insertGate != nil {
		<-f.insertGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	f.nextID++
	rec := domain.Participant{ID: f.nextID, RoomID: roomID, Name: name, ImageURL: imageURL, Position: 50}
	f.records[rec.ID] = rec
	return &rec, nil
}

func (f *fakeRemote) Update(ctx context.Context, id uint, position float64, value int64) (*domain.Participant, error) {
	f.mu.Lock()
	rec, ok := f.records[id]
	if !ok {
		f.mu.Unlock()
		return nil, ErrNotFound
	}
	rec.Position, rec.Value = position, value
	f.records[id] = rec
	f.mu.Unlock()
	f.updates <- rec
	return &rec, nil
}

func (f *fakeRemote) Delete(ctx context.Context, id uint) error {
	if f.deleteGate != nil {
		<-f.deleteGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.records, id)
	f.deletes <- id
	return nil
}

func (f *fakeRemote) List(ctx context.Context, roomID uint) ([]domain.Participant, error) {
	if f.onList != nil {
		f.onList()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Participant
	for _, r := range f.records {
		if r.RoomID == roomID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeRemote) Subscribe(ctx context.Context, roomID uint, handler func(domain.ChangeEvent)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	return fakeSub{f}, nil
}

// emit delivers an event the way a feed reader goroutine would.
func (f *fakeRemote) emit(ev domain.ChangeEvent) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (f *fakeRemote) unsubscribed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubs
}

type fakeSub struct{ f *fakeRemote }

func (s fakeSub) Unsubscribe() error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.unsubs++
	s.f.handler = nil
	return nil
}
