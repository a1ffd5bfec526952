package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"aura-board/internal/domain"
	"aura-board/internal/repository"
	"aura-board/internal/repository/mocks"
	"aura-board/internal/service"
	"aura-board/internal/tasks"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type participantFixture struct {
	svc          *service.ParticipantService
	participants *mocks.ParticipantRepository
	rooms        *mocks.RoomRepository
	state        *mocks.StateRepository
	tasks        *mocks.TaskEnqueuer
}

func newParticipantFixture() *participantFixture {
	f := &participantFixture{
		participants: new(mocks.ParticipantRepository),
		rooms:        new(mocks.RoomRepository),
		state:        new(mocks.StateRepository),
		tasks:        new(mocks.TaskEnqueuer),
	}
	f.svc = service.NewParticipantService(f.participants, f.rooms, f.state, f.tasks)
	return f
}

func (f *participantFixture) assertExpectations(t *testing.T) {
	f.participants.AssertExpectations(t)
	f.rooms.AssertExpectations(t)
	f.state.AssertExpectations(t)
	f.tasks.AssertExpectations(t)
}

func isActivityTask(roomID uint) interface{} {
	return mock.MatchedBy(func(task *asynq.Task) bool {
		if task.Type() != tasks.TypeRoomActivity {
			return false
		}
		p, err := tasks.ParseRoomActivity(task)
		return err == nil && p.RoomID == roomID
	})
}

func TestParticipantService_Insert_Success(t *testing.T) {
	f := newParticipantFixture()
	ctx := context.Background()

	f.rooms.On("FindByID", ctx, uint(3)).Return(&domain.Room{ID: 3}, nil).Once()
	f.participants.On("CreateWithinCapacity", ctx, mock.MatchedBy(func(p *domain.Participant) bool {
		return p.RoomID == 3 && p.Name == "Ada" && p.Position == 50 && p.Value == 0
	}), 5).
		Run(func(args mock.Arguments) { args.Get(1).(*domain.Participant).ID = 21 }).
		Return(nil).Once()
	f.state.On("PublishChange", ctx, uint(3), mock.MatchedBy(func(ev domain.ChangeEvent) bool {
		return ev.Type == domain.ChangeInsert && ev.Record.ID == 21
	})).Return(nil).Once()
	f.tasks.On("EnqueueContext", ctx, isActivityTask(3)).Return(&asynq.TaskInfo{}, nil).Once()

	p, err := f.svc.Insert(ctx, 3, " Ada ", "")
	require.NoError(t, err)
	assert.Equal(t, uint(21), p.ID)
	f.assertExpectations(t)
}

func TestParticipantService_Insert_RoomFull(t *testing.T) {
	f := newParticipantFixture()
	ctx := context.Background()

	f.rooms.On("FindByID", ctx, uint(3)).Return(&domain.Room{ID: 3}, nil).Once()
	f.participants.On("CreateWithinCapacity", ctx, mock.Anything, 5).Return(repository.ErrCapacityReached).Once()

	_, err := f.svc.Insert(ctx, 3, "Sixth", "")
	assert.ErrorIs(t, err, service.ErrRoomFull)
	f.state.AssertNotCalled(t, "PublishChange", mock.Anything, mock.Anything, mock.Anything)
}

func TestParticipantService_Insert_RoomDeletedMeanwhile(t *testing.T) {
	f := newParticipantFixture()
	ctx := context.Background()

	f.rooms.On("FindByID", ctx, uint(3)).Return(&domain.Room{ID: 3}, nil).Once()
	f.participants.On("CreateWithinCapacity", ctx, mock.Anything, 5).Return(repository.ErrRoomNotFound).Once()

	_, err := f.svc.Insert(ctx, 3, "Ada", "")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}

func TestParticipantService_Insert_ConcurrentAtLastSlot(t *testing.T) {
	f := newParticipantFixture()
	ctx := context.Background()

	// the repository admits rows atomically, the way the locked transaction does
	var mu sync.Mutex
	rows := 4
	f.rooms.On("FindByID", ctx, uint(3)).Return(&domain.Room{ID: 3}, nil)
	f.participants.On("CreateWithinCapacity", ctx, mock.Anything, 5).
		Return(func(_ context.Context, p *domain.Participant, capacity int) error {
			mu.Lock()
			defer mu.Unlock()
			if rows >= capacity {
				return repository.ErrCapacityReached
			}
			rows++
			p.ID = uint(100 + rows)
			return nil
		})
	f.state.On("PublishChange", ctx, uint(3), mock.Anything).Return(nil)
	f.tasks.On("EnqueueContext", ctx, mock.Anything).Return(&asynq.TaskInfo{}, nil)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Insert(ctx, 3, "Ada", "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, full int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, service.ErrRoomFull):
			full++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, full)
	assert.Equal(t, 5, rows)
}

func TestParticipantService_Insert_Validation(t *testing.T) {
	f := newParticipantFixture()
	ctx := context.Background()

	_, err := f.svc.Insert(ctx, 3, "  ", "")
	assert.ErrorIs(t, err, service.ErrInvalidParticipant)

	f.rooms.On("FindByID", ctx, uint(99)).Return(nil, repository.ErrRoomNotFound).Once()
	_, err = f.svc.Insert(ctx, 99, "Ada", "")
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
}

func TestParticipantService_Insert_PublishFailureIsNotFatal(t *testing.T) {
	f := newParticipantFixture()
	ctx := context.Background()

	f.rooms.On("FindByID", ctx, uint(3)).Return(&domain.Room{ID: 3}, nil).Once()
	f.participants.On("CreateWithinCapacity", ctx, mock.Anything, 5).Return(nil).Once()
	f.state.On("PublishChange", ctx, uint(3), mock.Anything).Return(errors.New("redis down")).Once()
	f.tasks.On("EnqueueContext", ctx, mock.Anything).Return(nil, asynq.ErrTaskIDConflict).Once()

	_, err := f.svc.Insert(ctx, 3, "Ada", "")
	assert.NoError(t, err)
	f.assertExpectations(t)
}

func TestParticipantService_Update_Success(t *testing.T) {
	f := newParticipantFixture()
	ctx := context.Background()

	f.participants.On("FindByID", ctx, uint(21)).Return(&domain.Participant{ID: 21, RoomID: 3, Name: "Ada", Position: 50}, nil).Once()
	f.participants.On("UpdateScore", ctx, mock.MatchedBy(func(p *domain.Participant) bool {
		return p.ID == 21 && p.Position == 75 && p.Value == 500_000_000
	})).Return(nil).Once()
	f.state.On("PublishChange", ctx, uint(3), mock.MatchedBy(func(ev domain.ChangeEvent) bool {
		return ev.Type == domain.ChangeUpdate && ev.Record.Value == 500_000_000 && ev.Record.Name == "Ada"
	})).Return(nil).Once()
	f.tasks.On("EnqueueContext", ctx, isActivityTask(3)).Return(&asynq.TaskInfo{}, nil).Once()

	p, err := f.svc.Update(ctx, 21, 75, 500_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000_000), p.Value)
	f.assertExpectations(t)
}

func TestParticipantService_Update_OutOfRange(t *testing.T) {
	f := newParticipantFixture()
	ctx := context.Background()

	for _, tc := range []struct {
		pos   float64
		value int64
	}{
		{-1, 0},
		{101, 0},
		{50, 1_000_000_001},
		{50, -1_000_000_001},
	} {
		_, err := f.svc.Update(ctx, 21, tc.pos, tc.value)
		assert.ErrorIs(t, err, service.ErrInvalidScore)
	}
	f.participants.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestParticipantService_Update_NotFound(t *testing.T) {
	f := newParticipantFixture()
	ctx := context.Background()

	f.participants.On("FindByID", ctx, uint(404)).Return(nil, repository.ErrParticipantNotFound).Once()
	_, err := f.svc.Update(ctx, 404, 50, 0)
	assert.ErrorIs(t, err, service.ErrParticipantNotFound)
}

func TestParticipantService_Delete(t *testing.T) {
	f := newParticipantFixture()
	ctx := context.Background()

	f.participants.On("FindByID", ctx, uint(21)).Return(&domain.Participant{ID: 21, RoomID: 3, Name: "Ada"}, nil).Once()
	f.participants.On("Delete", ctx, uint(21)).Return(nil).Once()
	f.state.On("PublishChange", ctx, uint(3), mock.MatchedBy(func(ev domain.ChangeEvent) bool {
		return ev.Type == domain.ChangeDelete && ev.Record.ID == 21
	})).Return(nil).Once()
	f.tasks.On("EnqueueContext", ctx, isActivityTask(3)).Return(&asynq.TaskInfo{}, nil).Once()

	require.NoError(t, f.svc.Delete(ctx, 21))
	f.assertExpectations(t)
}

func TestParticipantService_List(t *testing.T) {
	f := newParticipantFixture()
	ctx := context.Background()

	f.rooms.On("FindByID", ctx, uint(3)).Return(&domain.Room{ID: 3}, nil).Twice()
	f.participants.On("ListByRoom", ctx, uint(3)).Return([]domain.Participant{{ID: 2, Value: 9}, {ID: 1, Value: 1}}, nil).Once()
	f.participants.On("ListByRoom", ctx, uint(3)).Return(nil, nil).Once()

	list, err := f.svc.List(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.svc.List(ctx, 3)
	require.NoError(t, err)
	assert.NotNil(t, list, "empty rooms list as [] not null")
	f.assertExpectations(t)
}
