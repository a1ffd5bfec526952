package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"aura-board/internal/board"
	"aura-board/internal/domain"
	"aura-board/internal/repository"
	"aura-board/internal/tasks"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

const maxParticipantNameLength = 100

// TaskEnqueuer is the part of *asynq.Client the services use.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ParticipantService is the remote store behind the board: participant CRUD
// per room, each write published on the room's change feed.
type ParticipantService struct {
	participants repository.ParticipantRepository
	rooms        repository.RoomRepository
	state        repository.StateRepository
	tasks        TaskEnqueuer
	now          func() time.Time
}

// NewParticipantService creates a ParticipantService. taskEnqueuer may be nil,
// in which case room activity is not recorded.
func NewParticipantService(participants repository.ParticipantRepository, rooms repository.RoomRepository, state repository.StateRepository, taskEnqueuer TaskEnqueuer) *ParticipantService {
	if participants == nil {
		panic("ParticipantRepository cannot be nil for ParticipantService")
	}
	if rooms == nil {
		panic("RoomRepository cannot be nil for ParticipantService")
	}
	if state == nil {
		panic("StateRepository cannot be nil for ParticipantService")
	}
	return &ParticipantService{
		participants: participants,
		rooms:        rooms,
		state:        state,
		tasks:        taskEnqueuer,
		now:          time.Now,
	}
}

// List returns the room's participants, highest value first.
func (s *ParticipantService) List(ctx context.Context, roomID uint) ([]domain.Participant, error) {
	if err := s.ensureRoom(ctx, roomID); err != nil {
		return nil, err
	}
	list, err := s.participants.ListByRoom(ctx, roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to list participants")
		return nil, ErrInternalServer
	}
	if list == nil {
		list = []domain.Participant{}
	}
	return list, nil
}

// Insert adds a participant at position 50, value 0.
func (s *ParticipantService) Insert(ctx context.Context, roomID uint, name, imageURL string) (*domain.Participant, error) {
	name = strings.TrimSpace(name)
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "name": name})

	if name == "" || len([]rune(name)) > maxParticipantNameLength {
		return nil, ErrInvalidParticipant
	}
	if err := s.ensureRoom(ctx, roomID); err != nil {
		return nil, err
	}

	p := &domain.Participant{
		RoomID:   roomID,
		Name:     name,
		ImageURL: imageURL,
		Position: board.ScoreToPosition(0),
		Value:    0,
	}
	if err := s.participants.CreateWithinCapacity(ctx, p, board.Capacity); err != nil {
		switch {
		case errors.Is(err, repository.ErrCapacityReached):
			logCtx.Warn("Insert rejected: room is full")
			return nil, ErrRoomFull
		case errors.Is(err, repository.ErrRoomNotFound):
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("Failed to create participant")
		return nil, ErrInternalServer
	}

	logCtx.WithField("participant_id", p.ID).Info("Participant added")
	s.afterWrite(ctx, domain.ChangeInsert, *p)
	return p, nil
}

// Update stores a settled (position, value) pair. The latest write wins.
func (s *ParticipantService) Update(ctx context.Context, id uint, position float64, value int64) (*domain.Participant, error) {
	logCtx := logrus.WithField("participant_id", id)

	if math.IsNaN(position) || position < 0 || position > 100 {
		return nil, fmt.Errorf("%w: position %v", ErrInvalidScore, position)
	}
	if value > board.MaxAbsScore || value < -board.MaxAbsScore {
		return nil, fmt.Errorf("%w: value %d", ErrInvalidScore, value)
	}

	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Position, p.Value = position, value
	if err := s.participants.UpdateScore(ctx, p); err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		logCtx.WithError(err).Error("Failed to update participant")
		return nil, ErrInternalServer
	}

	logCtx.WithFields(logrus.Fields{"room_id": p.RoomID, "value": p.Value}).Debug("Participant updated")
	s.afterWrite(ctx, domain.ChangeUpdate, *p)
	return p, nil
}

// Delete removes a participant.
func (s *ParticipantService) Delete(ctx context.Context, id uint) error {
	logCtx := logrus.WithField("participant_id", id)

	p, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.participants.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		logCtx.WithError(err).Error("Failed to delete participant")
		return ErrInternalServer
	}

	logCtx.WithField("room_id", p.RoomID).Info("Participant removed")
	s.afterWrite(ctx, domain.ChangeDelete, *p)
	return nil
}

func (s *ParticipantService) find(ctx context.Context, id uint) (*domain.Participant, error) {
	p, err := s.participants.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrParticipantNotFound) {
			return nil, ErrParticipantNotFound
		}
		logrus.WithField("participant_id", id).WithError(err).Error("Failed to load participant")
		return nil, ErrInternalServer
	}
	return p, nil
}

func (s *ParticipantService) ensureRoom(ctx context.Context, roomID uint) error {
	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to load room")
		return ErrInternalServer
	}
	return nil
}

// afterWrite publishes the change and records room activity. The write is
// already committed, so failures here are only logged.
func (s *ParticipantService) afterWrite(ctx context.Context, typ domain.ChangeType, p domain.Participant) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": p.RoomID, "participant_id": p.ID, "event": typ})

	if err := s.state.PublishChange(ctx, p.RoomID, domain.ChangeEvent{Type: typ, Record: p}); err != nil {
		logCtx.WithError(err).Warn("Failed to publish change event")
	}

	if s.tasks == nil {
		return
	}
	task, opts, err := tasks.NewRoomActivityTask(p.RoomID, s.now())
	if err != nil {
		logCtx.WithError(err).Warn("Failed to build room activity task")
		return
	}
	if _, err := s.tasks.EnqueueContext(ctx, task, opts...); err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		logCtx.WithError(err).Warn("Failed to enqueue room activity task")
	}
}
