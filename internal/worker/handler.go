package worker

import (
	"context"
	"fmt"
	"time"

	"aura-board/internal/repository"
	"aura-board/internal/tasks"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// RoomActivityHandler records that a room's participants changed.
type RoomActivityHandler struct {
	rooms repository.RoomRepository
}

// NewRoomActivityHandler creates a RoomActivityHandler.
func NewRoomActivityHandler(rooms repository.RoomRepository) *RoomActivityHandler {
	return &RoomActivityHandler{rooms: rooms}
}

// ProcessTask implements asynq.Handler.
func (h *RoomActivityHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	currentRetry, _ := asynq.GetRetryCount(ctx)
	logCtx := logrus.WithFields(logrus.Fields{
		"task_type": t.Type(),
		"retry":     currentRetry,
	})

	payload, err := tasks.ParseRoomActivity(t)
	if err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx = logCtx.WithField("room_id", payload.RoomID)

	if err := h.rooms.TouchLastActive(ctx, payload.RoomID, payload.At); err != nil {
		logCtx.WithError(err).Error("Failed to record room activity")
		return fmt.Errorf("touch room %d: %w", payload.RoomID, err)
	}

	logCtx.Debug("Room activity recorded")
	return nil
}

// ActiveRooms reports rooms that currently have live viewers.
type ActiveRooms interface {
	GetActiveRoomIDs() []uint
}

// PresenceSweepHandler periodically marks rooms with connected viewers as
// active, so rooms being watched without edits do not look abandoned.
type PresenceSweepHandler struct {
	active ActiveRooms
	rooms  repository.RoomRepository
	now    func() time.Time
}

// NewPresenceSweepHandler creates a PresenceSweepHandler.
func NewPresenceSweepHandler(active ActiveRooms, rooms repository.RoomRepository) *PresenceSweepHandler {
	if active == nil {
		panic("ActiveRooms cannot be nil for PresenceSweepHandler")
	}
	if rooms == nil {
		panic("RoomRepository cannot be nil for PresenceSweepHandler")
	}
	return &PresenceSweepHandler{active: active, rooms: rooms, now: time.Now}
}

// ProcessTask implements asynq.Handler. Failures on single rooms are logged
// and do not fail the sweep.
func (h *PresenceSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	logCtx := logrus.WithField("task_type", t.Type())

	ids := h.active.GetActiveRoomIDs()
	if len(ids) == 0 {
		logCtx.Debug("No active rooms, skipping presence sweep")
		return nil
	}

	at := h.now()
	failed := 0
	for _, id := range ids {
		if err := h.rooms.TouchLastActive(ctx, id, at); err != nil {
			failed++
			logCtx.WithField("room_id", id).WithError(err).Warn("Presence sweep failed for room")
		}
	}
	if failed > 0 {
		logCtx.Warnf("Presence sweep completed with %d of %d rooms failing", failed, len(ids))
		return nil
	}

	logCtx.WithField("room_count", len(ids)).Info("Presence sweep completed")
	return nil
}
