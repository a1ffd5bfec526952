package repository

import (
	"context"
	"time"

	"aura-board/internal/domain"
)

// RoomRepository stores rooms.
type RoomRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Room, error)

	// FindByInviteCode matches the code exactly; callers normalize case.
	FindByInviteCode(ctx context.Context, code string) (*domain.Room, error)

	Save(ctx context.Context, room *domain.Room) error

	IsInviteCodeExists(ctx context.Context, code string) (bool, error)

	// TouchLastActive moves LastActive forward to at. Older timestamps are ignored.
	TouchLastActive(ctx context.Context, id uint, at time.Time) error
}
