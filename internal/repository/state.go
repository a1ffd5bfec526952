package repository

import (
	"context"
	"time"

	"aura-board/internal/domain"
)

// RoomChange is a change feed event tagged with its room.
type RoomChange struct {
	RoomID uint
	Event  domain.ChangeEvent
}

// ChangeStream delivers change feed events until closed.
type ChangeStream interface {
	Changes() <-chan RoomChange
	Close() error
}

// StateRepository holds the realtime state that lives outside the database,
// usually in Redis.
type StateRepository interface {
	// PublishChange broadcasts ev on roomID's change feed.
	PublishChange(ctx context.Context, roomID uint, ev domain.ChangeEvent) error

	// SubscribeChanges follows the change feeds of every room.
	SubscribeChanges(ctx context.Context) (ChangeStream, error)

	// CheckRateLimit counts a hit on key and reports whether limit was exceeded
	// within window.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
