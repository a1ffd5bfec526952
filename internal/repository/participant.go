package repository

import (
	"context"

	"aura-board/internal/domain"
)

// ParticipantRepository stores the scored participants of rooms.
type ParticipantRepository interface {
	FindByID(ctx context.Context, id uint) (*domain.Participant, error)

	// ListByRoom returns the room's participants, highest value first.
	ListByRoom(ctx context.Context, roomID uint) ([]domain.Participant, error)

	// CreateWithinCapacity inserts p unless its room already holds capacity
	// participants, in which case it returns ErrCapacityReached. The count and
	// the insert are atomic with respect to other inserts into the same room.
	CreateWithinCapacity(ctx context.Context, p *domain.Participant, capacity int) error

	// UpdateScore writes position and value and reloads p.
	UpdateScore(ctx context.Context, p *domain.Participant) error

	Delete(ctx context.Context, id uint) error
}
