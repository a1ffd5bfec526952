package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"aura-board/internal/domain"
	"aura-board/internal/repository"
)

// GormParticipantRepository implements repository.ParticipantRepository.
type GormParticipantRepository struct {
	db *gorm.DB
}

// NewGormParticipantRepository creates a GormParticipantRepository.
func NewGormParticipantRepository(db *gorm.DB) *GormParticipantRepository {
	if db == nil {
		panic("database connection cannot be nil for GormParticipantRepository")
	}
	return &GormParticipantRepository{db: db}
}

func (r *GormParticipantRepository) FindByID(ctx context.Context, id uint) (*domain.Participant, error) {
	var p domain.Participant
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrParticipantNotFound
		}
		return nil, fmt.Errorf("gorm: find participant by id %d: %w", id, err)
	}
	return &p, nil
}

// ListByRoom orders by value descending, then by id so equal values keep creation order.
func (r *GormParticipantRepository) ListByRoom(ctx context.Context, roomID uint) ([]domain.Participant, error) {
	var out []domain.Participant
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("value DESC").Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list participants of room %d: %w", roomID, err)
	}
	return out, nil
}

// CreateWithinCapacity locks the room row for the length of the transaction,
// so concurrent inserts into one room are counted one after another.
func (r *GormParticipantRepository) CreateWithinCapacity(ctx context.Context, p *domain.Participant, capacity int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room domain.Room
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&room, p.RoomID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrRoomNotFound
			}
			return fmt.Errorf("gorm: lock room %d: %w", p.RoomID, err)
		}

		var count int64
		if err := tx.Model(&domain.Participant{}).Where("room_id = ?", p.RoomID).Count(&count).Error; err != nil {
			return fmt.Errorf("gorm: count participants of room %d: %w", p.RoomID, err)
		}
		if count >= int64(capacity) {
			return repository.ErrCapacityReached
		}

		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("gorm: create participant in room %d: %w", p.RoomID, err)
		}
		return nil
	})
}

// UpdateScore writes position and value only, then reloads the full row.
func (r *GormParticipantRepository) UpdateScore(ctx context.Context, p *domain.Participant) error {
	result := r.db.WithContext(ctx).Model(&domain.Participant{ID: p.ID}).
		Updates(map[string]interface{}{"position": p.Position, "value": p.Value})
	if result.Error != nil {
		return fmt.Errorf("gorm: update participant %d: %w", p.ID, result.Error)
	}
	if err := r.db.WithContext(ctx).First(p, p.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.ErrParticipantNotFound
		}
		return fmt.Errorf("gorm: reload participant %d: %w", p.ID, err)
	}
	return nil
}

func (r *GormParticipantRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Participant{}, id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete participant %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrParticipantNotFound
	}
	return nil
}
