package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"aura-board/internal/domain"
	"aura-board/internal/repository"
)

// GormRoomRepository implements repository.RoomRepository.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a GormRoomRepository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) FindByID(ctx context.Context, id uint) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %d: %w", id, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) FindByInviteCode(ctx context.Context, code string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by invite code '%s': %w", code, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	if err := r.db.WithContext(ctx).Save(room).Error; err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save room (id: %d, invite_code: %s): %w", room.ID, room.InviteCode, err)
	}
	return nil
}

func (r *GormRoomRepository) IsInviteCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Where("invite_code = ?", code).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("gorm: count rooms by invite code '%s': %w", code, err)
	}
	return count > 0, nil
}

// TouchLastActive only ever moves last_active forward, so late tasks are harmless.
func (r *GormRoomRepository) TouchLastActive(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.Room{}).
		Where("id = ? AND (last_active IS NULL OR last_active < ?)", id, at).
		UpdateColumn("last_active", at).Error
	if err != nil {
		return fmt.Errorf("gorm: touch last_active of room %d: %w", id, err)
	}
	return nil
}
