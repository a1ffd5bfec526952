package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"aura-board/internal/domain"
	"aura-board/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	inviteCodeLetters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	inviteCodeLength  = 6
	maxRoomNameLength = 50
)

// RoomService manages rooms and invite codes.
type RoomService struct {
	roomRepo repository.RoomRepository
}

// NewRoomService creates a RoomService.
func NewRoomService(roomRepo repository.RoomRepository) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo}
}

// CreateRoom creates a named room with a fresh invite code.
func (s *RoomService) CreateRoom(ctx context.Context, creatorID uint, name string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	logCtx := logrus.WithFields(logrus.Fields{"creator_id": creatorID, "name": name})

	if name == "" || len([]rune(name)) > maxRoomNameLength {
		return nil, fmt.Errorf("%w: room name must be 1-%d characters", ErrInvalidInput, maxRoomNameLength)
	}

	inviteCode, err := s.generateUniqueInviteCode(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to generate unique invite code")
		return nil, ErrInternalServer
	}
	logCtx = logCtx.WithField("invite_code", inviteCode)

	room := &domain.Room{
		Name:       name,
		CreatorID:  creatorID,
		InviteCode: inviteCode,
		LastActive: time.Now(),
	}
	if err := s.roomRepo.Save(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.WithError(err).Error("Failed to save new room: invite code conflict")
		} else {
			logCtx.WithError(err).Error("Failed to save new room to database")
		}
		return nil, ErrInternalServer
	}

	logCtx.WithField("room_id", room.ID).Info("Room created successfully")
	return room, nil
}

// JoinRoom resolves an invite code. Codes are matched case-insensitively.
func (s *RoomService) JoinRoom(ctx context.Context, userID uint, inviteCode string) (*domain.Room, error) {
	code := strings.ToUpper(strings.TrimSpace(inviteCode))
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "invite_code": code})

	if code == "" {
		return nil, ErrInvalidInviteCode
	}
	room, err := s.roomRepo.FindByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			logCtx.Warn("Join failed: no room for invite code")
			return nil, ErrInvalidInviteCode
		}
		logCtx.WithError(err).Error("Join failed: repository error")
		return nil, ErrInternalServer
	}

	logCtx.WithField("room_id", room.ID).Info("User joined room successfully")
	return room, nil
}

// FindRoomByID looks a room up for the room-scoped endpoints.
func (s *RoomService) FindRoomByID(ctx context.Context, roomID uint) (*domain.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithField("room_id", roomID).WithError(err).Error("FindRoomByID: repository error")
		return nil, ErrInternalServer
	}
	return room, nil
}

func (s *RoomService) generateUniqueInviteCode(ctx context.Context) (string, error) {
	const maxAttempts = 10

	b := make([]byte, inviteCodeLength)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		for i := range b {
			b[i] = inviteCodeLetters[int(b[i])%len(inviteCodeLetters)]
		}
		code := string(b)

		exists, err := s.roomRepo.IsInviteCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("database error checking invite code: %w", err)
		}
		if !exists {
			return code, nil
		}
		logrus.WithField("invite_code", code).Warnf("Generated invite code already exists, retrying (attempt %d)", attempt+1)
	}
	return "", fmt.Errorf("failed to generate a unique invite code after %d attempts", maxAttempts)
}
