package client

import (
	"context"
	"fmt"
	"net/http"

	"aura-board/internal/domain"
)

// RoomClient creates and resolves rooms.
type RoomClient struct {
	c *Client
}

// NewRoomClient creates a RoomClient on c.
func NewRoomClient(c *Client) *RoomClient {
	return &RoomClient{c: c}
}

// Create makes a new room; the response carries its invite code.
func (r *RoomClient) Create(ctx context.Context, name string) (*domain.Room, error) {
	var room domain.Room
	if err := r.c.do(ctx, http.MethodPost, "/api/rooms", map[string]string{"name": name}, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// FindByInviteCode resolves an invite code, case-insensitively.
func (r *RoomClient) FindByInviteCode(ctx context.Context, code string) (*domain.Room, error) {
	var room domain.Room
	if err := r.c.do(ctx, http.MethodPost, "/api/rooms/join", map[string]string{"invite_code": code}, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// Get loads a room by id.
func (r *RoomClient) Get(ctx context.Context, id uint) (*domain.Room, error) {
	var room domain.Room
	if err := r.c.do(ctx, http.MethodGet, fmt.Sprintf("/api/rooms/%d", id), nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}
