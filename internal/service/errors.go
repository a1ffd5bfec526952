package service

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrRoomNotFound         = errors.New("room not found")
	ErrParticipantNotFound  = errors.New("participant not found")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed: email already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidInviteCode    = errors.New("invalid invite code")
	ErrInvalidParticipant   = errors.New("participant name must not be empty")
	ErrInvalidScore         = errors.New("position or value out of range")
	ErrRoomFull             = errors.New("room is full")
	ErrInternalServer       = errors.New("internal server error")
)
