package repository

import "errors"

// Generic repository errors. Implementations map driver errors onto these.
var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry means a unique constraint was violated.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
	// ErrCapacityReached means a bounded collection is already full.
	ErrCapacityReached = errors.New("repository: capacity reached")
)

var (
	ErrUserNotFound        = ErrNotFound
	ErrRoomNotFound        = ErrNotFound
	ErrParticipantNotFound = ErrNotFound
)
