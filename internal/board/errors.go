package board

import "errors"

// Local store errors. They are recoverable: the operation is aborted and state is unchanged.
var (
	ErrCapacityExceeded = errors.New("board: capacity exceeded")
	ErrInvalidName      = errors.New("board: name must not be empty")
	ErrNotFound         = errors.New("board: entity not found")
	ErrDuplicateEntity  = errors.New("board: entity already exists")
)

// Remote store errors, wrapped by RemoteStore implementations.
var (
	ErrRemoteUnavailable = errors.New("board: remote store unavailable")
	ErrRemoteRejected    = errors.New("board: remote store rejected the request")
)

// ErrNotInRoom is returned by room-scoped operations when no room is joined.
var ErrNotInRoom = errors.New("board: not in a room")

// ErrClosed is returned when the board loop has stopped.
var ErrClosed = errors.New("board: closed")
