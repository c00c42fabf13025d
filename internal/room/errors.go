package room

import "errors"

var (
	// ErrUnauthorized means the bearer token resolved to no known user.
	ErrUnauthorized = errors.New("invalid or unknown token")

	// ErrRoomNotFound means the room row does not exist (never created,
	// or deleted after its last member left).
	ErrRoomNotFound = errors.New("room not found")

	// ErrMemberNotFound means the caller holds no membership in the room.
	ErrMemberNotFound = errors.New("room membership not found")

	// ErrDuplicateMember means the user already holds a membership in the room.
	ErrDuplicateMember = errors.New("user already joined this room")

	// ErrInvalidTransition means a status change would move backward or
	// repeat a step. Room status only advances Waiting -> Playing -> Dissolved.
	ErrInvalidTransition = errors.New("invalid room status transition")

	// ErrNotHost means a host-only operation was attempted by a guest member.
	ErrNotHost = errors.New("operation restricted to the room host")
)
