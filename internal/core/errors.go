package core

import "errors"

// Rejection codes for movement requests.
const (
	ErrCodeInvalidPosition = "invalid_position"
	ErrCodeTooFar          = "too_far"
	ErrCodeOutOfBounds     = "out_of_bounds"
	ErrCodeObstacle        = "obstacle"
	ErrCodeOccupied        = "occupied"
)

var (
	// ErrBadJoin means the join payload did not name exactly one room or lacked a token.
	ErrBadJoin = errors.New("bad join")
	// ErrUnauthorized means the credential failed verification.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRoomNotFound means the requested space or map does not exist.
	ErrRoomNotFound = errors.New("room not found")

	ErrAlreadyJoined = errors.New("already joined")
	ErrNotInRoom     = errors.New("not in room")
	ErrBadRequest    = errors.New("bad request")
	ErrNoTarget      = errors.New("signal target not in room")
)

// IsFatal reports whether err must terminate the connection.
// Only handshake failures are fatal; everything else is dropped.
func IsFatal(err error) bool {
	return errors.Is(err, ErrBadJoin) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrRoomNotFound)
}

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
