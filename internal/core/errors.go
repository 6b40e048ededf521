package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeMissingIdentity = "missing_identity"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeInvalidRole     = "invalid_role"
	ErrCodeNotFound        = "not_found"
	ErrCodeRoomNotFound    = "room_not_found"
	ErrCodeAlreadyJoined   = "already_joined"
	ErrCodeNotInRoom       = "not_in_room"
	ErrCodeBadRequest      = "bad_request"
)

var (
	ErrMissingIdentity = coreError(ErrCodeMissingIdentity, "username and chat id are required")
	ErrUnauthorized    = coreError(ErrCodeUnauthorized, "only the room admin can change roles")
	ErrInvalidRole     = coreError(ErrCodeInvalidRole, "role must be writer or reader")
	ErrNotFound        = coreError(ErrCodeNotFound, "session not found")
	ErrRoomNotFound    = coreError(ErrCodeRoomNotFound, "room not found")
	ErrAlreadyJoined   = coreError(ErrCodeAlreadyJoined, "connection already joined another room")
	ErrNotInRoom       = coreError(ErrCodeNotInRoom, "not in room")
	ErrBadRequest      = coreError(ErrCodeBadRequest, "bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Is reports whether target is a CoreError with the same code.
func (e *CoreError) Is(target error) bool {
	var other *CoreError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// AsCoreError converts any error into a CoreError, defaulting to bad_request.
func AsCoreError(err error) *CoreError {
	if err == nil {
		return nil
	}
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	return coreError(ErrCodeBadRequest, err.Error())
}
