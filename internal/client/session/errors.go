package session

import (
	"errors"
	"fmt"
)

// Operation names carried by AuthError.
const (
	OpLogin    = "login"
	OpRegister = "register"
)

var (
	// ErrAuthentication matches any AuthError raised by a login attempt.
	ErrAuthentication = errors.New("authentication failed")
	// ErrRegistration matches any AuthError raised by a register attempt.
	ErrRegistration = errors.New("registration failed")
)

// AuthError is returned when the authenticator rejects a login or
// registration. Message is safe to show to the user.
type AuthError struct {
	Op      string // OpLogin or OpRegister
	Message string
	Status  int // HTTP status, zero when no response was received
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the operation sentinels.
func (e *AuthError) Is(target error) bool {
	switch target {
	case ErrAuthentication:
		return e.Op == OpLogin
	case ErrRegistration:
		return e.Op == OpRegister
	}
	return false
}

// RestoreError describes why a persisted session could not be restored.
// It is logged by Bootstrap and never returned to callers.
type RestoreError struct {
	Key string
	Err error
}

func (e *RestoreError) Error() string {
	return fmt.Sprintf("restore session [%s]: %v", e.Key, e.Err)
}

func (e *RestoreError) Unwrap() error {
	return e.Err
}

// StorageError represents a failed write or removal of a persisted key.
type StorageError struct {
	Key string
	Op  string // "set", "remove"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
