package storage

import (
	"context"
	"errors"
)

// Keys of the device-local storage layout.
const (
	KeyAuthToken = "authToken"
	KeyUser      = "user"
	// KeyChats is reserved for the front-end; the session only clears it.
	KeyChats = "chats"
)

// ErrUnknownBackend is returned by Open for unsupported backend names.
var ErrUnknownBackend = errors.New("unknown storage backend")

// KeyValueStore is a device-local string key-value store.
type KeyValueStore interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
