package storage

import (
	"fmt"
	"io"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the store selected by backend. When secret is non-empty the
// store is wrapped in a SealedStore. The returned closer releases any
// underlying resources.
func Open(backend, path, secret string) (KeyValueStore, io.Closer, error) {
	var (
		kv     KeyValueStore
		closer io.Closer = nopCloser{}
	)
	switch backend {
	case BackendFile, "":
		kv = NewFileStore(path)
	case BackendSQLite:
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		kv, closer = s, s
	case BackendMemory:
		kv = NewMemoryStore()
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}

	if secret != "" {
		sealed, err := NewSealedStore(kv, []byte(secret))
		if err != nil {
			_ = closer.Close()
			return nil, nil, err
		}
		kv = sealed
	}
	return kv, closer, nil
}
