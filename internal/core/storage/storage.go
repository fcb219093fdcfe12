package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// KV is a string-keyed blob store, the device-local persistence behind
// history.
type KV interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	// Update reads key, passes the current value to fn and stores what fn
	// returns, as one atomic step against other writers of the same
	// backend. ok is false when the key is absent. An error from fn aborts
	// the write and is returned as is.
	Update(key string, fn UpdateFunc) error
	Close() error
}

// UpdateFunc computes the new value for a key from its current one.
type UpdateFunc func(old []byte, ok bool) ([]byte, error)

// Backend kinds accepted by Open.
const (
	KindSQLite = "sqlite"
	KindFile   = "file"
	KindMemory = "memory"
)

// Open returns the backend of the given kind rooted at dir.
func Open(kind, dir string) (KV, error) {
	if kind == "" {
		kind = KindSQLite
	}
	if kind != KindMemory {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
	}
	switch kind {
	case KindSQLite:
		return OpenSQLite(filepath.Join(dir, "apitester.db"))
	case KindFile:
		return NewFileStore(dir), nil
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", kind)
	}
}
