package cache

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a PersistentStore when the key is absent.
var ErrNotFound = errors.New("cache: entry not found")

// PersistentStore mirrors allow-listed entries outside process memory.
type PersistentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
