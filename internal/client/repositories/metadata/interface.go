package metadata

import (
	"context"
)

// Repository is the client's local key-value store. Every row carries a
// version that CompareAndSet checks, so two processes sharing the same
// database file cannot silently overwrite each other's read-modify-write.
type Repository interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) (map[string][]byte, error)

	// GetVersioned returns version 0 for an absent key.
	GetVersioned(ctx context.Context, key string) ([]byte, int64, error)
	// CompareAndSet writes value only if the stored version still equals
	// expected (0 meaning "absent") and returns the new version. A lost race
	// is common.ErrVersionConflict.
	CompareAndSet(ctx context.Context, key string, value []byte, expected int64) (int64, error)
}
