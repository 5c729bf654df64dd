package storage

import "context"

// Store is a durable key/value store for the client's local state.
//
// Get returns (nil, nil) for an absent key so callers can tell "no data"
// apart from a failure. Every failure is a *common.StorageError.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// List returns all pairs whose key starts with prefix ("" lists everything).
	List(ctx context.Context, prefix string) (map[string][]byte, error)
	Clear(ctx context.Context) error

	// Update atomically replaces the value under key with fn(old). old is nil
	// when the key is absent. If fn returns an error nothing is written and
	// the error is returned unchanged. A nil result deletes the key.
	Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error
}
