// Package metadata stores the client's session values in the local
// database, one row per fixed key.
package metadata

import (
	"context"
)

// Repository is a key/value store for session state.
//
// Get returns (nil, nil) for a missing key. Delete ignores missing keys.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
