// Package metadata stores small key/value settings of the local cache:
// the signed-in user, the offline login verifier, the session token and
// sync bookkeeping such as the last pull.
package metadata

import (
	"context"
	"time"
)

type Repository interface {
	// Get returns nil, nil for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	GetString(ctx context.Context, key string) (string, error)
	// GetTime reports ok=false for a missing key.
	GetTime(ctx context.Context, key string) (t time.Time, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	SetTime(ctx context.Context, key string, t time.Time) error
	SetMany(ctx context.Context, values map[string][]byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
