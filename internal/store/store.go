// Package store abstracts the durable key-value layer that survives
// process restarts. Only the session-domain slice is persisted here;
// callers address it through the whitelisted keys in config.CacheKey.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("store: key not found")

// KV is the opaque durable store contract: last-write-wins string
// values keyed by the session-domain whitelist.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
