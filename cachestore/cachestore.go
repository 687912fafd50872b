// Package cachestore caches small JSON-encoded values with a fixed TTL.
//
// The engine uses it to keep hot per-user metadata (trust records, ladder
// positions) close to the message path, with explicit purging when a mod
// command invalidates the cached view.
package cachestore

import (
	"context"
)

type CacheStore interface {
	// Get returns the cached value, or "" on a miss.
	Get(ctx context.Context, name, key string) (string, error)
	Set(ctx context.Context, name, key string, val string) error
	Purge(ctx context.Context, name, key string) error
}
