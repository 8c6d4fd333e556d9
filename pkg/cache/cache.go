// Package cache stores rendered scenes and artifacts keyed by content hash.
//
// # Backends
//
//   - [FileCache]: one JSON file per key under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for servers behind a balancer
//   - [NullCache]: never stores anything, for --no-cache and tests
//
// # Keys
//
// A [Keyer] derives keys from the hash of a layout or scene plus the options
// that influence the output, so any change to the items, the zoom level or
// the viewport produces a different key and stale artifacts are never
// served.
//
// # Retries
//
// [RetryWithBackoff] retries operations whose error was wrapped with
// [Retryable]. Network host adapters use it for loads; commits are never
// retried because the outcome of a failed commit is unknown.
package cache

import (
	"context"
	"time"
)

// Default TTLs.
const (
	TTLScene    = 24 * time.Hour
	TTLArtifact = 7 * 24 * time.Hour
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value and true on a hit. Misses are not errors.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}
