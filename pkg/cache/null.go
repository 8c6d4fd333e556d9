package cache

import (
	"context"
	"time"
)

// NullCache stores nothing. Renders run uncached when the user passes
// --no-cache, sets cache.disabled, or no cache directory can be found;
// Reason records which.
type NullCache struct {
	Reason string
}

// NewNullCache returns a NullCache with no reason attached.
func NewNullCache() Cache { return NullCache{} }

// Disabled returns a NullCache recording why caching is off.
func Disabled(reason string) Cache { return NullCache{Reason: reason} }

// IsDisabled reports whether c never stores entries, so callers can skip
// deriving keys and serializing scenes for it.
func IsDisabled(c Cache) bool {
	_, ok := c.(NullCache)
	return c == nil || ok
}

// DisabledReason returns why c is disabled, or "" for a working cache.
func DisabledReason(c Cache) string {
	if n, ok := c.(NullCache); ok {
		if n.Reason == "" {
			return "disabled"
		}
		return n.Reason
	}
	return ""
}

func (NullCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NullCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NullCache) Delete(context.Context, string) error                     { return nil }
func (NullCache) Close() error                                             { return nil }

var _ Cache = NullCache{}
