// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup
// to receive events about view loading, layout and rendering, drag gestures,
// cache operations and inbound HTTP requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by library code, so libraries stay
// free of observability frameworks. The prom subpackage implements every
// interface with Prometheus collectors.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    m := prom.New(prometheus.NewRegistry())
//	    m.Install()
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.View().OnLoadStart(ctx, "sqlite")
//	// ... load items ...
//	observability.View().OnLoadComplete(ctx, "sqlite", len(items), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// View Hooks
// =============================================================================

// ViewHooks receives events from loading, layout and rendering.
type ViewHooks interface {
	// Load events
	OnLoadStart(ctx context.Context, driver string)
	OnLoadComplete(ctx context.Context, driver string, itemCount int, duration time.Duration, err error)

	// Layout events
	OnLayoutComplete(ctx context.Context, policy string, barCount, rowCount int, duration time.Duration)

	// Render events
	OnRenderStart(ctx context.Context, formats []string)
	OnRenderComplete(ctx context.Context, formats []string, duration time.Duration, err error)
}

// =============================================================================
// Gesture Hooks
// =============================================================================

// GestureHooks receives drag lifecycle events.
type GestureHooks interface {
	// OnBegin records a drag entering the Dragging state.
	OnBegin(ctx context.Context, itemID, mode string)

	// OnConflict records a drag refused because one was already active.
	OnConflict(ctx context.Context, itemID string)

	// OnCancel records a drag discarded before commit.
	OnCancel(ctx context.Context, itemID string)

	// OnCommit records a finished commit. reason is empty on success.
	OnCommit(ctx context.Context, itemID string, duration time.Duration, reason string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API.
type HTTPHooks interface {
	// OnRequest records an inbound request.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records the response status and latency.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopViewHooks is a no-op implementation of ViewHooks.
type NoopViewHooks struct{}

func (NoopViewHooks) OnLoadStart(context.Context, string)                                 {}
func (NoopViewHooks) OnLoadComplete(context.Context, string, int, time.Duration, error)   {}
func (NoopViewHooks) OnLayoutComplete(context.Context, string, int, int, time.Duration)   {}
func (NoopViewHooks) OnRenderStart(context.Context, []string)                             {}
func (NoopViewHooks) OnRenderComplete(context.Context, []string, time.Duration, error)    {}

// NoopGestureHooks is a no-op implementation of GestureHooks.
type NoopGestureHooks struct{}

func (NoopGestureHooks) OnBegin(context.Context, string, string)                 {}
func (NoopGestureHooks) OnConflict(context.Context, string)                      {}
func (NoopGestureHooks) OnCancel(context.Context, string)                        {}
func (NoopGestureHooks) OnCommit(context.Context, string, time.Duration, string) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                     {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	viewHooks    ViewHooks    = NoopViewHooks{}
	gestureHooks GestureHooks = NoopGestureHooks{}
	cacheHooks   CacheHooks   = NoopCacheHooks{}
	httpHooks    HTTPHooks    = NoopHTTPHooks{}
	hooksMu      sync.RWMutex
)

// SetViewHooks registers custom view hooks.
// This should be called once at application startup.
func SetViewHooks(h ViewHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		viewHooks = h
	}
}

// SetGestureHooks registers custom gesture hooks.
// This should be called once at application startup.
func SetGestureHooks(h GestureHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		gestureHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before serving.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// View returns the registered view hooks.
func View() ViewHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return viewHooks
}

// Gesture returns the registered gesture hooks.
func Gesture() GestureHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return gestureHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	viewHooks = NoopViewHooks{}
	gestureHooks = NoopGestureHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
