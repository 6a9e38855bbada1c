// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about fold execution, graph rewrites, and HTTP calls made
// by plugins.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// This approach:
//   - Avoids import cycles (hooks are registered by main, not by libraries)
//   - Keeps the core library dependency-free from observability frameworks
//   - Allows different backends (OpenTelemetry, Prometheus, DataDog, etc.)
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetFoldHooks(&myFoldHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Fold().OnFoldStart(ctx, runID, nodeCount)
//	// ... evaluate ...
//	observability.Fold().OnFoldComplete(ctx, runID, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Fold Hooks
// =============================================================================

// FoldHooks receives events from the fold evaluator. Node events fire for
// every handler dispatch, including dispatches inside subfolds launched by
// concurrency or loop handlers; those share the root fold's run ID.
type FoldHooks interface {
	// OnFoldStart records the beginning of a root fold call.
	OnFoldStart(ctx context.Context, runID string, nodeCount int)

	// OnFoldComplete records the end of a root fold call.
	OnFoldComplete(ctx context.Context, runID string, duration time.Duration, err error)

	// OnNodeStart records a handler dispatch for one node.
	OnNodeStart(ctx context.Context, runID, nodeID, kind string)

	// OnNodeComplete records a handler returning, successfully or not.
	OnNodeComplete(ctx context.Context, runID, nodeID, kind string, duration time.Duration, err error)
}

// =============================================================================
// Rewrite Hooks
// =============================================================================

// RewriteHooks receives events from the dagql rewrite layer.
type RewriteHooks interface {
	// OnRewrite records one rewrite operation (e.g. "replaceWhere") and how
	// many nodes it matched. Failed rewrites are not reported.
	OnRewrite(op string, matched int)

	// OnGC records a garbage-collection pass: node counts before and after.
	OnGC(before, after int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP calls made by plugins.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopFoldHooks is a no-op implementation of FoldHooks.
type NoopFoldHooks struct{}

func (NoopFoldHooks) OnFoldStart(context.Context, string, int)                     {}
func (NoopFoldHooks) OnFoldComplete(context.Context, string, time.Duration, error) {}
func (NoopFoldHooks) OnNodeStart(context.Context, string, string, string)          {}
func (NoopFoldHooks) OnNodeComplete(context.Context, string, string, string, time.Duration, error) {
}

// NoopRewriteHooks is a no-op implementation of RewriteHooks.
type NoopRewriteHooks struct{}

func (NoopRewriteHooks) OnRewrite(string, int) {}
func (NoopRewriteHooks) OnGC(int, int)         {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	foldHooks    FoldHooks    = NoopFoldHooks{}
	rewriteHooks RewriteHooks = NoopRewriteHooks{}
	httpHooks    HTTPHooks    = NoopHTTPHooks{}
	hooksMu      sync.RWMutex
)

// SetFoldHooks registers custom fold hooks.
// This should be called once at application startup before any fold calls.
func SetFoldHooks(h FoldHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		foldHooks = h
	}
}

// SetRewriteHooks registers custom rewrite hooks.
// This should be called once at application startup before any rewrites.
func SetRewriteHooks(h RewriteHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		rewriteHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Fold returns the registered fold hooks.
func Fold() FoldHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return foldHooks
}

// Rewrite returns the registered rewrite hooks.
func Rewrite() RewriteHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return rewriteHooks
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
	foldHooks = NoopFoldHooks{}
	rewriteHooks = NoopRewriteHooks{}
	httpHooks = NoopHTTPHooks{}
}
