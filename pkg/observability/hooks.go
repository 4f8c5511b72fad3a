// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about frame evaluation, graph store operations, and the
// HTTP API.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, so the engine packages
// stay free of any particular metrics or tracing backend.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEvalHooks(&myEvalHooks{})
//	    observability.SetStoreHooks(&myStoreHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Eval().OnFrameStart(ctx, graphClass, chains)
//	// ... evaluate ...
//	observability.Eval().OnFrameComplete(ctx, graphClass, evaluations, errs, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Evaluation Hooks
// =============================================================================

// EvalHooks receives events from per-frame graph evaluation.
type EvalHooks interface {
	// OnFrameStart records the start of a frame with the number of event
	// nodes that will start flow chains.
	OnFrameStart(ctx context.Context, graphClass string, chains int)

	// OnFrameComplete records the end of a frame.
	OnFrameComplete(ctx context.Context, graphClass string, evaluations, errs int, duration time.Duration)

	// OnNodeError records one evaluation error.
	OnNodeError(ctx context.Context, nodeClass, kind string)
}

// =============================================================================
// Store Hooks
// =============================================================================

// StoreHooks receives events from graph document stores.
type StoreHooks interface {
	// OnStoreGet records a read. Hit is false when the key was absent.
	OnStoreGet(ctx context.Context, backend string, hit bool, duration time.Duration)

	// OnStorePut records a write of size bytes.
	OnStorePut(ctx context.Context, backend string, size int, duration time.Duration)

	// OnStoreDelete records a delete.
	OnStoreDelete(ctx context.Context, backend string)

	// OnStoreError records a failed backend call.
	OnStoreError(ctx context.Context, backend, op string, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the HTTP API server.
type HTTPHooks interface {
	// OnRequest records an incoming HTTP request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records the response written for a request.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEvalHooks is a no-op implementation of EvalHooks.
type NoopEvalHooks struct{}

func (NoopEvalHooks) OnFrameStart(context.Context, string, int)                        {}
func (NoopEvalHooks) OnFrameComplete(context.Context, string, int, int, time.Duration) {}
func (NoopEvalHooks) OnNodeError(context.Context, string, string)                      {}

// NoopStoreHooks is a no-op implementation of StoreHooks.
type NoopStoreHooks struct{}

func (NoopStoreHooks) OnStoreGet(context.Context, string, bool, time.Duration) {}
func (NoopStoreHooks) OnStorePut(context.Context, string, int, time.Duration)  {}
func (NoopStoreHooks) OnStoreDelete(context.Context, string)                   {}
func (NoopStoreHooks) OnStoreError(context.Context, string, string, error)     {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	evalHooks  EvalHooks  = NoopEvalHooks{}
	storeHooks StoreHooks = NoopStoreHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetEvalHooks registers custom evaluation hooks.
// This should be called once at application startup before any frame runs.
func SetEvalHooks(h EvalHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		evalHooks = h
	}
}

// SetStoreHooks registers custom store hooks.
func SetStoreHooks(h StoreHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		storeHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Eval returns the registered evaluation hooks.
func Eval() EvalHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return evalHooks
}

// Store returns the registered store hooks.
func Store() StoreHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return storeHooks
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
	evalHooks = NoopEvalHooks{}
	storeHooks = NoopStoreHooks{}
	httpHooks = NoopHTTPHooks{}
}
