package shutdown

import (
	"context"
	"sort"
	"sync"

	"planforge/core"
)

// entry holds a registered cleanup function with metadata.
type entry struct {
	name     string
	fn       core.ShutdownFunc
	priority int // lower = earlier execution
}

// Registry maintains an ordered collection of cleanup functions.
//
// Usage:
//
//	registry := NewRegistry()
//	registry.Register("async-writer", 20, func(ctx context.Context) error {
//	    writer.Stop()
//	    return nil
//	})
//	registry.Register("database", 30, func(ctx context.Context) error {
//	    return database.Close()
//	})
//
//	errs := registry.Shutdown(ctx)
type Registry struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
}

// NewRegistry creates a Registry ready to accept registrations.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a cleanup function. Lower priority values execute earlier.
// Registration after Shutdown is a no-op.
//
// Priority convention:
//   - 0-9: flush logs and metrics
//   - 10-19: stop accepting work (provider manager, cache)
//   - 20-29: stop background workers (async writer, collectors)
//   - 30-39: close resources (database, files)
//   - 40+: remove temp files
func (r *Registry) Register(name string, priority int, fn core.ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.entries = append(r.entries, entry{name: name, fn: fn, priority: priority})
}

// Shutdown executes all registered functions in priority order. Every
// function runs even if earlier ones fail; the failures are collected and
// returned. The registry is closed afterwards.
func (r *Registry) Shutdown(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sorted := make([]entry, len(r.entries))
	copy(sorted, r.entries)
	r.mu.Unlock()

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})

	var errs []error
	for _, e := range sorted {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Names returns the registered names in priority order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	sorted := make([]entry, len(r.entries))
	copy(sorted, r.entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})

	names := make([]string, len(sorted))
	for i, e := range sorted {
		names[i] = e.name
	}
	return names
}

// Count returns the number of registered functions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IsClosed reports whether Shutdown has been called.
func (r *Registry) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
