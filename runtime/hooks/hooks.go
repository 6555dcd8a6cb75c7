// Package hooks keeps the ordered before/after callbacks fired around
// query execution.
package hooks

import (
	"context"
	"sync"

	"github.com/satishbabariya/strata/internal/debug"
	"github.com/satishbabariya/strata/query/ast"
	"github.com/satishbabariya/strata/query/table"
)

// Type tells whether a hook fires before or after execution.
type Type string

const (
	Before Type = "before"
	After  Type = "after"
)

// Event is the payload handed to every hook.
type Event struct {
	Query   string
	Params  []any
	Type    ast.QueryType
	Hook    Type
	Table   string
	Dialect table.Dialect
}

// Func is a hook callback. Hooks observe; they cannot abort a query.
type Func func(ctx context.Context, e Event)

// ID identifies a registered hook for removal.
type ID uint64

type entry struct {
	id ID
	fn Func
}

// Registry holds hooks in registration order per Type.
type Registry struct {
	mu     sync.RWMutex
	nextID ID
	hooks  map[Type][]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[Type][]entry)}
}

// Add registers fn and returns its id.
func (r *Registry) Add(t Type, fn Func) ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	r.hooks[t] = append(r.hooks[t], entry{id: r.nextID, fn: fn})
	return r.nextID
}

// Remove unregisters the hook with the given id. It reports whether a
// hook was removed.
func (r *Registry) Remove(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for t, entries := range r.hooks {
		for i, e := range entries {
			if e.id != id {
				continue
			}
			r.hooks[t] = append(entries[:i:i], entries[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of hooks registered for t.
func (r *Registry) Len(t Type) int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks[t])
}

// Fire calls every hook of e.Hook in registration order. A nil registry
// fires nothing.
func (r *Registry) Fire(ctx context.Context, e Event) {
	if r == nil {
		return
	}

	r.mu.RLock()
	entries := append([]entry(nil), r.hooks[e.Hook]...)
	r.mu.RUnlock()

	if len(entries) == 0 {
		return
	}

	debug.Debug("hooks", "firing hooks", "hook", e.Hook, "type", e.Type, "count", len(entries))
	for _, h := range entries {
		h.fn(ctx, e)
	}
}
