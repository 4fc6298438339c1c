// Package hook provides named publish points that components fire and
// other components subscribe to. A hook is created on first lookup, so
// publishers and subscribers may be wired in any order.
package hook

import "sync"

// PluginLoaded fires once per instantiated plugin with (type string, plugin).
const PluginLoaded = "PluginLoaded"

// Handler receives the arguments a hook is called with.
type Handler func(args ...any)

// Hook is a single named publish point.
type Hook struct {
	name string

	mu       sync.RWMutex
	handlers []Handler
}

// Name returns the hook name.
func (h *Hook) Name() string { return h.name }

// Subscribe appends fn to the handlers invoked by Call.
func (h *Hook) Subscribe(fn Handler) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.handlers = append(h.handlers, fn)
	h.mu.Unlock()
}

// Call invokes every subscribed handler in subscription order.
func (h *Hook) Call(args ...any) {
	h.mu.RLock()
	handlers := make([]Handler, len(h.handlers))
	copy(handlers, h.handlers)
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(args...)
	}
}

// Len returns the number of subscribed handlers.
func (h *Hook) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

// Registry holds hooks by name. The zero value is ready to use.
type Registry struct {
	mu    sync.Mutex
	hooks map[string]*Hook
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]*Hook)}
}

// Get returns the hook registered under name, creating it if needed.
func (r *Registry) Get(name string) *Hook {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.hooks[name]; ok {
		return h
	}
	if r.hooks == nil {
		r.hooks = make(map[string]*Hook)
	}
	h := &Hook{name: name}
	r.hooks[name] = h
	return h
}
