package plugin

import (
	"sort"
	"sync"

	"github.com/ferro-labs/plugdir/internal/metrics"
)

// Manager lazily creates and caches one Registry per plugin type.
//
// Registry creation is serialized, so each type is scanned at most once
// until its registry is deleted. PluginLoaded handlers run during that scan
// and must not call Get, Reload, or Delete on the same Manager.
type Manager struct {
	vars   *Vars
	source ModuleSource

	createMu   sync.Mutex
	mu         sync.RWMutex
	registries map[string]*Registry
}

// Option configures a Manager.
type Option func(*Manager)

// WithSource sets the ModuleSource registries scan with. The default is a
// DirSource over the global factory catalog.
func WithSource(source ModuleSource) Option {
	return func(m *Manager) {
		if source != nil {
			m.source = source
		}
	}
}

// NewManager creates a Manager with no registries.
func NewManager(vars *Vars, opts ...Option) *Manager {
	m := &Manager{
		vars:       vars,
		registries: make(map[string]*Registry),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.source == nil {
		m.source = DirSource{Logger: vars.logger()}
	}
	return m
}

func (m *Manager) cached(pluginType string) (*Registry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.registries[pluginType]
	return r, ok
}

// Get returns the registry for pluginType, creating and scanning it on first
// use. Later calls return the same instance without re-scanning.
func (m *Manager) Get(pluginType string) *Registry {
	if r, ok := m.cached(pluginType); ok {
		return r
	}

	m.createMu.Lock()
	defer m.createMu.Unlock()
	if r, ok := m.cached(pluginType); ok {
		return r
	}

	r := NewRegistry(pluginType, m.vars, m.source)
	r.onDelete = m.remove

	m.mu.Lock()
	m.registries[pluginType] = r
	m.mu.Unlock()
	metrics.Registries.Inc()
	return r
}

// remove drops r if it is still the registry cached for its type.
func (m *Manager) remove(r *Registry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.registries[r.typ]
	if !ok || cur != r {
		return false
	}
	delete(m.registries, r.typ)
	metrics.Registries.Dec()
	return true
}

// Delete removes the registry cached for pluginType. The next Get creates a
// fresh registry and scans the directory again.
func (m *Manager) Delete(pluginType string) bool {
	r, ok := m.cached(pluginType)
	if !ok {
		return false
	}
	return m.remove(r)
}

// Reload replaces the registry for pluginType with a freshly scanned one.
func (m *Manager) Reload(pluginType string) *Registry {
	m.Delete(pluginType)
	return m.Get(pluginType)
}

// Types returns the sorted plugin types with a cached registry.
func (m *Manager) Types() []string {
	m.mu.RLock()
	types := make([]string, 0, len(m.registries))
	for t := range m.registries {
		types = append(types, t)
	}
	m.mu.RUnlock()
	sort.Strings(types)
	return types
}

// List returns type -> plugin name -> Info for every cached registry.
func (m *Manager) List() map[string]map[string]Info {
	m.mu.RLock()
	regs := make(map[string]*Registry, len(m.registries))
	for t, r := range m.registries {
		regs[t] = r
	}
	m.mu.RUnlock()

	out := make(map[string]map[string]Info, len(regs))
	for t, r := range regs {
		out[t] = r.List()
	}
	return out
}
