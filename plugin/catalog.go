package plugin

import (
	"sort"
	"sync"
)

var (
	catalogMu sync.RWMutex
	// catalog is the global table of plugin factories.
	catalog = map[string]Factory{}
)

// RegisterFactory registers a plugin factory by name. Registering the same
// name twice replaces the earlier factory.
func RegisterFactory(name string, factory Factory) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	catalog[name] = factory
}

// GetFactory returns a plugin factory by name.
func GetFactory(name string) (Factory, bool) {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	f, ok := catalog[name]
	return f, ok
}

// RegisteredPlugins returns the sorted names of all registered factories.
func RegisteredPlugins() []string {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
