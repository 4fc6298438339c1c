package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ferro-labs/plugdir/internal/metrics"
)

// Directory conventions.
const (
	// PluginDirKey is the configuration key holding the plugin root directory.
	PluginDirKey = "plugin.plugindir"
	// DefaultPluginDir is used when PluginDirKey is unset, relative to the
	// working directory.
	DefaultPluginDir = "plugins"
	// DisableMarker prefixes module names that must not be instantiated.
	DisableMarker = "_"
)

// ScanReport is the outcome of the one-time directory scan of a Registry.
// A scan never aborts registry creation: failures leave the registry
// partially or entirely empty and are recorded here.
type ScanReport struct {
	Type string
	Dir  string
	// Enabled lists the module names that were instantiated.
	Enabled []string
	// Disabled lists disabled module names with the marker stripped.
	Disabled []string
	// Failed maps module names to their construction error.
	Failed map[string]error
	// Created is set when the directory was missing and has been created.
	Created bool
	// Err is set when the directory could not be enumerated or created.
	Err error
}

// OK reports whether the scan finished without any error.
func (r ScanReport) OK() bool {
	return r.Err == nil && len(r.Failed) == 0
}

// MarshalJSON renders errors as strings.
func (r ScanReport) MarshalJSON() ([]byte, error) {
	out := struct {
		Type     string            `json:"type"`
		Dir      string            `json:"dir"`
		Enabled  []string          `json:"enabled"`
		Disabled []string          `json:"disabled"`
		Failed   map[string]string `json:"failed,omitempty"`
		Created  bool              `json:"created"`
		Error    string            `json:"error,omitempty"`
	}{
		Type:     r.Type,
		Dir:      r.Dir,
		Enabled:  r.Enabled,
		Disabled: r.Disabled,
		Created:  r.Created,
	}
	if out.Enabled == nil {
		out.Enabled = []string{}
	}
	if out.Disabled == nil {
		out.Disabled = []string{}
	}
	if len(r.Failed) > 0 {
		out.Failed = make(map[string]string, len(r.Failed))
		for name, err := range r.Failed {
			out.Failed[name] = err.Error()
		}
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

func (r ScanReport) clone() ScanReport {
	c := r
	c.Enabled = append([]string(nil), r.Enabled...)
	c.Disabled = append([]string(nil), r.Disabled...)
	if r.Failed != nil {
		c.Failed = make(map[string]error, len(r.Failed))
		for k, v := range r.Failed {
			c.Failed[k] = v
		}
	}
	return c
}

// Registry holds the plugins of one type. It scans its directory exactly
// once, on creation; later additions go through Load.
type Registry struct {
	typ    string
	dir    string
	vars   *Vars
	report ScanReport

	mu       sync.RWMutex
	plugins  map[string]Plugin
	onDelete func(*Registry) bool
}

// PluginRoot returns the plugin root directory configured in vars.
func PluginRoot(vars *Vars) string {
	if root, ok := vars.lookup(PluginDirKey); ok && root != "" {
		return root
	}
	if abs, err := filepath.Abs(DefaultPluginDir); err == nil {
		return abs
	}
	return DefaultPluginDir
}

// NewRegistry creates a standalone registry for pluginType and scans its
// directory through source. A nil source scans with DirSource. Registries
// created this way are not owned by a Manager and Delete is a no-op.
func NewRegistry(pluginType string, vars *Vars, source ModuleSource) *Registry {
	if source == nil {
		source = DirSource{Logger: vars.logger()}
	}
	r := &Registry{
		typ:     pluginType,
		dir:     filepath.Join(PluginRoot(vars), pluginType),
		vars:    vars,
		plugins: make(map[string]Plugin),
	}
	r.report = ScanReport{Type: r.typ, Dir: r.dir}
	r.scan(source)
	return r
}

func (r *Registry) scan(source ModuleSource) {
	start := time.Now()
	defer func() {
		metrics.ScanDuration.WithLabelValues(r.typ).Observe(time.Since(start).Seconds())
	}()
	log := r.vars.logger().With("type", r.typ)

	modules, err := source.Modules(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			metrics.ScanErrors.WithLabelValues(r.typ, "missing_dir").Inc()
			log.Warn("plugin directory not found", "dir", r.dir)
			if mkErr := os.MkdirAll(r.dir, 0o755); mkErr != nil { //nolint:gosec
				r.report.Err = fmt.Errorf("create plugin directory %s: %w", r.dir, mkErr)
				log.Error("failed to create plugin directory", "dir", r.dir, "error", mkErr)
				return
			}
			r.report.Created = true
			log.Info("created plugin directory", "dir", r.dir)
			return
		}
		metrics.ScanErrors.WithLabelValues(r.typ, "scan_error").Inc()
		r.report.Err = fmt.Errorf("scan plugin directory %s: %w", r.dir, err)
		log.Error("plugin scan failed", "dir", r.dir, "error", err)
		return
	}

	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	log.Info("found plugins", "dir", r.dir, "count", len(names))

	for _, name := range names {
		if strings.HasPrefix(name, DisableMarker) {
			display := strings.TrimPrefix(name, DisableMarker)
			r.report.Disabled = append(r.report.Disabled, display)
			metrics.PluginsDisabled.WithLabelValues(r.typ).Inc()
			log.Info("plugin disabled", "module", display)
			continue
		}

		p, info, err := construct(modules[name], r.vars)
		if err != nil {
			if r.report.Failed == nil {
				r.report.Failed = make(map[string]error)
			}
			r.report.Failed[name] = err
			metrics.LoadFailures.WithLabelValues(r.typ, metrics.SourceScan).Inc()
			log.Error("plugin construction failed", "module", name, "error", err)
			continue
		}

		r.register(info.Name, p)
		r.report.Enabled = append(r.report.Enabled, name)
		metrics.PluginsLoaded.WithLabelValues(r.typ, metrics.SourceScan).Inc()
		r.vars.fireLoaded(r.typ, p)
		log.Info("plugin enabled", "module", name, "name", info.Name)
	}
}

// register stores p under name. A later plugin with the same name replaces
// the earlier one.
func (r *Registry) register(name string, p Plugin) {
	r.mu.Lock()
	r.plugins[name] = p
	r.mu.Unlock()
}

// Type returns the plugin type this registry serves.
func (r *Registry) Type() string { return r.typ }

// Dir returns the directory the registry scanned.
func (r *Registry) Dir() string { return r.dir }

// Report returns a copy of the scan outcome.
func (r *Registry) Report() ScanReport { return r.report.clone() }

// List returns a snapshot mapping every registered plugin name to its Info.
// The map is a copy; changing it does not affect the registry.
func (r *Registry) List() map[string]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Info, len(r.plugins))
	for name, p := range r.plugins {
		out[name] = p.Info()
	}
	return out
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Names returns the sorted registered plugin names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Load instantiates f with the shared context and registers the result.
// Manual loads ignore the disable marker. On failure the registry is left
// unchanged and the error is logged and returned.
func (r *Registry) Load(f Factory) (Plugin, error) {
	log := r.vars.logger()

	p, info, err := construct(f, r.vars)
	if err != nil {
		metrics.LoadFailures.WithLabelValues(r.typ, metrics.SourceManual).Inc()
		log.Error("manual plugin load failed", "type", r.typ, "error", err)
		return nil, fmt.Errorf("load %s plugin: %w", r.typ, err)
	}

	r.register(info.Name, p)
	metrics.PluginsLoaded.WithLabelValues(r.typ, metrics.SourceManual).Inc()
	r.vars.fireLoaded(r.typ, p)
	log.Info("plugin loaded manually", "type", r.typ, "name", info.Name)
	return p, nil
}

// Delete removes the registry from the Manager that created it and reports
// whether it was removed. Plugins already created stay usable by whoever
// holds them. Standalone registries are never removed.
func (r *Registry) Delete() bool {
	r.mu.RLock()
	fn := r.onDelete
	r.mu.RUnlock()
	if fn == nil {
		return false
	}
	return fn(r)
}
