// Package plugin loads plugins from a directory-per-type layout.
//
// A Manager hands out one Registry per plugin type. On creation a Registry
// scans <plugindir>/<type>, turns every discovered module into a plugin
// instance through a ModuleSource, and registers it under the name the
// plugin reports in its Info. Modules whose base name starts with "_" are
// disabled and never instantiated.
//
// Go has no runtime "require every file in a directory", so modules resolve
// to factories in a process-wide catalog. Built-in plugins register
// themselves from init() and are linked in with a blank import:
//
//	_ "github.com/ferro-labs/plugdir/internal/plugins/wordfilter"
package plugin

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ferro-labs/plugdir/hook"
	"github.com/ferro-labs/plugdir/internal/logging"
)

// Plugin is the interface all plugins must implement.
type Plugin interface {
	Info() Info
}

// Configurable is implemented by plugins that accept per-module options
// from a descriptor file.
type Configurable interface {
	Init(config map[string]interface{}) error
}

// Info describes a plugin instance. Name is the registration key.
type Info struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string `json:"version,omitempty" yaml:"version,omitempty"`
}

// Factory creates a new plugin instance from the shared context.
type Factory func(vars *Vars) (Plugin, error)

// ConfigSource is a read-only key/value view of the process configuration.
type ConfigSource interface {
	Lookup(key string) (string, bool)
}

// Vars is the shared context handed to every registry and plugin factory.
// It is built once at startup and must not be mutated afterwards.
type Vars struct {
	Config ConfigSource
	Hooks  *hook.Registry
	Logger *slog.Logger
}

func (v *Vars) logger() *slog.Logger {
	if v == nil || v.Logger == nil {
		return logging.Logger
	}
	return v.Logger
}

func (v *Vars) lookup(key string) (string, bool) {
	if v == nil || v.Config == nil {
		return "", false
	}
	return v.Config.Lookup(key)
}

func (v *Vars) fireLoaded(pluginType string, p Plugin) {
	if v == nil || v.Hooks == nil {
		return
	}
	v.Hooks.Get(hook.PluginLoaded).Call(pluginType, p)
}

// OnLoaded subscribes fn to the PluginLoaded hook of h.
func OnLoaded(h *hook.Registry, fn func(pluginType string, p Plugin)) {
	h.Get(hook.PluginLoaded).Subscribe(func(args ...any) {
		if len(args) != 2 {
			return
		}
		pluginType, _ := args[0].(string)
		p, ok := args[1].(Plugin)
		if !ok {
			return
		}
		fn(pluginType, p)
	})
}

// Errors reported for individual plugins.
var (
	ErrNoName            = errors.New("plugin info has no name")
	ErrNilPlugin         = errors.New("factory returned a nil plugin")
	ErrUnknownFactory    = errors.New("no factory registered")
	ErrInvalidDescriptor = errors.New("invalid plugin descriptor")
	ErrPanicked          = errors.New("plugin panicked")
)

// construct runs f and enforces the naming contract. A panic in the factory
// or in Info is returned as ErrPanicked.
func construct(f Factory, vars *Vars) (p Plugin, info Info, err error) {
	if f == nil {
		return nil, Info{}, ErrNilPlugin
	}
	defer func() {
		if r := recover(); r != nil {
			p, info, err = nil, Info{}, fmt.Errorf("%w: %v", ErrPanicked, r)
		}
	}()

	p, err = f(vars)
	if err != nil {
		return nil, Info{}, err
	}
	if p == nil {
		return nil, Info{}, ErrNilPlugin
	}
	info = p.Info()
	if info.Name == "" {
		return nil, Info{}, ErrNoName
	}
	return p, info, nil
}

// ValidType reports whether name is usable as a plugin type, i.e. a single
// path element that stays inside the plugin root.
func ValidType(name string) error {
	switch {
	case name == "":
		return errors.New("plugin type is empty")
	case name == "." || name == "..":
		return fmt.Errorf("invalid plugin type %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("plugin type %q must not contain path separators", name)
	}
	return nil
}
