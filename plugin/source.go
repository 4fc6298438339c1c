package plugin

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ferro-labs/plugdir/internal/logging"
)

// ModuleSource enumerates the modules found in a directory and maps each
// module name to the factory that instantiates it. A missing directory must
// be reported with an error satisfying errors.Is(err, fs.ErrNotExist).
type ModuleSource interface {
	Modules(dir string) (map[string]Factory, error)
}

// SourceFunc adapts an ordinary function to a ModuleSource.
type SourceFunc func(dir string) (map[string]Factory, error)

// Modules calls f(dir).
func (f SourceFunc) Modules(dir string) (map[string]Factory, error) {
	return f(dir)
}

// DirSource resolves the files of a plugin directory against the factory
// catalog.
//
// Every regular, non-hidden file is a module named after its base name
// without extension. Descriptor files (.yaml, .yml, .json) may name the
// factory and carry options; any other file resolves to the factory named
// after the module itself. The disable marker is never part of the factory
// name.
type DirSource struct {
	// Lookup resolves factory names. Defaults to GetFactory.
	Lookup func(name string) (Factory, bool)
	// Logger receives duplicate-module warnings. Defaults to logging.Logger.
	Logger *slog.Logger
}

// Modules reads dir (non-recursively). When two files share a module name
// the first in lexical order wins.
func (s DirSource) Modules(dir string) (map[string]Factory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	modules := make(map[string]Factory, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		module := strings.TrimSuffix(name, filepath.Ext(name))
		if module == "" {
			continue
		}
		if _, dup := modules[module]; dup {
			s.logger().Warn("duplicate plugin module ignored", "dir", dir, "file", name, "module", module)
			continue
		}
		modules[module] = s.ModuleFactory(module, filepath.Join(dir, name))
	}
	return modules, nil
}

// ModuleFactory returns the constructor for the module file at path, as a
// scan of its directory would build it. The file is read when the factory
// runs, not here.
func (s DirSource) ModuleFactory(module, path string) Factory {
	return func(vars *Vars) (Plugin, error) {
		factoryName := strings.TrimPrefix(module, DisableMarker)
		config := map[string]interface{}{}

		if IsDescriptor(path) {
			d, err := LoadDescriptor(path)
			if err != nil {
				return nil, err
			}
			if d.Factory != "" {
				factoryName = d.Factory
			}
			if d.Config != nil {
				config = d.Config
			}
		}

		f, ok := s.lookup(factoryName)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFactory, factoryName)
		}
		p, err := f(vars)
		if err != nil {
			return nil, fmt.Errorf("factory %s: %w", factoryName, err)
		}
		if p == nil {
			return nil, ErrNilPlugin
		}
		if c, ok := p.(Configurable); ok {
			if err := c.Init(config); err != nil {
				return nil, fmt.Errorf("init %s: %w", factoryName, err)
			}
		}
		return p, nil
	}
}

func (s DirSource) lookup(name string) (Factory, bool) {
	if s.Lookup != nil {
		return s.Lookup(name)
	}
	return GetFactory(name)
}

func (s DirSource) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return logging.Logger
}
