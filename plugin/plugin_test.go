package plugin

import (
	"errors"
	"sync"
	"testing"

	"github.com/ferro-labs/plugdir/hook"
	"github.com/ferro-labs/plugdir/internal/logging"
)

// testPlugin is a configurable test double for the Plugin interface.
type testPlugin struct {
	info   Info
	vars   *Vars
	config map[string]interface{}
}

func (p *testPlugin) Info() Info { return p.info }

func (p *testPlugin) Init(config map[string]interface{}) error {
	p.config = config
	return nil
}

func namedFactory(name string) Factory {
	return func(vars *Vars) (Plugin, error) {
		return &testPlugin{info: Info{Name: name}, vars: vars}, nil
	}
}

func failingFactory(err error) Factory {
	return func(_ *Vars) (Plugin, error) {
		return nil, err
	}
}

func panickingFactory(msg string) Factory {
	return func(_ *Vars) (Plugin, error) {
		panic(msg)
	}
}

// typedNilFactory returns a nil *testPlugin wrapped in a non-nil Plugin.
func typedNilFactory() Factory {
	return func(_ *Vars) (Plugin, error) {
		var p *testPlugin
		return p, nil
	}
}

type mapConfig map[string]string

func (c mapConfig) Lookup(key string) (string, bool) {
	v, ok := c[key]
	return v, ok
}

type loadedEvent struct {
	typ    string
	plugin Plugin
}

// recorder collects PluginLoaded events.
type recorder struct {
	mu     sync.Mutex
	events []loadedEvent
}

func (r *recorder) all() []loadedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]loadedEvent(nil), r.events...)
}

func newTestVars(t *testing.T, root string) (*Vars, *recorder) {
	t.Helper()
	hooks := hook.NewRegistry()
	rec := &recorder{}
	OnLoaded(hooks, func(pluginType string, p Plugin) {
		rec.mu.Lock()
		rec.events = append(rec.events, loadedEvent{typ: pluginType, plugin: p})
		rec.mu.Unlock()
	})
	return &Vars{
		Config: mapConfig{PluginDirKey: root},
		Hooks:  hooks,
		Logger: logging.Discard(),
	}, rec
}

func staticSource(modules map[string]Factory) SourceFunc {
	return func(_ string) (map[string]Factory, error) {
		return modules, nil
	}
}

var errBoom = errors.New("boom")

func TestValidType(t *testing.T) {
	for _, name := range []string{"commands", "middle-ware", "_x"} {
		if err := ValidType(name); err != nil {
			t.Errorf("ValidType(%q) = %v, want nil", name, err)
		}
	}
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		if err := ValidType(name); err == nil {
			t.Errorf("ValidType(%q) = nil, want error", name)
		}
	}
}
