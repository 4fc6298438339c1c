package plugin

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/ferro-labs/plugdir/internal/logging"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func testSource(factories map[string]Factory) DirSource {
	return DirSource{
		Lookup: func(name string) (Factory, bool) {
			f, ok := factories[name]
			return f, ok
		},
		Logger: logging.Discard(),
	}
}

func TestDirSource_Modules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "alpha.plugin", "")
	writeFile(t, dir, "alpha.yaml", "factory: never-used\n")
	writeFile(t, dir, "_beta.yaml", "factory: beta\n")
	writeFile(t, dir, "gamma.json", `{"factory":"gamma-impl","config":{"limit":3}}`)
	writeFile(t, dir, ".hidden", "")
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	src := testSource(map[string]Factory{
		"alpha":      namedFactory("alpha"),
		"beta":       namedFactory("beta"),
		"gamma-impl": namedFactory("gamma"),
	})

	modules, err := src.Modules(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var names []string
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	want := []string{"_beta", "alpha", "gamma"}
	if len(names) != len(want) {
		t.Fatalf("got modules %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("got modules %v, want %v", names, want)
		}
	}

	// alpha.plugin sorts before alpha.yaml, so the marker file wins.
	p, err := modules["alpha"](nil)
	if err != nil {
		t.Fatalf("alpha: %v", err)
	}
	if p.Info().Name != "alpha" {
		t.Errorf("got %q, want alpha", p.Info().Name)
	}

	p, err = modules["gamma"](nil)
	if err != nil {
		t.Fatalf("gamma: %v", err)
	}
	cfg := p.(*testPlugin).config
	if limit, ok := cfg["limit"].(float64); !ok || limit != 3 {
		t.Errorf("expected descriptor config passed to Init, got %#v", cfg)
	}
}

func TestDirSource_MarkerFileResolvesWithoutDisablePrefix(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "_echo", "")

	modules, err := testSource(map[string]Factory{"echo": namedFactory("echo")}).Modules(dir)
	if err != nil {
		t.Fatal(err)
	}
	p, err := modules["_echo"](nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg := p.(*testPlugin).config; cfg == nil || len(cfg) != 0 {
		t.Errorf("expected empty non-nil config for marker files, got %#v", cfg)
	}
}

func TestDirSource_ModuleFactoryUsesGivenFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "foo.json", `{"factory": "a"}`)
	writeFile(t, dir, "foo.yaml", "factory: b\n")
	src := testSource(map[string]Factory{"a": namedFactory("a"), "b": namedFactory("b")})

	modules, err := src.Modules(dir)
	if err != nil {
		t.Fatal(err)
	}
	p, err := modules["foo"](nil)
	if err != nil || p.Info().Name != "a" {
		t.Fatalf("scan must resolve foo from foo.json, got %v %v", p, err)
	}

	p, err = src.ModuleFactory("foo", filepath.Join(dir, "foo.yaml"))(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Info().Name != "b" {
		t.Errorf("expected factory b from foo.yaml, got %q", p.Info().Name)
	}
}

func TestDirSource_ConstructionErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "unknown.plugin", "")
	writeFile(t, dir, "broken.yaml", "factory: x\nbogus: 1\n")
	writeFile(t, dir, "failing.plugin", "")
	writeFile(t, dir, "nil.plugin", "")

	modules, err := testSource(map[string]Factory{
		"failing": failingFactory(errBoom),
		"nil":     func(_ *Vars) (Plugin, error) { return nil, nil },
	}).Modules(dir)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		module string
		want   error
	}{
		{"unknown", ErrUnknownFactory},
		{"broken", ErrInvalidDescriptor},
		{"failing", errBoom},
		{"nil", ErrNilPlugin},
	}
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			_, err := modules[tt.module](nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDirSource_MissingDirectory(t *testing.T) {
	_, err := DirSource{}.Modules(filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestDirSource_DefaultsToCatalog(t *testing.T) {
	defer unregisterFactory("catalog-echo")
	RegisterFactory("catalog-echo", namedFactory("catalog-echo"))

	dir := t.TempDir()
	writeFile(t, dir, "catalog-echo.plugin", "")

	modules, err := DirSource{Logger: logging.Discard()}.Modules(dir)
	if err != nil {
		t.Fatal(err)
	}
	p, err := modules["catalog-echo"](nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Info().Name != "catalog-echo" {
		t.Errorf("got %q", p.Info().Name)
	}
}
