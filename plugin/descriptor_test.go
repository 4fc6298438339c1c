package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseDescriptor_YAML(t *testing.T) {
	data := `
factory: word-filter
description: blocks profanity
config:
  blocked_words: [foo, bar]
  limit: 3
`
	d, err := ParseDescriptor([]byte(data), ".yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Factory != "word-filter" || d.Description != "blocks profanity" {
		t.Errorf("unexpected descriptor: %+v", d)
	}
	words, ok := d.Config["blocked_words"].([]interface{})
	if !ok || len(words) != 2 {
		t.Fatalf("expected 2 blocked words, got %#v", d.Config["blocked_words"])
	}
	if limit, ok := d.Config["limit"].(float64); !ok || limit != 3 {
		t.Errorf("expected limit normalized to float64 3, got %#v", d.Config["limit"])
	}
}

func TestParseDescriptor_JSON(t *testing.T) {
	d, err := ParseDescriptor([]byte(`{"factory":"rate-limit","config":{"burst":2}}`), ".json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Factory != "rate-limit" {
		t.Errorf("got factory %q, want rate-limit", d.Factory)
	}
}

func TestParseDescriptor_Empty(t *testing.T) {
	d, err := ParseDescriptor([]byte("  \n"), ".yml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Factory != "" || d.Config != nil {
		t.Errorf("expected empty descriptor, got %+v", d)
	}
}

func TestParseDescriptor_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		ext  string
	}{
		{"unknown field", "factory: x\nextra: true\n", ".yaml"},
		{"factory not a string", "factory: 5\n", ".yaml"},
		{"empty factory", `{"factory":""}`, ".json"},
		{"config not an object", "config: [1, 2]\n", ".yaml"},
		{"not an object", "- a\n- b\n", ".yaml"},
		{"malformed json", `{invalid`, ".json"},
		{"malformed yaml", "factory: [unterminated\n", ".yaml"},
		{"unsupported extension", "factory = x", ".toml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDescriptor([]byte(tt.data), tt.ext)
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Fatalf("expected ErrInvalidDescriptor, got %v", err)
			}
		})
	}
}

func TestLoadDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filter.yaml")
	if err := os.WriteFile(path, []byte("factory: word-filter\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	d, err := LoadDescriptor(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Factory != "word-filter" {
		t.Errorf("got factory %q", d.Factory)
	}

	if _, err := LoadDescriptor(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestIsDescriptor(t *testing.T) {
	for path, want := range map[string]bool{
		"a.yaml":   true,
		"a.YML":    true,
		"a.json":   true,
		"a.plugin": false,
		"a":        false,
	} {
		if got := IsDescriptor(path); got != want {
			t.Errorf("IsDescriptor(%q) = %v, want %v", path, got, want)
		}
	}
}
