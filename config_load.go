package plugdir

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ferro-labs/plugdir/plugin"
)

var _ plugin.ConfigSource = (*Config)(nil)

// LoadConfig reads and parses a config file from the given path.
// Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	return &cfg, nil
}

// ValidateConfig validates a Config for correctness.
func ValidateConfig(cfg Config) error {
	for _, t := range cfg.Plugin.Preload {
		if err := plugin.ValidType(t); err != nil {
			return fmt.Errorf("plugin.preload: %w", err)
		}
	}

	switch strings.ToLower(cfg.Log.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("unknown log format: %q", cfg.Log.Format)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level: %q", cfg.Log.Level)
	}

	switch cfg.LoadLog.Driver {
	case LoadLogNone, LoadLogSQLite:
	case LoadLogPostgres:
		if strings.TrimSpace(cfg.LoadLog.DSN) == "" {
			return fmt.Errorf("loadlog driver %q requires a dsn", cfg.LoadLog.Driver)
		}
	default:
		return fmt.Errorf("unknown loadlog driver: %q", cfg.LoadLog.Driver)
	}

	return nil
}

// Lookup resolves a dotted key such as "plugin.plugindir" or
// "settings.ratelimit.burst" to its scalar value. Unset keys, and keys that
// name a list or a section, are reported as missing.
func (c *Config) Lookup(key string) (string, bool) {
	if c == nil || key == "" {
		return "", false
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", false
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return "", false
	}

	var cur interface{} = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return "", false
		}
		if cur, ok = m[part]; !ok {
			return "", false
		}
	}

	switch v := cur.(type) {
	case nil, map[string]interface{}, []interface{}:
		return "", false
	case string:
		return v, true
	default:
		return fmt.Sprint(v), true
	}
}
