package plugdir

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	data := `
plugin:
  plugindir: /srv/plugins
  preload: [commands, middleware]
log:
  level: debug
  format: text
loadlog:
  driver: sqlite
  dsn: events.db
settings:
  ratelimit:
    requests_per_second: 5
`
	cfg, err := LoadConfig(writeTempFile(t, "config.yaml", data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Plugin.PluginDir != "/srv/plugins" {
		t.Errorf("got plugindir %q", cfg.Plugin.PluginDir)
	}
	if len(cfg.Plugin.Preload) != 2 {
		t.Errorf("expected 2 preload types, got %v", cfg.Plugin.Preload)
	}
	if cfg.LoadLog.Driver != LoadLogSQLite {
		t.Errorf("got driver %q", cfg.LoadLog.Driver)
	}
	if err := ValidateConfig(*cfg); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	data := `{"plugin": {"plugindir": "./p"}, "admin": {"addr": ":9090", "token": "secret"}}`
	cfg, err := LoadConfig(writeTempFile(t, "config.json", data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Admin.Addr != ":9090" || cfg.Admin.Token != "secret" {
		t.Errorf("unexpected admin config: %+v", cfg.Admin)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{"invalid json", func(t *testing.T) string { return writeTempFile(t, "bad.json", `{invalid`) }},
		{"invalid yaml", func(t *testing.T) string { return writeTempFile(t, "bad.yaml", "plugin: [unterminated") }},
		{"unsupported extension", func(t *testing.T) string { return writeTempFile(t, "config.toml", "") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(tt.path(t)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"empty", Config{}, false},
		{"postgres with dsn", Config{LoadLog: LoadLogConfig{Driver: LoadLogPostgres, DSN: "postgres://x"}}, false},
		{"postgres without dsn", Config{LoadLog: LoadLogConfig{Driver: LoadLogPostgres}}, true},
		{"unknown driver", Config{LoadLog: LoadLogConfig{Driver: "mysql"}}, true},
		{"bad log format", Config{Log: LogConfig{Format: "xml"}}, true},
		{"bad log level", Config{Log: LogConfig{Level: "loud"}}, true},
		{"preload escapes root", Config{Plugin: PluginConfig{Preload: []string{".."}}}, true},
		{"preload with separator", Config{Plugin: PluginConfig{Preload: []string{"a/b"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Lookup(t *testing.T) {
	cfg := &Config{
		Plugin: PluginConfig{PluginDir: "/srv/plugins", Preload: []string{"commands"}},
		Settings: map[string]interface{}{
			"ratelimit": map[string]interface{}{
				"requests_per_second": 5,
				"enabled":             true,
			},
		},
	}

	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"plugin.plugindir", "/srv/plugins", true},
		{"settings.ratelimit.requests_per_second", "5", true},
		{"settings.ratelimit.enabled", "true", true},
		{"plugin.preload", "", false},
		{"plugin", "", false},
		{"log.level", "", false},
		{"settings.ratelimit.missing", "", false},
		{"plugin.plugindir.deeper", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := cfg.Lookup(tt.key)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Lookup(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}

	var nilCfg *Config
	if _, ok := nilCfg.Lookup("plugin.plugindir"); ok {
		t.Error("nil config must not resolve keys")
	}
}
