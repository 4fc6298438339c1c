// Package plugdir holds the process configuration for the plugin loader:
// the file format, its validation, and the key/value view handed to
// plugins through plugin.Vars.
package plugdir

// Config holds the configuration for a plugdir process.
type Config struct {
	// Plugin configures where plugins are discovered.
	Plugin PluginConfig `json:"plugin" yaml:"plugin"`
	// Log configures the process logger.
	Log LogConfig `json:"log,omitempty" yaml:"log,omitempty"`
	// Admin configures the admin HTTP API started by `plugdir serve`.
	Admin AdminConfig `json:"admin,omitempty" yaml:"admin,omitempty"`
	// LoadLog configures persistence of plugin load events (optional).
	LoadLog LoadLogConfig `json:"loadlog,omitempty" yaml:"loadlog,omitempty"`
	// Settings is free-form configuration readable by plugins via Lookup,
	// e.g. "settings.ratelimit.requests_per_second".
	Settings map[string]interface{} `json:"settings,omitempty" yaml:"settings,omitempty"`
}

// PluginConfig configures plugin discovery.
type PluginConfig struct {
	// PluginDir is the plugin root; each plugin type is a subdirectory.
	PluginDir string `json:"plugindir,omitempty" yaml:"plugindir,omitempty"`
	// Preload lists plugin types scanned when the server starts.
	Preload []string `json:"preload,omitempty" yaml:"preload,omitempty"`
}

// LogConfig configures logging. Level is debug/info/warn/error and Format is
// json or text.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// AdminConfig configures the admin API.
type AdminConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
	// Token, when set, is required as a bearer token on every admin route.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

// LoadLogDriver selects the load log backend.
type LoadLogDriver string

// LoadLogDriver constants define the supported load log backends.
const (
	LoadLogNone     LoadLogDriver = ""
	LoadLogSQLite   LoadLogDriver = "sqlite"
	LoadLogPostgres LoadLogDriver = "postgres"
)

// LoadLogConfig configures the plugin load event store.
type LoadLogConfig struct {
	Driver LoadLogDriver `json:"driver,omitempty" yaml:"driver,omitempty"`
	DSN    string        `json:"dsn,omitempty" yaml:"dsn,omitempty"`
}
