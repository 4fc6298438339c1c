// Command plugdir inspects plugin directories and serves the admin API over
// a plugin Manager.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ferro-labs/plugdir"
	"github.com/ferro-labs/plugdir/hook"
	"github.com/ferro-labs/plugdir/internal/logging"
	"github.com/ferro-labs/plugdir/plugin"

	// Register built-in plugin factories.
	_ "github.com/ferro-labs/plugdir/internal/plugins/ratelimit"
	_ "github.com/ferro-labs/plugdir/internal/plugins/wordfilter"
)

const (
	flagConfig    = "config"
	flagPluginDir = "plugin-dir"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"

	envConfig = "PLUGDIR_CONFIG"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	pluginDir  string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "plugdir [sub-command]",
		Short: "Discover, inspect and serve directory-based plugins",
		Long: `plugdir loads plugins by directory convention. Every plugin type is a
subdirectory of the plugin root and every file in it is a plugin module.
Files whose name starts with "_" are disabled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		DisableAutoGenTag: true,
		SilenceUsage:      true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, flagConfig, os.Getenv(envConfig), "path to a YAML or JSON config file (env "+envConfig+")")
	flags.StringVar(&opts.pluginDir, flagPluginDir, "", "plugin root directory, overriding plugin.plugindir")
	flags.StringVar(&opts.logLevel, flagLogLevel, "", "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, flagLogFormat, "", "log format: json or text")

	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newCatalogCmd())
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// loadConfig reads the config file, if any, and applies flag overrides.
func (o *globalOptions) loadConfig() (*plugdir.Config, error) {
	cfg := &plugdir.Config{}
	if o.configPath != "" {
		loaded, err := plugdir.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if o.pluginDir != "" {
		cfg.Plugin.PluginDir = o.pluginDir
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if err := plugdir.ValidateConfig(*cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// vars builds the shared plugin context. Logs go to w so command output on
// stdout stays machine readable.
func vars(cfg *plugdir.Config, w io.Writer) *plugin.Vars {
	return &plugin.Vars{
		Config: cfg,
		Hooks:  hook.NewRegistry(),
		Logger: newLogger(cfg, w),
	}
}

func newLogger(cfg *plugdir.Config, w io.Writer) *slog.Logger {
	return logging.New(w, cfg.Log.Level, cfg.Log.Format)
}
