package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ferro-labs/plugdir/plugin"
)

const (
	flagOutput = "output"

	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// typeListing is the rendered view of one plugin type.
type typeListing struct {
	Type     string                 `json:"type" yaml:"type"`
	Dir      string                 `json:"dir" yaml:"dir"`
	Plugins  map[string]plugin.Info `json:"plugins" yaml:"plugins"`
	Disabled []string               `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Failed   map[string]string      `json:"failed,omitempty" yaml:"failed,omitempty"`
	Error    string                 `json:"error,omitempty" yaml:"error,omitempty"`
}

func newListCmd(opts *globalOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list [type...]",
		Short: "Scan plugin types and list their plugins",
		Long: `Scan each named plugin type directory and list the plugins found.
Without arguments every subdirectory of the plugin root is listed.
A named type whose directory is missing gets it created.`,
		Example: strings.TrimSpace(`
plugdir list
plugdir list commands middleware -o json
plugdir list --plugin-dir ./plugins -oyaml
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch output {
			case outputTable, outputJSON, outputYAML:
			default:
				return fmt.Errorf("unknown output format %q: use table, json or yaml", output)
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			v := vars(cfg, cmd.ErrOrStderr())

			types := args
			if len(types) == 0 {
				if types, err = discoverTypes(plugin.PluginRoot(v)); err != nil {
					return err
				}
			}
			for _, t := range types {
				if err := plugin.ValidType(t); err != nil {
					return err
				}
			}

			m := plugin.NewManager(v)
			listings := make([]typeListing, 0, len(types))
			for _, t := range types {
				listings = append(listings, listingFor(m.Get(t)))
			}
			return renderListings(cmd.OutOrStdout(), listings, output)
		},
	}
	cmd.Flags().StringVarP(&output, flagOutput, "o", outputTable, "output format: table, json or yaml")
	return cmd
}

// discoverTypes returns the non-hidden subdirectories of root, sorted. A
// missing root has no types.
func discoverTypes(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading plugin root: %w", err)
	}
	var types []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			types = append(types, e.Name())
		}
	}
	sort.Strings(types)
	return types, nil
}

func listingFor(reg *plugin.Registry) typeListing {
	report := reg.Report()
	l := typeListing{
		Type:     reg.Type(),
		Dir:      reg.Dir(),
		Plugins:  reg.List(),
		Disabled: report.Disabled,
	}
	if len(report.Failed) > 0 {
		l.Failed = make(map[string]string, len(report.Failed))
		for name, err := range report.Failed {
			l.Failed[name] = err.Error()
		}
	}
	if report.Err != nil {
		l.Error = report.Err.Error()
	}
	return l
}

func renderListings(w io.Writer, listings []typeListing, output string) error {
	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(listings)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(listings)
	}

	if len(listings) == 0 {
		_, err := fmt.Fprintln(w, "No plugin types found.")
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Type", "Plugin", "Status", "Version", "Description"})
	for _, l := range listings {
		for _, name := range sortedKeys(l.Plugins) {
			info := l.Plugins[name]
			t.AppendRow(table.Row{l.Type, name, "enabled", info.Version, info.Description})
		}
		for _, name := range l.Disabled {
			t.AppendRow(table.Row{l.Type, name, "disabled", "", ""})
		}
		for _, name := range sortedKeys(l.Failed) {
			t.AppendRow(table.Row{l.Type, name, "failed", "", l.Failed[name]})
		}
		if l.Error != "" {
			t.AppendRow(table.Row{l.Type, "", "error", "", l.Error})
		}
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, AutoMerge: true},
	})
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the factory names plugin modules can resolve to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names := plugin.RegisteredPlugins()
			if len(names) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No factories registered.")
				return err
			}
			for _, name := range names {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
