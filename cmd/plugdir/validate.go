package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ferro-labs/plugdir/plugin"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <module-file>...",
		Short: "Check that plugin module files resolve and initialise",
		Long: `Validate parses each descriptor against the descriptor schema, resolves
its factory in the catalog and constructs the plugin with its config, the
same way a registry scan would. Bare marker files are resolved by name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			v := vars(cfg, cmd.ErrOrStderr())
			out := cmd.OutOrStdout()

			var errs []error
			for _, path := range args {
				info, err := validateModule(v, path)
				if err != nil {
					fmt.Fprintf(out, "✗ %s: %v\n", path, err)
					errs = append(errs, fmt.Errorf("%s: %w", path, err))
					continue
				}
				fmt.Fprintf(out, "✓ %s: %s %s\n", path, info.Name, info.Version)
			}
			return errors.Join(errs...)
		},
	}
}

func validateModule(v *plugin.Vars, path string) (plugin.Info, error) {
	if plugin.IsDescriptor(path) {
		if _, err := plugin.LoadDescriptor(path); err != nil {
			return plugin.Info{}, err
		}
	}

	if _, err := os.Stat(path); err != nil {
		return plugin.Info{}, err
	}
	base := filepath.Base(path)
	module := strings.TrimSuffix(base, filepath.Ext(base))
	f := plugin.DirSource{Logger: v.Logger}.ModuleFactory(module, path)
	p, err := f(v)
	if err != nil {
		return plugin.Info{}, err
	}
	info := p.Info()
	if info.Name == "" {
		return plugin.Info{}, plugin.ErrNoName
	}
	return info, nil
}
