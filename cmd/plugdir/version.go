package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ferro-labs/plugdir/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "plugdir %s\n", version.String())
			return err
		},
	}
}
