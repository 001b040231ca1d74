package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Translate the build script and write the ninja build file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Export(cmd.Context(), scriptPath(cmd), buildDirectory(cmd))
		},
	}
}
