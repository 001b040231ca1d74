package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [targets...]",
		Short: "Remove the declared output files of the selected targets",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Clean(cmd.Context(), scriptPath(cmd), buildDirectory(cmd), args)
		},
	}
}
