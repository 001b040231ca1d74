package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [targets...]",
		Short: "Execute the selected targets in-process",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, _ := cmd.Flags().GetInt("jobs")
			return c.app.Build(cmd.Context(), scriptPath(cmd), buildDirectory(cmd), args, jobs)
		},
	}
	cmd.Flags().IntP("jobs", "j", 0, "Maximum parallel actions (0 = number of CPUs)")
	return cmd
}
