// Package commands implements the CLI commands for the forge build
// tool.
package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.trai.ch/forge/internal/app"
)

// CLI represents the command line interface for forge.
type CLI struct {
	app     *app.App
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app.
func New(a *app.App) *CLI {
	rootCmd := &cobra.Command{
		Use:           "forge",
		Short:         "A meta build system with an incremental action graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "forge.yaml", "Path to the build script")
	rootCmd.PersistentFlags().StringP("build-directory", "b", "build", "Path to the build directory")

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newExportCmd())
	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newRunNodeCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

func scriptPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

func buildDirectory(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("build-directory")
	return dir
}
