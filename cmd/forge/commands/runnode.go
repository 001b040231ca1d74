package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ExitCodeError carries a child action's nonzero exit code to the
// process exit status.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("action exited with code %d", e.Code)
}

func (c *CLI) newRunNodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "run-node <action>",
		Short:  "Execute exactly one action of the exported graph",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := c.app.RunNode(cmd.Context(), scriptPath(cmd), buildDirectory(cmd), args[0])
			if err != nil {
				return err
			}
			if code != 0 {
				return &ExitCodeError{Code: code}
			}
			return nil
		},
	}
}
