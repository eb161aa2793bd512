// Package cli implements the hookload command line.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// errReported signals a failure that has already been printed. It makes
// the process exit non-zero without printing the error again.
var errReported = errors.New("failure already reported")

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "hookload",
		Short:   "Volume test for device webhook ingestion",
		Version: version,
		Long: `hookload logs in to a backend once, then fires a large batch of synthetic
Garmin and Apple Health webhook payloads at it with bounded concurrency and
reports throughput, latency, failures and a PASS/WARN/FAIL verdict.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			// If no subcommand is provided, print help
			cmd.Help()
		},
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newRegisterCmd())
	root.AddCommand(newMockCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return execute(NewRootCmd())
}

func execute(root *cobra.Command) error {
	err := root.Execute()
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hookload %s\n", version)
		},
	}
}
