package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/concilia-dev/concilia/internal/buildinfo"
)

// NewRootCommand creates the root CLI command with all subcommands
// registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "concilia",
		Short:   "Bank statement reconciliation",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("project", "p", ".", "project directory")

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand())
	rootCmd.AddCommand(newMatchCommand())
	rootCmd.AddCommand(newLinesCommand())
	rootCmd.AddCommand(newApproveCommand())
	rootCmd.AddCommand(newRejectCommand())
	rootCmd.AddCommand(newManualCommand())
	rootCmd.AddCommand(newDiscardCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newSessionsCommand())
	rootCmd.AddCommand(newFinalizeCommand())
	rootCmd.AddCommand(newCancelCommand())

	return rootCmd
}
