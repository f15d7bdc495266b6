package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X github.com/zdircomp/zdircomp/cmd.Version=...".
var (
	Version   = "(untracked)"
	CommitSHA = "(unknown)"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  exactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "zdircomp v%s/%s\n", Version, CommitSHA)
		},
	}
}
