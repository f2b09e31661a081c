package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"staffplan/internal/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
	},
}
