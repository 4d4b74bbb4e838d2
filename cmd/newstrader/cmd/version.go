package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "newstrader version %s\n", version)
		if rev := revision(); rev != "" {
			fmt.Fprintf(out, "commit %s\n", rev)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// revision is the VCS commit stamped by the Go toolchain, if any.
func revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
