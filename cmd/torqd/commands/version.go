package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags; left as a constant default
// when unset, matching the teacher's cmd/app hard-coded version string.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print torqd's version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("torqd " + Version)
		return nil
	},
}
