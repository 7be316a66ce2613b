// Package commands implements torqd's cobra CLI. Grounded on
// Roasbeef-substrate's cmd/substrate/commands package (rootCmd +
// PersistentFlags + init-time AddCommand wiring), since the teacher's own
// cmd/app/main.go is a hand-rolled, largely commented-out flag.FlagSet CLI
// rather than a real subcommand tree.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// configPath is an explicit TOML config file, overriding the default
	// torqd.toml search path (internal/config.DefaultPath).
	configPath string

	// logLevel is trace|debug|info|warn|error|none.
	logLevel string

	// logFile redirects structured logs to a file instead of stderr.
	logFile string

	// workers sizes the shared actor executor's worker pool.
	workers int

	// instructionBudget bounds klvm.Machine.Compute's per-turn step count.
	instructionBudget int
)

// rootCmd is the base command for torqd.
var rootCmd = &cobra.Command{
	Use:   "torqd",
	Short: "Torqlang actor runtime host",
	Long: `torqd hosts the KLVM actor scheduler: spawn actors from Go-built
handler constructors, exchange request/response and streaming messages with
them, and observe their structured logs.`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "",
		"Path to a torqd.toml config file (default: ./torqd.toml if present)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "",
		"Log level: trace, debug, info, warn, error, none",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFile, "log-file", "",
		"Log file path (default: stderr)",
	)
	rootCmd.PersistentFlags().IntVar(
		&workers, "workers", 0,
		"Actor executor worker-pool size",
	)
	rootCmd.PersistentFlags().IntVar(
		&instructionBudget, "instruction-budget", 0,
		"Per-turn KLVM instruction budget before preemption",
	)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(versionCmd)
}
