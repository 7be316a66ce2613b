package commands

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"slug/internal/actor"
	"slug/internal/config"
	"slug/internal/torqlog"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the actor runtime and block until signaled",
	Long: `run loads configuration, starts the shared executor and module
registry, and blocks until SIGINT/SIGTERM, shutting the executor down
cleanly on exit. Actors are spawned by embedding Go code against
internal/client, not by torqd itself (surface-syntax loading is out of
scope) — run is the host process those actors live inside.`,
	RunE: runRun,
}

func loadConfig() config.Config {
	path := configPath
	if path == "" {
		path = config.DefaultPath(".")
	}
	return config.Load(path, config.Flags{
		LogLevel:          logLevel,
		LogFile:           logFile,
		Workers:           workers,
		InstructionBudget: instructionBudget,
	})
}

func buildLogger(cfg config.Config) *slog.Logger {
	return torqlog.New(torqlog.Options{
		Level: torqlog.ParseLevel(cfg.LogLevel),
		File:  cfg.LogFile,
		Color: cfg.LogColor,
	})
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := buildLogger(cfg)

	sys := actor.NewSystemWithBudget(cfg.Workers, logger, cfg.InstructionBudget)
	logger.Info("torqd started", "workers", cfg.Workers, "listen", cfg.ListenAddr)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	logger.Info("shutting down")
	return sys.Shutdown()
}
