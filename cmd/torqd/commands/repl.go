package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"slug/internal/actor"
)

// Prompt mirrors the teacher's internal/repl.PROMPT constant.
const Prompt = "torq> "

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive introspection shell over a running actor system",
	Long: `repl starts an actor system and reads introspection commands from
stdin (help, actors, quit). It does not evaluate program source: source
parsing is out of scope for this runtime (spec.md §1) — actors are built
and spawned by embedding Go code against internal/client, the same way the
teacher's internal/repl.Start evaluates parsed source against a single
shared environment.`,
	RunE: runRepl,
}

func runRepl(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := buildLogger(cfg)
	sys := actor.NewSystemWithBudget(cfg.Workers, logger, cfg.InstructionBudget)
	defer sys.Shutdown()

	startRepl(sys, os.Stdin, os.Stdout)
	return nil
}

func startRepl(sys *actor.System, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, "torqd repl — type 'help' for commands")
	for {
		fmt.Fprint(out, Prompt)
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "quit" || line == "exit":
			return
		case line == "help":
			fmt.Fprintln(out, "commands: help, actors, quit")
		case line == "actors":
			addrs := sys.Addresses()
			if len(addrs) == 0 {
				fmt.Fprintln(out, "(no actors registered)")
				continue
			}
			for _, a := range addrs {
				fmt.Fprintln(out, a)
			}
		default:
			fmt.Fprintf(out, "unrecognized command: %s\n", line)
		}
	}
}
