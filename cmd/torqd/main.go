package main

import (
	"fmt"
	"os"

	"slug/cmd/torqd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
