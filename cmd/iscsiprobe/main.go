package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/marmos91/iscsiprobe/cmd/iscsiprobe/commands"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		// The verdict lines already explain a failed run.
		if !errors.Is(err, commands.ErrScenariosFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
