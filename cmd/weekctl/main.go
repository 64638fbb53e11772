package main

import (
	"os"

	"github.com/klokku/weekgrid/cmd/weekctl/commands"
)

func main() {
	// errors are printed by the commands
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
