package main

import (
	"os"

	"github.com/aki/weblaunch/internal/cli/commands"
	"github.com/aki/weblaunch/internal/cli/ui"
)

func main() {
	if err := commands.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}
