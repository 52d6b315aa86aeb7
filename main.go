package main

import (
	"os"

	"github.com/josephlewis42/bropesh/cmd"
	"github.com/josephlewis42/bropesh/core/launcher"
)

func main() {
	// Children started by the launcher stop here and never return.
	launcher.RunChildIfRequested()

	os.Exit(cmd.Execute())
}
