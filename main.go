package main

import (
	"os"

	"github.com/ferama/ptyrun/cmd"
	"github.com/ferama/ptyrun/pkg/pty"
)

func main() {
	// a re-exec of this binary as session setup helper never returns here
	pty.ExecHelperMain()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
