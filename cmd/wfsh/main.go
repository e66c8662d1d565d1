package main

import (
	"os"

	"github.com/wfshell/wfsh/cmd/wfsh/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
