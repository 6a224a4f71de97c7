package main

import (
	"os"

	"github.com/pulsefeed-systems/pulsefeed-stack/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
