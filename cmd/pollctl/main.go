package main

import (
	"os"

	"github.com/LeonPucin/dash-core/cmd/pollctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
