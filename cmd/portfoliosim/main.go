package main

import (
	"os"

	"portfoliosim/cmd/portfoliosim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
