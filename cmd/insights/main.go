package main

import (
	"fmt"
	"os"

	"github.com/spherical-ai/spherical/libs/campaign-insights/cmd/insights/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
