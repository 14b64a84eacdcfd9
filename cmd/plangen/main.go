package main

import (
	"os"

	"github.com/drop-plan-generator/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
