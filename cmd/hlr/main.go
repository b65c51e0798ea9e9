package main

import (
	"os"

	"github.com/noema/hlr/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
