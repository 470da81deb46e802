package main

import (
	"os"

	"github.com/ryabkov82/dataset-merger/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
