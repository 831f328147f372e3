package main

import (
	"os"

	"github.com/sebas5384/now-builders/cmd"
)

func main() {
	if err := cmd.RootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
