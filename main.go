package main

import (
	"os"

	"github.com/icscript/optimized-builds/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
