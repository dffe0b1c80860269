package main

import (
	"os"

	"github.com/attestd/attestd/cmd/attestd/cmd"
)

func main() {
	if cmd.RootCmd.Execute() != nil {
		os.Exit(1)
	}
}
