package main

import (
	"os"

	"fastflix/internal/cli"
)

func main() {
	cmd, closeStores := cli.NewRootCmd()
	err := cmd.Execute()
	closeStores()
	if err != nil {
		os.Exit(1)
	}
}
