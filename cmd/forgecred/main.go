package main

import (
	"os"

	forgecredcmd "github.com/forgelabs/forgecred/pkg/forgecred/cmd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := forgecredcmd.NewRootCommand(forgecredcmd.DefaultConfig())
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
