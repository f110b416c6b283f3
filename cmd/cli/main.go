package main

import (
	"os"

	"github.com/dvloznov/reckless-spender/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
