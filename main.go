package main

import (
	"os"

	"gravityyaml/pkg/cli"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	return cli.Execute(args, os.Stdout, os.Stderr)
}
