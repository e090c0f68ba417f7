package main

import (
	"os"

	"mixdeck.dev/internal/cli"
)

func main() {
	// Create CLI instance and run with system arguments and I/O
	c := cli.NewCLI()
	os.Exit(c.Run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}
