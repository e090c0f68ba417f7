package main

import (
	"os"

	"mixdeck.dev/internal/cli"
)

func main() {
	c := cli.NewCLI()
	exitCode := c.Run(os.Args, os.Stdin, os.Stdout, os.Stderr)
	os.Exit(exitCode)
}
