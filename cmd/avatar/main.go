// Package main is the avatar command.
package main

import (
	"log"
	"os"

	"github.com/vrmkit/avatar/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
