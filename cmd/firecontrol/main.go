// Package main is the firecontrol command itself.
package main

import (
	"log"
	"os"

	"github.com/ftcshooter/firecontrol/cli"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
