// Package main is the CLI command itself.
package main

import (
	"os"

	"go.viam.com/dynscene/cli"
	"go.viam.com/dynscene/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logging.NewLogger("dynscene").Fatal(err)
	}
}
