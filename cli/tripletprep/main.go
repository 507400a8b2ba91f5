// Package main is the tripletprep command itself.
package main

import (
	"os"

	"go.viam.com/tripletprep/cli"
	"go.viam.com/tripletprep/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logging.Global().Error(err)
		os.Exit(1)
	}
}
