package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:                 "portalctl",
		Usage:                "operator tooling for the member portal user store",
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			&usersCommand,
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "portalctl: %s\n", err.Error())
		os.Exit(1)
	}
}
