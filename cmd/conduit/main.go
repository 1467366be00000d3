// Package main provides the conduit command line, which edits integration
// documents and drives the integration management API.
package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

const defaultAPIURL = "http://localhost:9091"

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "conduit",
		Usage:                 "Edit, deploy and inspect integrations",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the integration management API",
				Value:   defaultAPIURL,
				Sources: cli.EnvVars("CONDUIT_API_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token sent with every request",
				Sources: cli.EnvVars("CONDUIT_TOKEN"),
			},
			&cli.StringSliceFlag{
				Name:    "header",
				Aliases: []string{"H"},
				Usage:   "Extra request header as 'Name: value' (repeatable)",
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			documentCommand(),
			saveCommand(),
			getCommand(),
			deleteCommand(),
			deployCommand(),
			undeployCommand(),
			revertCommand(),
			tagCommand(),
			importCommand(),
			exportCommand(),
			connectionsCommand(),
			descriptorCommand(),
			deploymentCommand(),
			activityCommand(),
			monitorCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
