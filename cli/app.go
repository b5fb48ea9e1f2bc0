// Package cli implements the firecontrol command line.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	generalFlagConfig = "config"
	generalFlagDebug  = "debug"

	runFlagDuration = "duration"
	runFlagGoal     = "goal"
	runFlagShoot    = "shoot"
)

var app = &cli.App{
	Name:            "firecontrol",
	Usage:           "run and inspect the turret fire-control core",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.PathFlag{
			Name:    generalFlagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE` (JSON, or YAML by extension)",
		},
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:  "run",
			Usage: "drive the fire-control loop against the simulated robot",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:  runFlagDuration,
					Usage: "stop after this long; zero runs until interrupted",
				},
				&cli.StringFlag{
					Name:  runFlagGoal,
					Usage: "override the configured goal",
				},
				&cli.BoolFlag{
					Name:  runFlagShoot,
					Value: true,
					Usage: "hold the shoot input from the start",
				},
			},
			Action: RunAction,
		},
		{
			Name:   "check",
			Usage:  "validate a configuration and print a summary of it",
			Action: CheckAction,
		},
		{
			Name:      "lookup",
			Usage:     "print the launcher and deflector targets for a distance to the goal",
			ArgsUsage: "<distance-inches>",
			Action:    LookupAction,
		},
	},
}

// NewApp returns a new app with the CLI function attached.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
