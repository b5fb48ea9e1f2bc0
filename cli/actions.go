package cli

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/urfave/cli/v2"

	"github.com/ftcshooter/firecontrol/config"
	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/services/firecontrol"
)

func newLogger(c *cli.Context) logging.Logger {
	if c.Bool(generalFlagDebug) {
		return logging.NewDebugLogger("firecontrol")
	}
	return logging.NewLogger("firecontrol")
}

// loadConfig reads the file named by --config, or returns the default configuration.
func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	path := c.Path(generalFlagConfig)
	if path == "" {
		logger.Info("no config file given, using the default configuration")
		return config.Default(), nil
	}
	return config.Read(path, logger)
}

// CheckAction validates the configuration and prints what it would run.
func CheckAction(c *cli.Context) error {
	cfg, err := loadConfig(c, newLogger(c))
	if err != nil {
		return err
	}
	fc := cfg.FireControl
	out := c.App.Writer
	fmt.Fprintf(out, "config OK\n")
	fmt.Fprintf(out, "  rate:      %v Hz\n", fc.FrequencyHz)
	goals := firecontrol.GoalNames(fc.Goals)
	for i, name := range goals {
		g := fc.Goals[name]
		goals[i] = fmt.Sprintf("%s (%v, %v)", name, g.X, g.Y)
	}
	fmt.Fprintf(out, "  goal:      %s of %s\n", fc.Goal, strings.Join(goals, ", "))
	fmt.Fprintf(out, "  turret:    motor %q\n", fc.Turret.Motor)
	fmt.Fprintf(out, "  launcher:  motors %s\n", strings.Join(fc.Launcher.Motors, ", "))
	fmt.Fprintf(out, "  deflector: servo %q\n", fc.Deflector.Servo)
	if cfg.Telemetry.Disabled {
		fmt.Fprintf(out, "  telemetry: disabled\n")
	} else {
		fmt.Fprintf(out, "  telemetry: %s every %v\n", cfg.Telemetry.Address, cfg.Telemetry.StreamInterval)
	}
	return nil
}

// LookupAction prints the range table targets for a distance.
func LookupAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("expected exactly one distance")
	}
	distance, err := cast.ToFloat64E(c.Args().First())
	if err != nil {
		return errors.Wrap(err, "parsing distance")
	}
	cfg, err := loadConfig(c, newLogger(c))
	if err != nil {
		return err
	}
	launcherTable, err := cfg.FireControl.LauncherTable.Build()
	if err != nil {
		return err
	}
	deflectorTable, err := cfg.FireControl.DeflectorTable.Build()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "distance %v in: launcher %v ticks/s, deflector %v\n",
		distance, launcherTable.Lookup(distance), deflectorTable.Lookup(distance))
	return nil
}
