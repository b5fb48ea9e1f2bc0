// Package config defines the file configuration of the fire-control process and reads, validates
// and watches it.
package config

import (
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	fakemotor "github.com/ftcshooter/firecontrol/components/motor/fake"
	fakepose "github.com/ftcshooter/firecontrol/components/posetracker/fake"
	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/services/firecontrol"
	fakevision "github.com/ftcshooter/firecontrol/services/vision/fake"
	"github.com/ftcshooter/firecontrol/spatialmath"
)

// A Config describes the configuration of the whole process.
type Config struct {
	FireControl firecontrol.Config            `json:"fire_control"`
	Simulation  Simulation                    `json:"simulation"`
	Telemetry   Telemetry                     `json:"telemetry"`
	Log         []logging.LoggerPatternConfig `json:"log"`

	// ConfigFilePath is the path this config was read from, if any.
	ConfigFilePath string `json:"-"`
}

// Simulation describes the simulated hardware the process drives when no robot is attached.
type Simulation struct {
	Motors      map[string]fakemotor.Config `json:"motors"`
	Servos      []string                    `json:"servos"`
	PoseTracker fakepose.Config             `json:"pose_tracker"`
	Vision      *fakevision.Config          `json:"vision,omitempty"`
}

// Telemetry describes the read-only snapshot server.
type Telemetry struct {
	Disabled       bool          `json:"disabled"`
	Address        string        `json:"address"`
	StreamInterval time.Duration `json:"stream_interval"`
}

// Default returns a configuration that runs the calibrated core against a simulated robot
// driving up to a shooting spot in front of the blue goal.
func Default() *Config {
	fc := firecontrol.DefaultConfig()
	motors := map[string]fakemotor.Config{
		fc.Turret.Motor: {MaxTicksPerSecond: 2800},
	}
	for _, name := range fc.Launcher.Motors {
		motors[name] = fakemotor.Config{MaxTicksPerSecond: 2800}
	}
	return &Config{
		FireControl: fc,
		Simulation: Simulation{
			Motors: motors,
			Servos: []string{fc.Deflector.Servo},
			PoseTracker: fakepose.Config{
				Waypoints: []spatialmath.Pose2D{
					{X: 0, Y: 0, Heading: 0},
					{X: 48, Y: -36, Heading: 0},
				},
				Speed: 24,
			},
			Vision: &fakevision.Config{MaxRange: 120, FieldOfViewDeg: 70},
		},
		Telemetry: Telemetry{
			Address:        "localhost:8090",
			StreamInterval: 100 * time.Millisecond,
		},
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate() error {
	err := cfg.FireControl.Validate("fire_control")
	err = multierr.Append(err, cfg.Simulation.Validate("simulation", &cfg.FireControl))
	err = multierr.Append(err, cfg.Telemetry.Validate("telemetry"))
	for i, p := range cfg.Log {
		if !logging.ValidatePattern(p.Pattern) {
			err = multierr.Append(err, goutils.NewConfigValidationError("log",
				errors.Errorf("pattern %d (%q) is not a valid logger pattern", i, p.Pattern)))
		}
		if _, lerr := logging.LevelFromString(p.Level); lerr != nil {
			err = multierr.Append(err, goutils.NewConfigValidationError("log", lerr))
		}
	}
	return err
}

// Validate ensures the simulation provides every actuator the fire-control core names.
func (sim *Simulation) Validate(path string, fc *firecontrol.Config) error {
	var err error
	required := append([]string{fc.Turret.Motor}, fc.Launcher.Motors...)
	for _, name := range required {
		if name == "" {
			continue
		}
		if _, ok := sim.Motors[name]; !ok {
			err = multierr.Append(err, goutils.NewConfigValidationError(path,
				errors.Errorf("no simulated motor named %q", name)))
		}
	}
	names := lo.Keys(sim.Motors)
	sort.Strings(names)
	for _, name := range names {
		m := sim.Motors[name]
		err = multierr.Append(err, m.Validate(path+".motors."+name))
	}
	if fc.Deflector.Servo != "" && !lo.Contains(sim.Servos, fc.Deflector.Servo) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("no simulated servo named %q", fc.Deflector.Servo)))
	}
	err = multierr.Append(err, sim.PoseTracker.Validate(path+".pose_tracker"))
	if sim.Vision != nil {
		err = multierr.Append(err, sim.Vision.Validate(path+".vision"))
	}
	return err
}

// Validate ensures all parts of the config are valid.
func (t *Telemetry) Validate(path string) error {
	if t.Disabled {
		return nil
	}
	var err error
	if t.Address == "" {
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "address"))
	}
	if t.StreamInterval <= 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("stream_interval must be positive, got %v", t.StreamInterval)))
	}
	return err
}
