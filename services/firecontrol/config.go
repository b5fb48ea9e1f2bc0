package firecontrol

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/ftcshooter/firecontrol/components/deflector"
	"github.com/ftcshooter/firecontrol/components/launcher"
	"github.com/ftcshooter/firecontrol/components/turret"
	"github.com/ftcshooter/firecontrol/control"
	"github.com/ftcshooter/firecontrol/rangetable"
	"github.com/ftcshooter/firecontrol/services/bearing"
	"github.com/ftcshooter/firecontrol/services/zone"
	"github.com/ftcshooter/firecontrol/utils"
)

// Alliance goal names.
const (
	GoalBlue = "blue"
	GoalRed  = "red"
)

// GoalConfig is a goal position on the field, in inches.
type GoalConfig struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point returns the goal as a point.
func (g GoalConfig) Point() r2.Point {
	return r2.Point{X: g.X, Y: g.Y}
}

// Config is the configuration of the whole fire-control core.
type Config struct {
	FrequencyHz         float64               `json:"frequency_hz"`
	Goal                string                `json:"goal"`
	Goals               map[string]GoalConfig `json:"goals"`
	Zone                zone.Config           `json:"zone"`
	Bearing             bearing.Config        `json:"bearing"`
	Turret              turret.Config         `json:"turret"`
	Launcher            launcher.Config       `json:"launcher"`
	Deflector           deflector.Config      `json:"deflector"`
	LauncherTable       rangetable.Config     `json:"launcher_table"`
	DeflectorTable      rangetable.Config     `json:"deflector_table"`
	LauncherPresets     map[string]float64    `json:"launcher_presets"`
	AimToleranceRad     float64               `json:"aim_tolerance_radians"`
	RequireZoneForReady bool                  `json:"require_zone_for_ready"`
}

// DefaultConfig returns the calibrated configuration.
func DefaultConfig() Config {
	return Config{
		FrequencyHz: 50,
		Goal:        GoalBlue,
		Goals: map[string]GoalConfig{
			GoalBlue: {X: 72, Y: -36},
			GoalRed:  {X: 72, Y: 36},
		},
		Zone:      zone.DefaultConfig(),
		Bearing:   bearing.DefaultConfig(),
		Turret:    turret.DefaultConfig(),
		Launcher:  launcher.DefaultConfig(),
		Deflector: deflector.DefaultConfig(),
		LauncherTable: rangetable.Config{Entries: []rangetable.Entry{
			{Distance: 0, Value: 0},
			{Distance: 12, Value: 800},
			{Distance: 18, Value: 1000},
			{Distance: 24, Value: 1150},
			{Distance: 30, Value: 1250},
			{Distance: 36, Value: 1350},
			{Distance: 42, Value: 1450},
			{Distance: 48, Value: 1550},
			{Distance: 60, Value: 1650},
		}},
		DeflectorTable: rangetable.Config{Entries: []rangetable.Entry{
			{Distance: 0, Value: 0},
			{Distance: 12, Value: 0.1},
			{Distance: 18, Value: 0.2},
			{Distance: 24, Value: 0.3},
			{Distance: 30, Value: 0.45},
			{Distance: 36, Value: 0.55},
			{Distance: 42, Value: 0.65},
			{Distance: 48, Value: 0.75},
			{Distance: 60, Value: 0.85},
			{Distance: 999, Value: 0.9},
		}},
		LauncherPresets: map[string]float64{
			"far":  1300,
			"near": 1000,
		},
		AimToleranceRad: 0.035,
	}
}

// Validate ensures all parts of the config are valid. Every problem is reported.
func (cfg *Config) Validate(path string) error {
	var err error
	if !(cfg.FrequencyHz > 0 && cfg.FrequencyHz <= control.MaxFrequency) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			utils.NewOutOfRangeError("frequency_hz", cfg.FrequencyHz, 0, control.MaxFrequency)))
	}
	if len(cfg.Goals) == 0 {
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "goals"))
	}
	for _, name := range GoalNames(cfg.Goals) {
		g := cfg.Goals[name]
		if !utils.IsFinite(g.X) || !utils.IsFinite(g.Y) {
			err = multierr.Append(err, goutils.NewConfigValidationError(path,
				errors.Errorf("goal %q must be finite, got (%v, %v)", name, g.X, g.Y)))
		}
	}
	if cfg.Goal == "" {
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "goal"))
	} else if _, ok := cfg.Goals[cfg.Goal]; !ok && len(cfg.Goals) > 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("goal %q is not one of %v", cfg.Goal, GoalNames(cfg.Goals))))
	}
	for _, name := range lo.Keys(cfg.LauncherPresets) {
		if v := cfg.LauncherPresets[name]; !utils.IsFinite(v) {
			err = multierr.Append(err, goutils.NewConfigValidationError(path,
				errors.Errorf("launcher preset %q must be finite, got %v", name, v)))
		}
	}
	if !(cfg.AimToleranceRad > 0) || math.IsInf(cfg.AimToleranceRad, 0) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			utils.NewNonPositiveError("aim_tolerance_radians", cfg.AimToleranceRad)))
	}
	return multierr.Combine(
		err,
		cfg.Zone.Validate(path+".zone"),
		cfg.Bearing.Validate(path+".bearing"),
		cfg.Turret.Validate(path+".turret"),
		cfg.Launcher.Validate(path+".launcher"),
		cfg.Deflector.Validate(path+".deflector"),
		cfg.LauncherTable.Validate(path+".launcher_table"),
		cfg.DeflectorTable.Validate(path+".deflector_table"),
	)
}

// GoalNames returns the names of goals in sorted order.
func GoalNames(goals map[string]GoalConfig) []string {
	names := lo.Keys(goals)
	sort.Strings(names)
	return names
}
