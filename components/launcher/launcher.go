// Package launcher implements velocity control of the coupled dual-motor launcher.
package launcher

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/ftcshooter/firecontrol/components/motor"
	"github.com/ftcshooter/firecontrol/control"
	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/utils"
)

// Config describes the launcher motors and their velocity controller. Velocities are in encoder
// ticks per second.
type Config struct {
	Motors             []string                  `json:"motors"`
	PID                control.PIDConfig         `json:"pid"`
	Feedforward        control.FeedforwardConfig `json:"feedforward"`
	MaxPower           float64                   `json:"max_power"`
	MinActiveVelocity  float64                   `json:"min_active_velocity"`
	AtTargetTolerance  float64                   `json:"at_target_tolerance"`
	SyncTolerance      float64                   `json:"sync_tolerance"`
	VelocityFilterSize int                       `json:"velocity_filter_size,omitempty"`
}

// DefaultConfig returns the calibrated launcher configuration.
func DefaultConfig() Config {
	return Config{
		Motors:            []string{"fly1", "fly2"},
		PID:               control.PIDConfig{P: 0.009, D: 0.01},
		Feedforward:       control.FeedforwardConfig{KV: 0.003, KA: 0.08},
		MaxPower:          0.85,
		MinActiveVelocity: 50,
		AtTargetTolerance: 100,
		SyncTolerance:     150,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var err error
	if len(cfg.Motors) != 2 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("exactly two motors are required, got %d", len(cfg.Motors))))
	}
	for i, name := range cfg.Motors {
		if name == "" {
			err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, fmt.Sprintf("motors.%d", i)))
		}
	}
	if !(cfg.MaxPower > 0 && cfg.MaxPower <= 1) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, utils.NewOutOfRangeError("max_power", cfg.MaxPower, 0, 1)))
	}
	if cfg.MinActiveVelocity < 0 || math.IsNaN(cfg.MinActiveVelocity) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("min_active_velocity cannot be negative, got %v", cfg.MinActiveVelocity)))
	}
	if !(cfg.AtTargetTolerance > 0) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			utils.NewNonPositiveError("at_target_tolerance", cfg.AtTargetTolerance)))
	}
	if !(cfg.SyncTolerance > 0) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			utils.NewNonPositiveError("sync_tolerance", cfg.SyncTolerance)))
	}
	if cfg.VelocityFilterSize < 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("velocity_filter_size cannot be negative, got %d", cfg.VelocityFilterSize)))
	}
	return err
}

// Mode is what the launcher is currently doing.
type Mode int

const (
	// ModeIdle holds both motors at zero power.
	ModeIdle Mode = iota
	// ModeVelocity tracks a target velocity.
	ModeVelocity
	// ModeManual applies a raw operator power.
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeVelocity:
		return "velocity"
	case ModeManual:
		return "manual"
	}
	return "unknown"
}

// A Controller drives both launcher motors with the same command, using the first motor as the
// feedback source. It is not safe for concurrent use.
type Controller struct {
	cfg    Config
	lead   motor.Motor
	follow motor.Motor
	loop   *control.Loop
	logger logging.Logger

	mode        Mode
	target      float64
	manualPower float64
	active      bool
	velocities  [2]float64
	lastCommand float64
}

// NewController returns an idle launcher controller whose loop runs at frequency Hz.
func NewController(cfg Config, lead, follow motor.Motor, frequency float64, logger logging.Logger) (*Controller, error) {
	if err := cfg.Validate("launcher"); err != nil {
		return nil, err
	}
	if lead == nil || follow == nil {
		return nil, errors.New("launcher needs two motors")
	}
	loopCfg, err := control.SetupPIDFF(control.Options{
		Frequency:  frequency,
		PID:        cfg.PID,
		FF:         cfg.Feedforward,
		MaxPower:   cfg.MaxPower,
		FilterSize: cfg.VelocityFilterSize,
	})
	if err != nil {
		return nil, err
	}
	c := &Controller{cfg: cfg, lead: lead, follow: follow, logger: logger}
	c.loop, err = control.NewLoop(logger, loopCfg, &loopEndpoint{c: c})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SetTargetVelocity enters velocity mode, leaving manual mode. Targets at or below the minimum
// active velocity keep the launcher inactive.
func (c *Controller) SetTargetVelocity(ctx context.Context, velocity float64) error {
	if c.mode != ModeVelocity {
		c.logger.Infow("launcher velocity control", "previous_mode", c.mode.String())
		c.mode = ModeVelocity
		c.active = false
	}
	c.target = velocity
	active := velocity > c.cfg.MinActiveVelocity
	if active && !c.active {
		if err := c.loop.Reset(ctx); err != nil {
			return err
		}
	}
	c.active = active
	return nil
}

// SetManualPower leaves velocity mode and applies power, bounded to [-1, 1] and then to the
// maximum power, on the next Update.
func (c *Controller) SetManualPower(power float64) {
	if c.mode != ModeManual {
		c.logger.Infow("launcher manual override", "previous_mode", c.mode.String())
		c.mode = ModeManual
	}
	c.active = false
	c.target = 0
	c.manualPower = utils.ClampSymmetric(utils.ClampSymmetric(power, 1), c.cfg.MaxPower)
}

// Stop leaves every mode and zeroes both motors.
func (c *Controller) Stop(ctx context.Context) error {
	if c.mode != ModeIdle {
		c.logger.Infow("launcher stopped", "previous_mode", c.mode.String())
	}
	c.mode = ModeIdle
	c.target = 0
	c.manualPower = 0
	c.active = false
	return c.setPower(ctx, 0)
}

// Update runs one control cycle. Both velocities are read exactly once.
func (c *Controller) Update(ctx context.Context) error {
	if c.mode == ModeVelocity && c.active {
		if err := c.loop.UpdateConstantBlock(ctx, control.BlockNameSetPoint, c.target); err != nil {
			return err
		}
		if err := c.loop.Step(ctx); err != nil {
			return errors.Wrap(err, "launcher")
		}
		c.logger.Debugw("launcher cycle", "target", c.target, "velocity", c.velocities[0], "command", c.lastCommand)
		return nil
	}
	if err := c.readVelocities(ctx); err != nil {
		return err
	}
	if c.mode == ModeManual {
		return c.setPower(ctx, c.manualPower)
	}
	return c.setPower(ctx, 0)
}

// Halt zeroes both motors without changing the mode.
func (c *Controller) Halt(ctx context.Context) error {
	return c.setPower(ctx, 0)
}

func (c *Controller) readVelocities(ctx context.Context) error {
	v1, err := c.lead.Velocity(ctx)
	if err != nil {
		return errors.Wrap(err, "reading launcher velocity")
	}
	v2, err := c.follow.Velocity(ctx)
	if err != nil {
		return errors.Wrap(err, "reading launcher velocity")
	}
	c.velocities = [2]float64{v1, v2}
	return nil
}

func (c *Controller) setPower(ctx context.Context, power float64) error {
	err := multierr.Combine(c.lead.SetPower(ctx, power), c.follow.SetPower(ctx, power))
	if err != nil {
		return errors.Wrap(err, "setting launcher power")
	}
	c.lastCommand = power
	return nil
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Active reports whether the velocity loop is driving the motors.
func (c *Controller) Active() bool {
	return c.mode == ModeVelocity && c.active
}

// Target returns the target velocity.
func (c *Controller) Target() float64 {
	return c.target
}

// Velocity returns the lead motor velocity measured on the last Update.
func (c *Controller) Velocity() float64 {
	return c.velocities[0]
}

// Velocities returns both motor velocities measured on the last Update.
func (c *Controller) Velocities() (float64, float64) {
	return c.velocities[0], c.velocities[1]
}

// Command returns the power last sent to the motors.
func (c *Controller) Command() float64 {
	return c.lastCommand
}

// AtTarget reports whether the lead motor is within tolerance of the target.
func (c *Controller) AtTarget(tolerance float64) bool {
	return math.Abs(c.velocities[0]-c.target) < tolerance
}

// IsSynchronized reports whether the two motors are within tolerance of each other.
func (c *Controller) IsSynchronized(tolerance float64) bool {
	return math.Abs(c.velocities[0]-c.velocities[1]) < tolerance
}

// Ready reports whether the launcher is active and at its target with the configured tolerance.
func (c *Controller) Ready() bool {
	return c.Active() && c.AtTarget(c.cfg.AtTargetTolerance)
}

// Synchronized reports IsSynchronized with the configured tolerance.
func (c *Controller) Synchronized() bool {
	return c.IsSynchronized(c.cfg.SyncTolerance)
}

type loopEndpoint struct {
	c *Controller
}

func (e *loopEndpoint) State(ctx context.Context) ([]float64, error) {
	if err := e.c.readVelocities(ctx); err != nil {
		return nil, err
	}
	return []float64{e.c.velocities[0]}, nil
}

func (e *loopEndpoint) SetState(ctx context.Context, state []*control.Signal) error {
	if len(state) == 0 {
		return errors.New("launcher loop produced no command")
	}
	return e.c.setPower(ctx, state[0].GetSignalValueAt(0))
}
