// Package turret implements closed-loop position control of the rotating turret.
package turret

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"github.com/ftcshooter/firecontrol/components/motor"
	"github.com/ftcshooter/firecontrol/control"
	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/utils"
)

// Config describes the turret drive and its controller.
type Config struct {
	Motor                  string                    `json:"motor"`
	TicksPerRev            float64                   `json:"ticks_per_rev"`
	GearRatio              float64                   `json:"gear_ratio"`
	PID                    control.PIDConfig         `json:"pid"`
	Feedforward            control.FeedforwardConfig `json:"feedforward"`
	MinPower               float64                   `json:"min_power"`
	FrictionThresholdTicks float64                   `json:"friction_threshold_ticks"`
	MaxPower               float64                   `json:"max_power"`
}

// DefaultConfig returns the calibrated turret configuration.
func DefaultConfig() Config {
	return Config{
		Motor:                  "turret",
		TicksPerRev:            537.7,
		GearRatio:              3.62,
		PID:                    control.PIDConfig{P: 0.002},
		Feedforward:            control.FeedforwardConfig{KV: 0.0005, MaxVelocity: 300},
		MinPower:               0.1,
		FrictionThresholdTicks: 10,
		MaxPower:               0.75,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var err error
	if cfg.Motor == "" {
		err = multierr.Append(err, goutils.NewConfigValidationFieldRequiredError(path, "motor"))
	}
	if !(cfg.TicksPerRev > 0) || math.IsInf(cfg.TicksPerRev, 0) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, utils.NewNonPositiveError("ticks_per_rev", cfg.TicksPerRev)))
	}
	if !(cfg.GearRatio > 0) || math.IsInf(cfg.GearRatio, 0) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, utils.NewNonPositiveError("gear_ratio", cfg.GearRatio)))
	}
	if !(cfg.MaxPower > 0 && cfg.MaxPower <= 1) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path, utils.NewOutOfRangeError("max_power", cfg.MaxPower, 0, 1)))
	}
	if !(cfg.MinPower >= 0 && cfg.MinPower <= cfg.MaxPower) {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			utils.NewOutOfRangeError("min_power", cfg.MinPower, 0, cfg.MaxPower)))
	}
	if cfg.Feedforward.MaxVelocity < 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("feedforward.max_velocity cannot be negative, got %v", cfg.Feedforward.MaxVelocity)))
	}
	if cfg.FrictionThresholdTicks < 0 {
		err = multierr.Append(err, goutils.NewConfigValidationError(path,
			errors.Errorf("friction_threshold_ticks cannot be negative, got %v", cfg.FrictionThresholdTicks)))
	}
	return err
}

// RadiansPerTick is the turret rotation produced by one encoder tick.
func (cfg *Config) RadiansPerTick() float64 {
	return 2 * math.Pi / (cfg.TicksPerRev * cfg.GearRatio)
}

// Mode is what the turret is currently doing.
type Mode int

const (
	// ModeIdle holds the motor at zero power.
	ModeIdle Mode = iota
	// ModeAiming tracks a target angle with the position loop.
	ModeAiming
	// ModeManual applies a raw operator power.
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeAiming:
		return "aiming"
	case ModeManual:
		return "manual"
	}
	return "unknown"
}

// A Controller drives the turret motor. It is not safe for concurrent use; the fire-control
// coordinator owns it and calls it from a single goroutine.
type Controller struct {
	cfg            Config
	motor          motor.Motor
	loop           *control.Loop
	logger         logging.Logger
	radiansPerTick float64

	mode         Mode
	target       float64
	manualPower  float64
	lastPosition float64
	lastCommand  float64
}

// NewController returns an idle turret controller whose loop runs at frequency Hz.
func NewController(cfg Config, m motor.Motor, frequency float64, logger logging.Logger) (*Controller, error) {
	if err := cfg.Validate("turret"); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("turret needs a motor")
	}
	loopCfg, err := control.SetupPIDFF(control.Options{
		Frequency:      frequency,
		PID:            cfg.PID,
		FF:             cfg.Feedforward,
		PositionTarget: true,
		MinPower:       cfg.MinPower,
		ErrorThreshold: cfg.FrictionThresholdTicks,
		MaxPower:       cfg.MaxPower,
		SetPointScale:  1 / cfg.RadiansPerTick(),
	})
	if err != nil {
		return nil, err
	}
	c := &Controller{
		cfg:            cfg,
		motor:          m,
		logger:         logger,
		radiansPerTick: cfg.RadiansPerTick(),
	}
	c.loop, err = control.NewLoop(logger, loopCfg, &loopEndpoint{c: c})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SetTarget enters aiming mode, leaving manual mode, and sets the target angle in radians.
func (c *Controller) SetTarget(ctx context.Context, angle float64) error {
	if c.mode != ModeAiming {
		c.logger.Infow("turret aiming", "previous_mode", c.mode.String())
		if err := c.loop.Reset(ctx); err != nil {
			return err
		}
		c.mode = ModeAiming
	}
	c.target = angle
	return nil
}

// SetManualPower leaves aiming mode and applies power, clamped to the maximum power, on the next
// Update.
func (c *Controller) SetManualPower(power float64) {
	if c.mode != ModeManual {
		c.logger.Infow("turret manual override", "previous_mode", c.mode.String())
		c.mode = ModeManual
	}
	c.manualPower = utils.ClampSymmetric(power, c.cfg.MaxPower)
}

// Stop leaves every mode, forgets the target and zeroes the motor.
func (c *Controller) Stop(ctx context.Context) error {
	if c.mode != ModeIdle {
		c.logger.Infow("turret stopped", "previous_mode", c.mode.String())
	}
	c.mode = ModeIdle
	c.target = 0
	c.manualPower = 0
	return multierr.Combine(c.loop.Reset(ctx), c.setPower(ctx, 0))
}

// Update runs one control cycle. The encoder is read exactly once.
func (c *Controller) Update(ctx context.Context) error {
	switch c.mode {
	case ModeAiming:
		if err := c.loop.UpdateConstantBlock(ctx, control.BlockNameSetPoint, c.target); err != nil {
			return err
		}
		if err := c.loop.Step(ctx); err != nil {
			return errors.Wrap(err, "turret")
		}
	case ModeManual:
		if err := c.readPosition(ctx); err != nil {
			return err
		}
		return c.setPower(ctx, c.manualPower)
	default:
		if err := c.readPosition(ctx); err != nil {
			return err
		}
		return c.setPower(ctx, 0)
	}
	c.logger.Debugw("turret cycle", "target", c.target, "angle", c.Angle(), "command", c.lastCommand)
	return nil
}

// Halt zeroes the motor without changing the mode.
func (c *Controller) Halt(ctx context.Context) error {
	return c.setPower(ctx, 0)
}

func (c *Controller) readPosition(ctx context.Context) error {
	pos, err := c.motor.Position(ctx)
	if err != nil {
		return errors.Wrap(err, "reading turret position")
	}
	c.lastPosition = pos
	return nil
}

func (c *Controller) setPower(ctx context.Context, power float64) error {
	if err := c.motor.SetPower(ctx, power); err != nil {
		return errors.Wrap(err, "setting turret power")
	}
	c.lastCommand = power
	return nil
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Aiming reports whether the turret is tracking a target.
func (c *Controller) Aiming() bool {
	return c.mode == ModeAiming
}

// Target returns the target angle in radians.
func (c *Controller) Target() float64 {
	return c.target
}

// Angle returns the turret angle in radians measured on the last Update.
func (c *Controller) Angle() float64 {
	return c.lastPosition * c.radiansPerTick
}

// Error returns the target minus the measured angle in radians.
func (c *Controller) Error() float64 {
	return c.target - c.Angle()
}

// Command returns the power last sent to the motor.
func (c *Controller) Command() float64 {
	return c.lastCommand
}

// loopEndpoint connects the position loop to the motor.
type loopEndpoint struct {
	c *Controller
}

func (e *loopEndpoint) State(ctx context.Context) ([]float64, error) {
	if err := e.c.readPosition(ctx); err != nil {
		return nil, err
	}
	return []float64{e.c.lastPosition}, nil
}

func (e *loopEndpoint) SetState(ctx context.Context, state []*control.Signal) error {
	if len(state) == 0 {
		return errors.New("turret loop produced no command")
	}
	return e.c.setPower(ctx, state[0].GetSignalValueAt(0))
}
