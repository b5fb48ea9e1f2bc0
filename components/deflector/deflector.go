// Package deflector implements the open-loop deflection mechanism that shapes the shot trajectory.
package deflector

import (
	"context"
	"math"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/ftcshooter/firecontrol/components/servo"
	"github.com/ftcshooter/firecontrol/logging"
	"github.com/ftcshooter/firecontrol/utils"
)

// Preset positions.
const (
	PositionClosed = 0.0
	PositionOpen   = 1.0
)

// Config names the servo moving the deflector.
type Config struct {
	Servo string `json:"servo"`
}

// DefaultConfig returns the default deflector configuration.
func DefaultConfig() Config {
	return Config{Servo: "hood"}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Servo == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "servo")
	}
	return nil
}

// Mode tells whether the position follows the range table or the operator.
type Mode int

const (
	// ModeAutomatic follows SetTarget.
	ModeAutomatic Mode = iota
	// ModeManual holds an operator position until the next SetTarget.
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeAutomatic:
		return "automatic"
	case ModeManual:
		return "manual"
	}
	return "unknown"
}

// A Controller commands the deflector servo. The servo is only written when the commanded
// position changes.
type Controller struct {
	servo  servo.Servo
	logger logging.Logger

	mode    Mode
	target  float64
	written bool
	last    float64
}

// NewController returns a closed deflector in automatic mode.
func NewController(s servo.Servo, logger logging.Logger) (*Controller, error) {
	if s == nil {
		return nil, errors.New("deflector needs a servo")
	}
	return &Controller{servo: s, logger: logger, target: PositionClosed}, nil
}

// SetTarget sets the automatic position, clamped to the servo travel. It leaves manual mode.
func (c *Controller) SetTarget(position float64) {
	if c.mode != ModeAutomatic {
		c.logger.Infow("deflector automatic", "previous_mode", c.mode.String())
		c.mode = ModeAutomatic
	}
	c.target = clampPosition(position)
}

// SetManualPosition holds position, clamped to [0, 1], until the next SetTarget.
func (c *Controller) SetManualPosition(position float64) {
	if c.mode != ModeManual {
		c.logger.Infow("deflector manual override", "previous_mode", c.mode.String())
		c.mode = ModeManual
	}
	c.target = clampPosition(position)
}

// Open moves the deflector fully out.
func (c *Controller) Open() {
	c.SetManualPosition(PositionOpen)
}

// Close tucks the deflector in.
func (c *Controller) Close() {
	c.SetManualPosition(PositionClosed)
}

// Update writes the target to the servo if it changed since the last write.
func (c *Controller) Update(ctx context.Context) error {
	if c.written && c.last == c.target {
		return nil
	}
	if err := c.servo.Move(ctx, c.target); err != nil {
		return errors.Wrap(err, "moving deflector")
	}
	c.logger.Debugw("deflector moved", "position", c.target)
	c.written = true
	c.last = c.target
	return nil
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Target returns the commanded position.
func (c *Controller) Target() float64 {
	return c.target
}

// Position returns the servo position.
func (c *Controller) Position(ctx context.Context) (float64, error) {
	return c.servo.Position(ctx)
}

func clampPosition(position float64) float64 {
	if math.IsNaN(position) {
		return PositionClosed
	}
	return utils.Clamp(position, PositionClosed, PositionOpen)
}
