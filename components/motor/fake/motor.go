// Package fake implements a simulated motor with a first-order velocity response.
package fake

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ftcshooter/firecontrol/components/motor"
	"github.com/ftcshooter/firecontrol/logging"
)

const (
	defaultMaxTicksPerSecond = 2800
	defaultTimeConstant      = 100 * time.Millisecond
)

// Config describes the configuration of a simulated motor.
type Config struct {
	MaxTicksPerSecond float64       `json:"max_ticks_per_second,omitempty"`
	TimeConstant      time.Duration `json:"time_constant,omitempty"`
	DirectionFlip     bool          `json:"direction_flip"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	var err error
	if cfg.MaxTicksPerSecond < 0 {
		err = multierr.Append(err, errors.Errorf("%s: max_ticks_per_second cannot be negative", path))
	}
	if cfg.TimeConstant < 0 {
		err = multierr.Append(err, errors.Errorf("%s: time_constant cannot be negative", path))
	}
	return err
}

var _ motor.Motor = &Motor{}

// A Motor is a simulated encoded motor. Its velocity approaches power times the maximum speed
// exponentially and its position integrates the velocity. Time only moves when Advance is called.
type Motor struct {
	Name   string
	Logger logging.Logger

	mu                sync.Mutex
	powerPct          float64
	velocity          float64
	position          float64
	maxTicksPerSecond float64
	timeConstant      time.Duration
	dirFlip           bool
}

// NewMotor returns a simulated motor at rest at position zero.
func NewMotor(name string, cfg Config, logger logging.Logger) (*Motor, error) {
	if err := cfg.Validate(name); err != nil {
		return nil, err
	}
	m := &Motor{
		Name:              name,
		Logger:            logger,
		maxTicksPerSecond: cfg.MaxTicksPerSecond,
		timeConstant:      cfg.TimeConstant,
		dirFlip:           cfg.DirectionFlip,
	}
	if m.maxTicksPerSecond == 0 {
		logger.Infof("Max ticks per second not provided to a fake motor, defaulting to %v", defaultMaxTicksPerSecond)
		m.maxTicksPerSecond = defaultMaxTicksPerSecond
	}
	if m.timeConstant == 0 {
		m.timeConstant = defaultTimeConstant
	}
	return m, nil
}

// SetPower sets the given power percentage.
func (m *Motor) SetPower(ctx context.Context, powerPct float64) error {
	if math.IsNaN(powerPct) || math.Abs(powerPct) > 1 {
		return motor.NewPowerOutOfRangeError(m.Name, powerPct)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logger.Debugf("Motor SetPower %f", powerPct)
	m.powerPct = powerPct
	return nil
}

// PowerPct returns the set power percentage.
func (m *Motor) PowerPct() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.powerPct
}

// Position returns the motor position in ticks.
func (m *Motor) Position(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position, nil
}

// Velocity returns the motor velocity in ticks per second.
func (m *Motor) Velocity(ctx context.Context) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.velocity, nil
}

// Stop has the motor pretend to be off.
func (m *Motor) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logger.Debug("Motor Stopped")
	m.powerPct = 0
	return nil
}

// Advance moves the simulation forward by dt.
func (m *Motor) Advance(dt time.Duration) {
	if dt <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	power := m.powerPct
	if m.dirFlip {
		power *= -1
	}
	steady := power * m.maxTicksPerSecond
	alpha := 1 - math.Exp(-dt.Seconds()/m.timeConstant.Seconds())
	prev := m.velocity
	m.velocity += (steady - m.velocity) * alpha
	// trapezoidal integration of the position
	m.position += (prev + m.velocity) / 2 * dt.Seconds()
}

// SetPosition overwrites the simulated encoder position.
func (m *Motor) SetPosition(ticks float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = ticks
}
