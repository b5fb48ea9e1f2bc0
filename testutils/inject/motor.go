// Package inject provides function-field implementations of the fire-control collaborators for tests.
package inject

import (
	"context"

	"github.com/ftcshooter/firecontrol/components/motor"
)

// Motor is an injected motor.
type Motor struct {
	motor.Motor
	SetPowerFunc func(ctx context.Context, powerPct float64) error
	PositionFunc func(ctx context.Context) (float64, error)
	VelocityFunc func(ctx context.Context) (float64, error)
	StopFunc     func(ctx context.Context) error
}

// SetPower calls the injected SetPower or the real version.
func (m *Motor) SetPower(ctx context.Context, powerPct float64) error {
	if m.SetPowerFunc == nil {
		return m.Motor.SetPower(ctx, powerPct)
	}
	return m.SetPowerFunc(ctx, powerPct)
}

// Position calls the injected Position or the real version.
func (m *Motor) Position(ctx context.Context) (float64, error) {
	if m.PositionFunc == nil {
		return m.Motor.Position(ctx)
	}
	return m.PositionFunc(ctx)
}

// Velocity calls the injected Velocity or the real version.
func (m *Motor) Velocity(ctx context.Context) (float64, error) {
	if m.VelocityFunc == nil {
		return m.Motor.Velocity(ctx)
	}
	return m.VelocityFunc(ctx)
}

// Stop calls the injected Stop or the real version.
func (m *Motor) Stop(ctx context.Context) error {
	if m.StopFunc == nil {
		return m.Motor.Stop(ctx)
	}
	return m.StopFunc(ctx)
}
