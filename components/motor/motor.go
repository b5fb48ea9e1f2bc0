// Package motor defines the encoded DC motors driven by the fire-control loops.
package motor

import (
	"context"
)

// A Motor represents a physical motor with an encoder.
type Motor interface {
	// SetPower sets the fraction of power the motor should employ between -1 and 1.
	// Negative power corresponds to a backward direction of rotation.
	SetPower(ctx context.Context, powerPct float64) error

	// Position reports the position of the motor in encoder ticks from home.
	Position(ctx context.Context) (float64, error)

	// Velocity reports the speed of the motor in encoder ticks per second.
	Velocity(ctx context.Context) (float64, error)

	// Stop turns the power to the motor off immediately, without any gradual step down.
	Stop(ctx context.Context) error
}
