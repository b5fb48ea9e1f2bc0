// Package servo defines positional servos commanded with a normalized position.
package servo

import (
	"context"

	"github.com/pkg/errors"
)

// A Servo represents a physical servo whose position is a fraction of its travel in [0, 1].
type Servo interface {
	// Move moves the servo to the given position, between 0 and 1.
	Move(ctx context.Context, position float64) error

	// Position returns the last commanded position.
	Position(ctx context.Context) (float64, error)

	// Stop stops the servo. It is assumed the servo stops immediately.
	Stop(ctx context.Context) error
}

// NewPositionOutOfRangeError returns an error representing a move outside the servo's travel.
func NewPositionOutOfRangeError(servoName string, position float64) error {
	return errors.Errorf("servo named %s cannot move to %v, position must be within [0, 1]", servoName, position)
}
