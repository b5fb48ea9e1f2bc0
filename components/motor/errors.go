package motor

import "github.com/pkg/errors"

// NewPowerOutOfRangeError returns an error representing a power request outside [-1, 1].
func NewPowerOutOfRangeError(motorName string, powerPct float64) error {
	return errors.Errorf("motor named %s cannot be set to power %v, power must be within [-1, 1]", motorName, powerPct)
}
