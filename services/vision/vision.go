// Package vision defines the camera pipeline that reports the angular offset of the goal.
package vision

import (
	"context"
	"math"
)

// A Source reports the horizontal angle, in degrees, from the camera axis to the goal. Positive
// angles are counter-clockwise. A non-finite offset means no target is in view.
type Source interface {
	TargetOffset(ctx context.Context) (float64, error)
}

// NoTarget is the offset reported when the goal is not in view.
func NoTarget() float64 {
	return math.NaN()
}

// HasTarget reports whether offset is a usable measurement.
func HasTarget(offset float64) bool {
	return !math.IsNaN(offset) && !math.IsInf(offset, 0)
}
