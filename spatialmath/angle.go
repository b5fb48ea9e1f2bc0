// Package spatialmath defines the planar geometry used by fire control: field poses, angle
// normalization and triangles.
package spatialmath

import "math"

// NormalizeAngle wraps theta into (-pi, pi]. Non-finite input is returned unchanged.
func NormalizeAngle(theta float64) float64 {
	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		return theta
	}
	wrapped := math.Mod(theta+math.Pi, 2*math.Pi)
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

// AngleDifference returns the signed smallest rotation that takes from to to, in (-pi, pi].
func AngleDifference(from, to float64) float64 {
	return NormalizeAngle(to - from)
}
